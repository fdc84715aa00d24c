package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash-latest"

// GeminiAdapter speaks the Google Generative AI API. Gemini supports a JSON
// response MIME type, so its replies usually parse on the first recovery
// strategy.
type GeminiAdapter struct{}

func NewGeminiAdapter() *GeminiAdapter { return &GeminiAdapter{} }

func (a *GeminiAdapter) Name() string { return "gemini" }

func (a *GeminiAdapter) Complete(ctx context.Context, req Request) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(req.APIKey))
	if err != nil {
		return "", fmt.Errorf("failed to create GenAI client: %w", err)
	}
	defer client.Close()

	modelName := req.Model
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	if req.SystemInstruction != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemInstruction)},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", a.classify(err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &ParseError{Provider: a.Name(), Err: fmt.Errorf("empty response from model")}
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if text.Len() == 0 {
		return "", &ParseError{Provider: a.Name(), Err: fmt.Errorf("response contained no text parts")}
	}
	return text.String(), nil
}

// classify splits SDK errors into the failure taxonomy: googleapi errors carry
// an HTTP status, everything else from the transport is connectivity loss.
func (a *GeminiAdapter) classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &HTTPError{Provider: a.Name(), StatusCode: gerr.Code, Body: gerr.Message}
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if wrapped := wrapTransport(a.Name(), err); wrapped != err {
		return wrapped
	}
	// The SDK wraps raw transport failures without a typed error; treat
	// anything that is not an API-level error as unreachable.
	return &TransportError{Provider: a.Name(), Err: err}
}
