package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	groqBaseURL      = "https://api.groq.com/openai/v1"
	defaultGroqModel = "llama-3.3-70b-versatile"
	groqTimeout      = 60 * time.Second
)

// GroqAdapter speaks Groq's OpenAI-compatible chat completions API. The
// system instruction travels as a chat message with the system role, and the
// JSON response format flag is requested since Groq supports it.
type GroqAdapter struct {
	baseURL    string
	httpClient *http.Client
}

func NewGroqAdapter() *GroqAdapter {
	return &GroqAdapter{
		baseURL:    groqBaseURL,
		httpClient: &http.Client{Timeout: groqTimeout},
	}
}

func (a *GroqAdapter) Name() string { return "groq" }

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model          string        `json:"model"`
	Messages       []groqMessage `json:"messages"`
	Temperature    float64       `json:"temperature,omitempty"`
	ResponseFormat *groqFormat   `json:"response_format,omitempty"`
}

type groqFormat struct {
	Type string `json:"type"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (a *GroqAdapter) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = defaultGroqModel
	}

	body := groqRequest{
		Model: model,
		Messages: []groqMessage{
			{Role: "system", Content: req.SystemInstruction},
			{Role: "user", Content: req.Prompt},
		},
		Temperature:    0.7,
		ResponseFormat: &groqFormat{Type: "json_object"},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal groq request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build groq request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", wrapTransport(a.Name(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapTransport(a.Name(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPError{Provider: a.Name(), StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed groqResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ParseError{Provider: a.Name(), Err: err}
	}
	if parsed.Error != nil {
		return "", &ParseError{Provider: a.Name(), Err: fmt.Errorf("%s: %s", parsed.Error.Type, parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return "", &ParseError{Provider: a.Name(), Err: fmt.Errorf("response contained no choices")}
	}
	return parsed.Choices[0].Message.Content, nil
}
