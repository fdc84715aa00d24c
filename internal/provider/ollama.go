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
	defaultOllamaHost  = "http://localhost:11434"
	ollamaCloudHost    = "https://ollama.com"
	defaultOllamaModel = "llama3.2"
	ollamaTimeout      = 120 * time.Second
)

// OllamaAdapter speaks the Ollama chat API. The same wire shape serves both a
// local daemon and the hosted cloud service; only the host and the bearer key
// differ, so the two spec'd backends are two instantiations of this adapter.
type OllamaAdapter struct {
	name       string
	host       string
	cloud      bool
	httpClient *http.Client
}

// NewOllamaAdapter targets a local daemon. host overrides the default
// localhost endpoint when non-empty; no API key is sent.
func NewOllamaAdapter(host string) *OllamaAdapter {
	if host == "" {
		host = defaultOllamaHost
	}
	return &OllamaAdapter{
		name:       "ollama",
		host:       host,
		httpClient: &http.Client{Timeout: ollamaTimeout},
	}
}

// NewOllamaCloudAdapter targets the hosted service, authenticating with the
// per-request API key.
func NewOllamaCloudAdapter() *OllamaAdapter {
	return &OllamaAdapter{
		name:       "ollama-cloud",
		host:       ollamaCloudHost,
		cloud:      true,
		httpClient: &http.Client{Timeout: ollamaTimeout},
	}
}

func (a *OllamaAdapter) Name() string { return a.name }

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Format   string          `json:"format,omitempty"`
	Stream   bool            `json:"stream"`
}

type ollamaResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error"`
}

func (a *OllamaAdapter) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = defaultOllamaModel
	}

	body := ollamaRequest{
		Model: model,
		Messages: []ollamaMessage{
			{Role: "system", Content: req.SystemInstruction},
			{Role: "user", Content: req.Prompt},
		},
		Format: "json",
		Stream: false,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build ollama request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.cloud && req.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

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

	var parsed ollamaResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ParseError{Provider: a.Name(), Err: err}
	}
	if parsed.Error != "" {
		return "", &ParseError{Provider: a.Name(), Err: fmt.Errorf("%s", parsed.Error)}
	}
	if parsed.Message.Content == "" {
		return "", &ParseError{Provider: a.Name(), Err: fmt.Errorf("response contained no message content")}
	}
	return parsed.Message.Content, nil
}
