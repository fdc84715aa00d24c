package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroqAdapterSuccess(t *testing.T) {
	var captured groqRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": `{"exercises": []}`}},
			},
		})
	}))
	defer server.Close()

	adapter := NewGroqAdapter()
	adapter.baseURL = server.URL

	raw, err := adapter.Complete(context.Background(), Request{
		Model:             "test-model",
		APIKey:            "test-key",
		Prompt:            "user prompt",
		SystemInstruction: "system contract",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"exercises": []}`, raw)

	// The abstract request must be mapped to a chat-style message list with a
	// system role entry.
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
	assert.Equal(t, "system contract", captured.Messages[0].Content)
	assert.Equal(t, "user", captured.Messages[1].Role)
	assert.Equal(t, "user prompt", captured.Messages[1].Content)
	assert.Equal(t, "test-model", captured.Model)
	require.NotNil(t, captured.ResponseFormat)
	assert.Equal(t, "json_object", captured.ResponseFormat.Type)
}

func TestGroqAdapterHTTPErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "invalid api key"}}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	adapter := NewGroqAdapter()
	adapter.baseURL = server.URL

	_, err := adapter.Complete(context.Background(), Request{APIKey: "bad"})
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Contains(t, httpErr.Body, "invalid api key")
	assert.False(t, IsTransport(err), "HTTP errors are not connectivity loss")
}

func TestGroqAdapterNetworkFailureIsTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening anymore

	adapter := NewGroqAdapter()
	adapter.baseURL = server.URL

	_, err := adapter.Complete(context.Background(), Request{APIKey: "key"})
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestOllamaAdapterSuccess(t *testing.T) {
	var captured ollamaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.Empty(t, r.Header.Get("Authorization"), "local daemon gets no bearer token")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": `{"exercises": []}`},
			"done":    true,
		})
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL)

	raw, err := adapter.Complete(context.Background(), Request{
		Model:             "llama3.2",
		Prompt:            "user prompt",
		SystemInstruction: "system contract",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"exercises": []}`, raw)

	assert.Equal(t, "json", captured.Format)
	assert.False(t, captured.Stream)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, "system", captured.Messages[0].Role)
}

func TestOllamaCloudAdapterSendsBearer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer cloud-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "ok"},
			"done":    true,
		})
	}))
	defer server.Close()

	adapter := NewOllamaCloudAdapter()
	adapter.host = server.URL

	raw, err := adapter.Complete(context.Background(), Request{APIKey: "cloud-key"})
	require.NoError(t, err)
	assert.Equal(t, "ok", raw)
}

func TestOllamaAdapterInBodyErrorIsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "model not found"})
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL)

	_, err := adapter.Complete(context.Background(), Request{})
	require.Error(t, err)

	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.False(t, IsTransport(err))
}

func TestFallbackResultLocalizedWithFreshIDs(t *testing.T) {
	en := FallbackResult("en")
	require.NotEmpty(t, en.Exercises)

	es := FallbackResult("es")
	require.Len(t, es.Exercises, len(en.Exercises))
	assert.Equal(t, "Respiración cuadrada", es.Exercises[0].Title)

	// Unknown languages fall back to English rather than failing.
	fr := FallbackResult("fr")
	assert.Equal(t, "Box Breathing", fr.Exercises[0].Title)

	// Each call mints fresh ids.
	again := FallbackResult("en")
	assert.NotEqual(t, en.Exercises[0].ID, again.Exercises[0].ID)
	assert.NotEmpty(t, en.Exercises[0].ID)
}

func TestForNameResolvesAllProviders(t *testing.T) {
	for _, name := range Names() {
		adapter, err := ForName(name, "")
		require.NoError(t, err, name)
		assert.Equal(t, name, adapter.Name())
	}

	// Empty defaults to gemini; unknown names fail.
	adapter, err := ForName("", "")
	require.NoError(t, err)
	assert.Equal(t, "gemini", adapter.Name())

	_, err = ForName("openai", "")
	assert.Error(t, err)
}
