package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calmcoach.app/backend/internal/core"
	"calmcoach.app/backend/internal/knowledge"
	"calmcoach.app/backend/internal/provider"
	"calmcoach.app/backend/internal/store"
)

const testJWTSecret = "test-secret"

type stubAdapter struct {
	raw string
	err error
}

func (s *stubAdapter) Name() string { return "stub" }

func (s *stubAdapter) Complete(_ context.Context, _ provider.Request) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.raw, nil
}

const stubPlanResponse = `{"exercises": [
  {"title": "Slow Exhale", "description": "Longer out than in.", "category": "Somatic", "steps": ["Inhale 4", "Exhale 6"], "duration_minutes": 4}
]}`

func newTestServer(t *testing.T, adapter provider.Adapter) (*httptest.Server, *store.SQLiteStore) {
	t.Helper()
	dbStore, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbStore.Close() })

	retriever := core.NewRetriever(knowledge.Base(), core.DefaultTopK)
	gen := core.NewGenerationService(dbStore, retriever, core.ProviderDefaults{Provider: "gemini"})
	refl := core.NewReflectionService(dbStore, core.ProviderDefaults{Provider: "gemini"})
	factory := func(name, host string) (provider.Adapter, error) { return adapter, nil }
	gen.SetAdapterFactory(factory)
	refl.SetAdapterFactory(factory)

	handler := NewAPIHandler(dbStore, gen, refl, testJWTSecret)
	server := httptest.NewServer(NewRouter(handler))
	t.Cleanup(server.Close)
	return server, dbStore
}

func openSession(t *testing.T, server *httptest.Server) (deviceID, token string) {
	t.Helper()
	resp, err := http.Post(server.URL+"/api/session", "application/json", bytes.NewBufferString(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	require.NotEmpty(t, session.DeviceID)
	require.NotEmpty(t, session.Token)
	return session.DeviceID, session.Token
}

func doAuthed(t *testing.T, server *httptest.Server, token, method, path string, body any) *http.Response {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, server.URL+path, &payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestGenerateEndpointRequiresAuth(t *testing.T) {
	server, _ := newTestServer(t, &stubAdapter{raw: stubPlanResponse})

	resp, err := http.Post(server.URL+"/api/exercises/generate", "application/json",
		bytes.NewBufferString(`{"symptoms": "anxious"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGenerateEndpointHappyPath(t *testing.T) {
	server, _ := newTestServer(t, &stubAdapter{raw: stubPlanResponse})
	_, token := openSession(t, server)

	resp := doAuthed(t, server, token, http.MethodPost, "/api/exercises/generate",
		GenerateRequest{Symptoms: "anxious at work and can't sleep", Language: "en"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var generated GenerateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&generated))
	require.Len(t, generated.Exercises, 1)
	assert.NotEmpty(t, generated.Exercises[0].ID)
	assert.NotEmpty(t, generated.HistoryID)
	assert.Nil(t, generated.Crisis)

	// The plan shows up in history.
	histResp := doAuthed(t, server, token, http.MethodGet, "/api/history", nil)
	defer histResp.Body.Close()
	require.Equal(t, http.StatusOK, histResp.StatusCode)

	var history []store.PlanHistoryEntry
	require.NoError(t, json.NewDecoder(histResp.Body).Decode(&history))
	require.Len(t, history, 1)
	assert.Equal(t, generated.HistoryID, history[0].ID)
}

func TestGenerateEndpointFlagsCrisisInput(t *testing.T) {
	server, _ := newTestServer(t, &stubAdapter{raw: stubPlanResponse})
	_, token := openSession(t, server)

	resp := doAuthed(t, server, token, http.MethodPost, "/api/exercises/generate",
		GenerateRequest{Symptoms: "I want to die, nothing helps", Language: "en"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var generated GenerateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&generated))
	require.NotNil(t, generated.Crisis)
	assert.True(t, generated.Crisis.Detected)
	assert.NotEmpty(t, generated.Crisis.Message)
	// The pipeline still ran; screening only annotates.
	assert.NotEmpty(t, generated.Exercises)
}

func TestGenerateEndpointUpstreamHTTPErrorIsBadGateway(t *testing.T) {
	server, _ := newTestServer(t, &stubAdapter{err: &provider.HTTPError{Provider: "stub", StatusCode: 429, Body: "slow down"}})
	_, token := openSession(t, server)

	resp := doAuthed(t, server, token, http.MethodPost, "/api/exercises/generate",
		GenerateRequest{Symptoms: "anxious"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestReflectEndpointNetworkFailureStillSucceeds(t *testing.T) {
	server, _ := newTestServer(t, &stubAdapter{err: &provider.TransportError{Provider: "stub", Err: assert.AnError}})
	_, token := openSession(t, server)

	resp := doAuthed(t, server, token, http.MethodPost, "/api/journal/reflect",
		ReflectRequest{Content: "long stressful day", Language: "en"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reflected ReflectResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reflected))
	require.NotNil(t, reflected.Entry)
	assert.Equal(t, provider.FallbackReflection("en"), reflected.Entry.Reflection)
}

func TestFeedbackLifecycleOverHTTP(t *testing.T) {
	server, _ := newTestServer(t, &stubAdapter{raw: stubPlanResponse})
	_, token := openSession(t, server)

	put := doAuthed(t, server, token, http.MethodPut, "/api/feedback/ex-1",
		FeedbackRequest{Rating: 5, Title: "Slow Exhale"})
	put.Body.Close()
	require.Equal(t, http.StatusNoContent, put.StatusCode)

	// Out-of-range ratings are rejected.
	bad := doAuthed(t, server, token, http.MethodPut, "/api/feedback/ex-1",
		FeedbackRequest{Rating: 6, Title: "Slow Exhale"})
	bad.Body.Close()
	require.Equal(t, http.StatusBadRequest, bad.StatusCode)

	list := doAuthed(t, server, token, http.MethodGet, "/api/feedback", nil)
	defer list.Body.Close()
	var entries []store.FeedbackEntry
	require.NoError(t, json.NewDecoder(list.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 5, entries[0].Rating)

	del := doAuthed(t, server, token, http.MethodDelete, "/api/feedback/ex-1", nil)
	del.Body.Close()
	require.Equal(t, http.StatusNoContent, del.StatusCode)

	list2 := doAuthed(t, server, token, http.MethodGet, "/api/feedback", nil)
	defer list2.Body.Close()
	var after []store.FeedbackEntry
	require.NoError(t, json.NewDecoder(list2.Body).Decode(&after))
	assert.Empty(t, after)
}

func TestProfileAndSettingsOverHTTP(t *testing.T) {
	server, _ := newTestServer(t, &stubAdapter{raw: stubPlanResponse})
	_, token := openSession(t, server)

	age := 41
	put := doAuthed(t, server, token, http.MethodPut, "/api/profile", store.Profile{Age: &age})
	put.Body.Close()
	require.Equal(t, http.StatusOK, put.StatusCode)

	get := doAuthed(t, server, token, http.MethodGet, "/api/profile", nil)
	defer get.Body.Close()
	var profile store.Profile
	require.NoError(t, json.NewDecoder(get.Body).Decode(&profile))
	require.NotNil(t, profile.Age)
	assert.Equal(t, 41, *profile.Age)

	badConsent := doAuthed(t, server, token, http.MethodPut, "/api/settings",
		map[string]any{"consent_level": "everything", "language": "en"})
	badConsent.Body.Close()
	require.Equal(t, http.StatusBadRequest, badConsent.StatusCode)

	goodConsent := doAuthed(t, server, token, http.MethodPut, "/api/settings",
		map[string]any{"consent_level": "enhanced", "language": "de", "theme": "dark"})
	defer goodConsent.Body.Close()
	require.Equal(t, http.StatusOK, goodConsent.StatusCode)

	var settings store.Settings
	require.NoError(t, json.NewDecoder(goodConsent.Body).Decode(&settings))
	assert.Equal(t, store.ConsentEnhanced, settings.ConsentLevel)
	assert.Equal(t, "dark", settings.Theme)
}
