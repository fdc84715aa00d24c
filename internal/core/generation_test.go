package core

import (
	"context"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calmcoach.app/backend/internal/knowledge"
	"calmcoach.app/backend/internal/provider"
	"calmcoach.app/backend/internal/store"
)

type fakeAdapter struct {
	name string
	raw  string
	err  error

	lastRequest provider.Request
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Complete(_ context.Context, req provider.Request) (string, error) {
	f.lastRequest = req
	if f.err != nil {
		return "", f.err
	}
	return f.raw, nil
}

const fakePlanResponse = `{
  "exercises": [
    {"title": "Worry Window", "description": "Postpone worry to a fixed slot.", "category": "Cognitive", "steps": ["Pick a slot", "Defer worries to it"], "duration_minutes": 15},
    {"title": "Slow Exhale", "description": "Exhale longer than you inhale.", "category": "Somatic", "steps": ["Inhale 4", "Exhale 6"], "duration_minutes": 4}
  ],
  "sources": [{"title": "Worry postponement studies"}]
}`

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	dbStore, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbStore.Close() })
	return dbStore
}

func newTestGenerationService(t *testing.T, adapter provider.Adapter) (*GenerationService, *store.SQLiteStore) {
	t.Helper()
	dbStore := newTestStore(t)
	svc := NewGenerationService(dbStore, NewRetriever(knowledge.Base(), DefaultTopK), ProviderDefaults{Provider: "gemini"})
	svc.SetAdapterFactory(func(name, host string) (provider.Adapter, error) {
		return adapter, nil
	})
	return svc, dbStore
}

func registerDevice(t *testing.T, dbStore *store.SQLiteStore, id string) {
	t.Helper()
	_, err := dbStore.GetOrCreateDevice(id)
	require.NoError(t, err)
}

func TestGenerateHappyPathRecordsHistory(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", raw: fakePlanResponse}
	svc, dbStore := newTestGenerationService(t, adapter)
	registerDevice(t, dbStore, "device-1")

	entry, err := svc.Generate(context.Background(), GenerateRequest{
		DeviceID: "device-1",
		Symptoms: "anxious at work, can't sleep",
		Language: "en",
	})
	require.NoError(t, err)

	require.Len(t, entry.Exercises, 2)
	assert.NotEmpty(t, entry.ID)
	assert.NotEqual(t, entry.Exercises[0].ID, entry.Exercises[1].ID)
	assert.Equal(t, "anxious at work, can't sleep", entry.UserInput)
	assert.NotEmpty(t, entry.CalmImageURL)

	// Sources list the retrieved passages first, then the model's citation.
	require.NotEmpty(t, entry.Sources)
	assert.Equal(t, "Worry postponement studies", entry.Sources[len(entry.Sources)-1].Title)

	// The prompt must carry the symptoms and the behavior contract.
	assert.Contains(t, adapter.lastRequest.Prompt, "anxious at work")
	assert.NotEmpty(t, adapter.lastRequest.SystemInstruction)

	// And the entry is in the device's history.
	history, err := dbStore.GetPlanHistory("device-1", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entry.ID, history[0].ID)
}

func TestGenerateNetworkFailureServesFallback(t *testing.T) {
	transportErr := &provider.TransportError{Provider: "fake", Err: &url.Error{Op: "Post", URL: "http://x", Err: assert.AnError}}
	adapter := &fakeAdapter{name: "fake", err: transportErr}
	svc, dbStore := newTestGenerationService(t, adapter)
	registerDevice(t, dbStore, "device-1")

	entry, err := svc.Generate(context.Background(), GenerateRequest{
		DeviceID: "device-1",
		Symptoms: "panicky",
		Language: "es",
	})
	require.NoError(t, err, "connectivity loss must not surface as an error")

	require.NotEmpty(t, entry.Exercises)
	assert.Equal(t, "Respiración cuadrada", entry.Exercises[0].Title, "fallback is served in the request language")
}

func TestGenerateHTTPErrorPropagates(t *testing.T) {
	httpErr := &provider.HTTPError{Provider: "fake", StatusCode: 429, Body: "rate limited"}
	adapter := &fakeAdapter{name: "fake", err: httpErr}
	svc, dbStore := newTestGenerationService(t, adapter)
	registerDevice(t, dbStore, "device-1")

	_, err := svc.Generate(context.Background(), GenerateRequest{
		DeviceID: "device-1",
		Symptoms: "panicky",
	})
	require.Error(t, err)

	var asHTTP *provider.HTTPError
	require.ErrorAs(t, err, &asHTTP)
	assert.Equal(t, 429, asHTTP.StatusCode)
}

func TestGenerateMalformedResponsePropagatesParseError(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", raw: "I cannot produce JSON today."}
	svc, dbStore := newTestGenerationService(t, adapter)
	registerDevice(t, dbStore, "device-1")

	_, err := svc.Generate(context.Background(), GenerateRequest{
		DeviceID: "device-1",
		Symptoms: "panicky",
	})
	require.Error(t, err)

	var parseErr *provider.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestGenerateUsesStoredFeedbackAndSettings(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", raw: fakePlanResponse}
	svc, dbStore := newTestGenerationService(t, adapter)
	registerDevice(t, dbStore, "device-1")

	require.NoError(t, dbStore.SetFeedback("device-1", store.FeedbackEntry{
		ExerciseID: "ex-1", Rating: 5, Title: "Slow Exhale",
	}))
	require.NoError(t, dbStore.UpsertSettings(&store.Settings{
		DeviceID:     "device-1",
		ConsentLevel: store.ConsentEssential,
		Language:     "de",
		Provider:     "fake",
	}))

	_, err := svc.Generate(context.Background(), GenerateRequest{
		DeviceID: "device-1",
		Symptoms: "tense shoulders",
	})
	require.NoError(t, err)

	assert.Contains(t, adapter.lastRequest.Prompt, "Slow Exhale", "stored feedback steers the prompt")
	assert.Contains(t, adapter.lastRequest.Prompt, `"de"`, "stored language applies when the request has none")
}

func TestReflectHappyPathStoresEntry(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", raw: "It sounds like today asked a lot of you."}
	dbStore := newTestStore(t)
	registerDevice(t, dbStore, "device-1")

	svc := NewReflectionService(dbStore, ProviderDefaults{Provider: "gemini"})
	svc.SetAdapterFactory(func(name, host string) (provider.Adapter, error) {
		return adapter, nil
	})

	entry, err := svc.Reflect(context.Background(), ReflectRequest{
		DeviceID: "device-1",
		Content:  "Long day, couldn't switch off.",
		Language: "en",
	})
	require.NoError(t, err)
	assert.Equal(t, "It sounds like today asked a lot of you.", entry.Reflection)

	entries, err := dbStore.GetJournalEntries("device-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Long day, couldn't switch off.", entries[0].Content)
}

func TestReflectNetworkFailureServesCannedText(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", err: &provider.TransportError{Provider: "fake", Err: assert.AnError}}
	dbStore := newTestStore(t)
	registerDevice(t, dbStore, "device-1")

	svc := NewReflectionService(dbStore, ProviderDefaults{Provider: "gemini"})
	svc.SetAdapterFactory(func(name, host string) (provider.Adapter, error) {
		return adapter, nil
	})

	entry, err := svc.Reflect(context.Background(), ReflectRequest{
		DeviceID: "device-1",
		Content:  "Rough evening.",
		Language: "de",
	})
	require.NoError(t, err, "connectivity loss must not surface as an error")
	assert.Equal(t, provider.FallbackReflection("de"), entry.Reflection)
}

func TestReflectHTTPErrorPropagates(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", err: &provider.HTTPError{Provider: "fake", StatusCode: 500, Body: "boom"}}
	dbStore := newTestStore(t)
	registerDevice(t, dbStore, "device-1")

	svc := NewReflectionService(dbStore, ProviderDefaults{Provider: "gemini"})
	svc.SetAdapterFactory(func(name, host string) (provider.Adapter, error) {
		return adapter, nil
	})

	_, err := svc.Reflect(context.Background(), ReflectRequest{
		DeviceID: "device-1",
		Content:  "Rough evening.",
	})
	require.Error(t, err)

	entries, listErr := dbStore.GetJournalEntries("device-1", 10)
	require.NoError(t, listErr)
	assert.Empty(t, entries, "failed analysis stores nothing")
}
