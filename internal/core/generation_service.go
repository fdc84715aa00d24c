package core

import (
	"context"
	"fmt"
	"log"

	"calmcoach.app/backend/internal/knowledge"
	"calmcoach.app/backend/internal/provider"
	"calmcoach.app/backend/internal/store"
)

// ProviderDefaults is the server-side fallback for provider selection when
// neither the request nor the device's saved settings specify one.
type ProviderDefaults struct {
	Provider   string
	Model      string
	OllamaHost string
	// APIKeys maps provider name to a server-held key, used when the client
	// sends none.
	APIKeys map[string]string
}

// AdapterFactory resolves a provider name to an adapter. Swapped out in tests.
type AdapterFactory func(name, ollamaHost string) (provider.Adapter, error)

// GenerationService runs the full exercise pipeline: retrieve, build prompt,
// call the chosen provider, normalize, record history.
type GenerationService struct {
	dbStore    *store.SQLiteStore
	retriever  *Retriever
	defaults   ProviderDefaults
	newAdapter AdapterFactory
}

func NewGenerationService(db *store.SQLiteStore, retriever *Retriever, defaults ProviderDefaults) *GenerationService {
	return &GenerationService{
		dbStore:    db,
		retriever:  retriever,
		defaults:   defaults,
		newAdapter: provider.ForName,
	}
}

// SetAdapterFactory replaces the provider resolution, for tests.
func (s *GenerationService) SetAdapterFactory(f AdapterFactory) { s.newAdapter = f }

// GenerateRequest is the client's generation call. Profile, consent, feedback
// and language may be sent inline (the client owns that state); anything
// omitted falls back to what the device has persisted server-side.
type GenerateRequest struct {
	DeviceID string
	Symptoms string
	Profile  *store.Profile
	Consent  store.ConsentLevel
	Feedback []store.FeedbackEntry
	Language string
	Provider string
	Model    string
	APIKey   string
}

// Generate runs one request through the pipeline and appends the result to
// the device's plan history. A provider that is unreachable at the network
// level degrades to the built-in fallback set; HTTP and parse failures
// propagate as errors.
func (s *GenerationService) Generate(ctx context.Context, req GenerateRequest) (*store.PlanHistoryEntry, error) {
	settings, err := s.dbStore.GetSettings(req.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	s.applyDefaults(&req, settings)

	if req.Profile == nil && req.Consent.AllowsPersonalization() {
		req.Profile, err = s.dbStore.GetProfile(req.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile: %w", err)
		}
	}
	if req.Feedback == nil {
		req.Feedback, err = s.dbStore.GetFeedback(req.DeviceID)
		if err != nil {
			return nil, fmt.Errorf("failed to load feedback: %w", err)
		}
	}

	chunks := s.retriever.Retrieve(req.Symptoms)

	prompt := BuildExercisePrompt(PromptInput{
		Symptoms: req.Symptoms,
		Chunks:   chunks,
		Consent:  req.Consent,
		Profile:  req.Profile,
		Feedback: req.Feedback,
		Language: req.Language,
	})

	adapter, err := s.newAdapter(req.Provider, s.defaults.OllamaHost)
	if err != nil {
		return nil, err
	}

	result, err := s.complete(ctx, adapter, provider.Request{
		Model:             req.Model,
		APIKey:            req.APIKey,
		Prompt:            prompt,
		SystemInstruction: ExerciseSystemInstruction(),
		Language:          req.Language,
	})
	if err != nil {
		return nil, err
	}

	entry := &store.PlanHistoryEntry{
		DeviceID:     req.DeviceID,
		UserInput:    req.Symptoms,
		Exercises:    result.Exercises,
		Sources:      mergeSources(chunks, result.Sources),
		CalmImageURL: calmImageFor(result.Exercises),
	}
	if err := s.dbStore.AppendPlanHistory(entry); err != nil {
		// History is a convenience; the generated plan is still worth
		// returning even if recording it failed.
		log.Printf("Failed to append plan history for device %s: %v", req.DeviceID, err)
	}
	return entry, nil
}

// complete calls the adapter and normalizes its reply. Only transport-level
// failures are swallowed (fallback content); everything else propagates so
// real errors stay visible.
func (s *GenerationService) complete(ctx context.Context, adapter provider.Adapter, preq provider.Request) (*provider.Result, error) {
	raw, err := adapter.Complete(ctx, preq)
	if err != nil {
		if provider.IsTransport(err) {
			log.Printf("Provider %s unreachable, serving fallback exercises: %v", adapter.Name(), err)
			return provider.FallbackResult(preq.Language), nil
		}
		return nil, err
	}
	return provider.Normalize(adapter.Name(), raw)
}

func (s *GenerationService) applyDefaults(req *GenerateRequest, settings *store.Settings) {
	if req.Provider == "" {
		req.Provider = settings.Provider
	}
	if req.Provider == "" {
		req.Provider = s.defaults.Provider
	}
	if req.Model == "" {
		req.Model = settings.Model
	}
	if req.Model == "" {
		req.Model = s.defaults.Model
	}
	if req.APIKey == "" {
		req.APIKey = settings.APIKey
	}
	if req.APIKey == "" {
		req.APIKey = s.defaults.APIKeys[req.Provider]
	}
	if req.Language == "" {
		req.Language = settings.Language
	}
	if req.Consent == "" {
		req.Consent = settings.ConsentLevel
	}
}

// mergeSources lists the retrieved knowledge passages first, then whatever
// citations the model volunteered.
func mergeSources(chunks []knowledge.Chunk, modelSources []provider.Source) []provider.Source {
	sources := make([]provider.Source, 0, len(chunks)+len(modelSources))
	for _, chunk := range chunks {
		sources = append(sources, provider.Source{Title: "Knowledge base: " + chunk.ID})
	}
	return append(sources, modelSources...)
}

// calmImageFor picks a curated ambient image keyed off the top exercise's
// category. Purely cosmetic; an empty URL is fine.
func calmImageFor(exercises []provider.Exercise) string {
	if len(exercises) == 0 {
		return ""
	}
	if url, ok := calmImages[exercises[0].Category]; ok {
		return url
	}
	return calmImages[provider.CategoryMindfulness]
}

var calmImages = map[provider.Category]string{
	provider.CategoryMindfulness: "https://images.unsplash.com/photo-1506744038136-46273834b3fb",
	provider.CategoryCognitive:   "https://images.unsplash.com/photo-1470770841072-f978cf4d019e",
	provider.CategorySomatic:     "https://images.unsplash.com/photo-1507525428034-b723cf961d3e",
	provider.CategoryBehavioral:  "https://images.unsplash.com/photo-1441974231531-c6227db76b6e",
	provider.CategoryGrounding:   "https://images.unsplash.com/photo-1518495973542-4542c06a5843",
}
