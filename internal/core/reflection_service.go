package core

import (
	"context"
	"fmt"
	"log"

	"calmcoach.app/backend/internal/provider"
	"calmcoach.app/backend/internal/store"
)

// ReflectionService runs journal entries through the chosen provider and
// stores the entry together with the reflection it produced.
type ReflectionService struct {
	dbStore    *store.SQLiteStore
	defaults   ProviderDefaults
	newAdapter AdapterFactory
}

func NewReflectionService(db *store.SQLiteStore, defaults ProviderDefaults) *ReflectionService {
	return &ReflectionService{
		dbStore:    db,
		defaults:   defaults,
		newAdapter: provider.ForName,
	}
}

// SetAdapterFactory replaces the provider resolution, for tests.
func (s *ReflectionService) SetAdapterFactory(f AdapterFactory) { s.newAdapter = f }

// ReflectRequest is one journal-analysis call.
type ReflectRequest struct {
	DeviceID string
	Content  string
	Language string
	Provider string
	Model    string
	APIKey   string
}

// Reflect analyzes a journal entry. Unlike generation, the reply is plain
// text, so no JSON normalization applies; an unreachable provider yields the
// canned reflective text in the session language instead of an error. The
// entry is persisted either way.
func (s *ReflectionService) Reflect(ctx context.Context, req ReflectRequest) (*store.JournalEntry, error) {
	settings, err := s.dbStore.GetSettings(req.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	s.applyDefaults(&req, settings)

	adapter, err := s.newAdapter(req.Provider, s.defaults.OllamaHost)
	if err != nil {
		return nil, err
	}

	reflection, err := adapter.Complete(ctx, provider.Request{
		Model:             req.Model,
		APIKey:            req.APIKey,
		Prompt:            BuildReflectionPrompt(req.Content, req.Language),
		SystemInstruction: ReflectionSystemInstruction(),
		Language:          req.Language,
	})
	if err != nil {
		if !provider.IsTransport(err) {
			return nil, err
		}
		log.Printf("Provider %s unreachable, serving canned reflection: %v", adapter.Name(), err)
		reflection = provider.FallbackReflection(req.Language)
	}

	entry := &store.JournalEntry{
		DeviceID:   req.DeviceID,
		Content:    req.Content,
		Reflection: reflection,
	}
	if err := s.dbStore.CreateJournalEntry(entry); err != nil {
		return nil, fmt.Errorf("failed to store journal entry: %w", err)
	}
	return entry, nil
}

func (s *ReflectionService) applyDefaults(req *ReflectRequest, settings *store.Settings) {
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
}
