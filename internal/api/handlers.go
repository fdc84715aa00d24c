package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"calmcoach.app/backend/internal/auth"
	"calmcoach.app/backend/internal/core"
	"calmcoach.app/backend/internal/provider"
	"calmcoach.app/backend/internal/store"
)

const defaultListLimit = 50

type APIHandler struct {
	dbStore           *store.SQLiteStore
	generationService *core.GenerationService
	reflectionService *core.ReflectionService
	jwtSecret         string
}

func NewAPIHandler(db *store.SQLiteStore, gen *core.GenerationService, refl *core.ReflectionService, jwtSecret string) *APIHandler {
	return &APIHandler{
		dbStore:           db,
		generationService: gen,
		reflectionService: refl,
		jwtSecret:         jwtSecret,
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		deviceID, err := auth.ValidateJWT(tokenString, h.jwtSecret)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		device, err := h.dbStore.GetDevice(deviceID)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for device %s: %v", deviceID, err)
			http.Error(w, "Failed to process device identity", http.StatusInternalServerError)
			return
		}
		if device == nil {
			http.Error(w, "Device not registered", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "deviceID", device.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type SessionRequest struct {
	DeviceID string `json:"device_id,omitempty"`
}

type SessionResponse struct {
	DeviceID string `json:"device_id"`
	Token    string `json:"token"`
}

// SessionHandler registers an anonymous device (generating an id when the
// client has none yet) and issues its token.
func (h *APIHandler) SessionHandler(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if r.Body != http.NoBody {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	deviceID := req.DeviceID
	if deviceID == "" {
		deviceID = uuid.NewString()
	}

	device, err := h.dbStore.GetOrCreateDevice(deviceID)
	if err != nil {
		log.Printf("Error registering device %s: %v", deviceID, err)
		http.Error(w, "Failed to register device", http.StatusInternalServerError)
		return
	}

	token, err := auth.GenerateJWT(device.ID, h.jwtSecret)
	if err != nil {
		log.Printf("Error generating JWT for device %s: %v", device.ID, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(SessionResponse{DeviceID: device.ID, Token: token})
}

type GenerateRequest struct {
	Symptoms     string                `json:"symptoms"`
	Profile      *store.Profile        `json:"profile,omitempty"`
	ConsentLevel store.ConsentLevel    `json:"consentLevel,omitempty"`
	Feedback     []store.FeedbackEntry `json:"feedback,omitempty"`
	Language     string                `json:"language,omitempty"`
	Provider     string                `json:"provider,omitempty"`
	Model        string                `json:"model,omitempty"`
	APIKey       string                `json:"apiKey,omitempty"`
}

type GenerateResponse struct {
	HistoryID    string              `json:"history_id"`
	Exercises    []provider.Exercise `json:"exercises"`
	Sources      []provider.Source   `json:"sources,omitempty"`
	CalmImageURL string              `json:"calmImageUrl,omitempty"`
	Crisis       *CrisisNotice       `json:"crisis,omitempty"`
}

func (h *APIHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Symptoms) == "" {
		http.Error(w, "Symptoms description cannot be empty", http.StatusBadRequest)
		return
	}

	entry, err := h.generationService.Generate(r.Context(), core.GenerateRequest{
		DeviceID: deviceID,
		Symptoms: req.Symptoms,
		Profile:  req.Profile,
		Consent:  req.ConsentLevel,
		Feedback: req.Feedback,
		Language: req.Language,
		Provider: req.Provider,
		Model:    req.Model,
		APIKey:   req.APIKey,
	})
	if err != nil {
		h.writeProviderError(w, deviceID, err)
		return
	}

	resp := GenerateResponse{
		HistoryID:    entry.ID,
		Exercises:    entry.Exercises,
		Sources:      entry.Sources,
		CalmImageURL: entry.CalmImageURL,
	}
	if notice := DetectCrisis(req.Symptoms, req.Language); notice.Detected {
		resp.Crisis = &notice
	}
	json.NewEncoder(w).Encode(resp)
}

type ReflectRequest struct {
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
	APIKey   string `json:"apiKey,omitempty"`
}

type ReflectResponse struct {
	Entry  *store.JournalEntry `json:"entry"`
	Crisis *CrisisNotice       `json:"crisis,omitempty"`
}

func (h *APIHandler) ReflectHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)

	var req ReflectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, "Journal content cannot be empty", http.StatusBadRequest)
		return
	}

	entry, err := h.reflectionService.Reflect(r.Context(), core.ReflectRequest{
		DeviceID: deviceID,
		Content:  req.Content,
		Language: req.Language,
		Provider: req.Provider,
		Model:    req.Model,
		APIKey:   req.APIKey,
	})
	if err != nil {
		h.writeProviderError(w, deviceID, err)
		return
	}

	resp := ReflectResponse{Entry: entry}
	if notice := DetectCrisis(req.Content, req.Language); notice.Detected {
		resp.Crisis = &notice
	}
	json.NewEncoder(w).Encode(resp)
}

// writeProviderError maps pipeline failures onto HTTP statuses. Upstream HTTP
// errors surface as 502 with the provider's status and body; parse failures
// as 502 with a generic message; anything else is a 500.
func (h *APIHandler) writeProviderError(w http.ResponseWriter, deviceID string, err error) {
	var httpErr *provider.HTTPError
	if errors.As(err, &httpErr) {
		log.Printf("Provider HTTP error for device %s: %v", deviceID, err)
		http.Error(w, httpErr.Error(), http.StatusBadGateway)
		return
	}
	var parseErr *provider.ParseError
	if errors.As(err, &parseErr) {
		log.Printf("Provider parse error for device %s: %v", deviceID, err)
		http.Error(w, "The model returned an unusable response, please try again", http.StatusBadGateway)
		return
	}
	log.Printf("Error handling request for device %s: %v", deviceID, err)
	http.Error(w, "Failed to process request", http.StatusInternalServerError)
}

// History handlers

func (h *APIHandler) ListHistoryHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)

	entries, err := h.dbStore.GetPlanHistory(deviceID, listLimit(r))
	if err != nil {
		log.Printf("Error listing history for device %s: %v", deviceID, err)
		http.Error(w, "Failed to list history", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []store.PlanHistoryEntry{}
	}
	json.NewEncoder(w).Encode(entries)
}

func (h *APIHandler) GetHistoryEntryHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)
	entryID := chi.URLParam(r, "entryID")

	entry, err := h.dbStore.GetPlanHistoryEntry(entryID, deviceID)
	if err != nil {
		log.Printf("Error getting history entry %s for device %s: %v", entryID, deviceID, err)
		http.Error(w, "Failed to get history entry", http.StatusInternalServerError)
		return
	}
	if entry == nil {
		http.Error(w, "History entry not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(entry)
}

// Feedback handlers

type FeedbackRequest struct {
	Rating int    `json:"rating"`
	Title  string `json:"title"`
}

func (h *APIHandler) SetFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)
	exerciseID := chi.URLParam(r, "exerciseID")

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		http.Error(w, "Rating must be between 1 and 5", http.StatusBadRequest)
		return
	}

	err := h.dbStore.SetFeedback(deviceID, store.FeedbackEntry{
		ExerciseID: exerciseID,
		Rating:     req.Rating,
		Title:      req.Title,
	})
	if err != nil {
		log.Printf("Error setting feedback for device %s, exercise %s: %v", deviceID, exerciseID, err)
		http.Error(w, "Failed to set feedback", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ClearFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)
	exerciseID := chi.URLParam(r, "exerciseID")

	if err := h.dbStore.ClearFeedback(deviceID, exerciseID); err != nil {
		log.Printf("Error clearing feedback for device %s, exercise %s: %v", deviceID, exerciseID, err)
		http.Error(w, "Failed to clear feedback", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)

	entries, err := h.dbStore.GetFeedback(deviceID)
	if err != nil {
		log.Printf("Error listing feedback for device %s: %v", deviceID, err)
		http.Error(w, "Failed to list feedback", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []store.FeedbackEntry{}
	}
	json.NewEncoder(w).Encode(entries)
}

// Completion handlers

type CompletionRequest struct {
	ExerciseID string `json:"exercise_id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
}

func (h *APIHandler) AddCompletionHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)

	var req CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.ExerciseID == "" {
		http.Error(w, "Exercise id is required", http.StatusBadRequest)
		return
	}

	completion := store.ExerciseCompletion{
		DeviceID:   deviceID,
		ExerciseID: req.ExerciseID,
		Title:      req.Title,
		Category:   provider.Category(req.Category),
	}
	if err := h.dbStore.AddCompletion(&completion); err != nil {
		log.Printf("Error recording completion for device %s: %v", deviceID, err)
		http.Error(w, "Failed to record completion", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(completion)
}

func (h *APIHandler) ListCompletionsHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)

	completions, err := h.dbStore.GetCompletions(deviceID, listLimit(r))
	if err != nil {
		log.Printf("Error listing completions for device %s: %v", deviceID, err)
		http.Error(w, "Failed to list completions", http.StatusInternalServerError)
		return
	}
	if completions == nil {
		completions = []store.ExerciseCompletion{}
	}
	json.NewEncoder(w).Encode(completions)
}

// Journal handlers

func (h *APIHandler) ListJournalHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)

	entries, err := h.dbStore.GetJournalEntries(deviceID, listLimit(r))
	if err != nil {
		log.Printf("Error listing journal entries for device %s: %v", deviceID, err)
		http.Error(w, "Failed to list journal entries", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []store.JournalEntry{}
	}
	json.NewEncoder(w).Encode(entries)
}

// Mood handlers

type MoodRequest struct {
	Mood int    `json:"mood"`
	Note string `json:"note,omitempty"`
}

func (h *APIHandler) AddMoodHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)

	var req MoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Mood < 1 || req.Mood > 5 {
		http.Error(w, "Mood must be between 1 and 5", http.StatusBadRequest)
		return
	}

	mood := store.MoodLog{DeviceID: deviceID, Mood: req.Mood, Note: req.Note}
	if err := h.dbStore.AddMoodLog(&mood); err != nil {
		log.Printf("Error recording mood for device %s: %v", deviceID, err)
		http.Error(w, "Failed to record mood", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(mood)
}

func (h *APIHandler) ListMoodsHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)

	logs, err := h.dbStore.GetMoodLogs(deviceID, listLimit(r))
	if err != nil {
		log.Printf("Error listing moods for device %s: %v", deviceID, err)
		http.Error(w, "Failed to list moods", http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []store.MoodLog{}
	}
	json.NewEncoder(w).Encode(logs)
}

// Profile handlers

func (h *APIHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)

	profile, err := h.dbStore.GetProfile(deviceID)
	if err != nil {
		log.Printf("Error getting profile for device %s: %v", deviceID, err)
		http.Error(w, "Failed to get profile", http.StatusInternalServerError)
		return
	}
	if profile == nil {
		profile = &store.Profile{}
	}
	json.NewEncoder(w).Encode(profile)
}

func (h *APIHandler) PutProfileHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)

	var profile store.Profile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.dbStore.UpsertProfile(deviceID, &profile); err != nil {
		log.Printf("Error saving profile for device %s: %v", deviceID, err)
		http.Error(w, "Failed to save profile", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(profile)
}

// Settings handlers

func (h *APIHandler) GetSettingsHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)

	settings, err := h.dbStore.GetSettings(deviceID)
	if err != nil {
		log.Printf("Error getting settings for device %s: %v", deviceID, err)
		http.Error(w, "Failed to get settings", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(settings)
}

func (h *APIHandler) PutSettingsHandler(w http.ResponseWriter, r *http.Request) {
	deviceID := r.Context().Value("deviceID").(string)

	var settings store.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	settings.DeviceID = deviceID

	switch settings.ConsentLevel {
	case store.ConsentEssential, store.ConsentEnhanced, store.ConsentComplete:
	default:
		http.Error(w, "Consent level must be essential, enhanced or complete", http.StatusBadRequest)
		return
	}

	if err := h.dbStore.UpsertSettings(&settings); err != nil {
		log.Printf("Error saving settings for device %s: %v", deviceID, err)
		http.Error(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(settings)
}

func listLimit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			return limit
		}
	}
	return defaultListLimit
}
