package store

import (
	"time"

	"calmcoach.app/backend/internal/provider"
)

// Device is an anonymous client installation. There are no accounts or
// passwords; a device registers once and all persisted state hangs off its id.
type Device struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// ConsentLevel gates how much profile data may flow into prompts.
type ConsentLevel string

const (
	ConsentEssential ConsentLevel = "essential"
	ConsentEnhanced  ConsentLevel = "enhanced"
	ConsentComplete  ConsentLevel = "complete"
)

// AllowsPersonalization reports whether profile-derived hints may be used.
func (c ConsentLevel) AllowsPersonalization() bool {
	return c == ConsentEnhanced || c == ConsentComplete
}

// Profile holds the self-reported fields used for personalization. Every
// field is optional; absent fields simply produce no prompt hint.
type Profile struct {
	Age                 *int     `json:"age,omitempty"`
	Location            *string  `json:"location,omitempty"`
	SleepHours          *float64 `json:"sleep_hours,omitempty"`
	CaffeineIntake      *string  `json:"caffeine_intake,omitempty"`
	WorkEnvironment     *string  `json:"work_environment,omitempty"`
	NatureAccess        *string  `json:"nature_access,omitempty"`
	ActivityLevel       *string  `json:"activity_level,omitempty"`
	CopingStyles        []string `json:"coping_styles,omitempty"`
	LearningModality    *string  `json:"learning_modality,omitempty"`
	DiagnosedConditions *string  `json:"diagnosed_conditions,omitempty"`
}

// FeedbackEntry is one rating of one generated exercise. A device holds at
// most one entry per exercise id; re-rating replaces it and clearing deletes it.
type FeedbackEntry struct {
	ExerciseID string    `json:"exercise_id"`
	Rating     int       `json:"rating"` // 1..5
	Title      string    `json:"title"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PlanHistoryEntry is one generated plan, appended to the device's history.
// IDs are ULIDs, so they carry their creation time and sort roughly
// chronologically.
type PlanHistoryEntry struct {
	ID           string              `json:"id"`
	DeviceID     string              `json:"-"`
	UserInput    string              `json:"user_input"`
	Exercises    []provider.Exercise `json:"generated_exercises"`
	Sources      []provider.Source   `json:"sources,omitempty"`
	CalmImageURL string              `json:"calm_image_url,omitempty"`
	CreatedAt    time.Time           `json:"timestamp"`
}

// ExerciseCompletion records that a device finished an exercise.
type ExerciseCompletion struct {
	ID          int64             `json:"id"`
	DeviceID    string            `json:"-"`
	ExerciseID  string            `json:"exercise_id"`
	Title       string            `json:"title"`
	Category    provider.Category `json:"category"`
	CompletedAt time.Time         `json:"completed_at"`
}

// JournalEntry is one free-text journal note plus the reflection the
// analysis call produced for it.
type JournalEntry struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"-"`
	Content    string    `json:"content"`
	Reflection string    `json:"reflection,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// MoodLog is a single mood check-in on a 1 (low) to 5 (calm) scale.
type MoodLog struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"-"`
	Mood      int       `json:"mood"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Settings is the device's app state that the original client kept in local
// storage: consent, display language, theme, onboarding flag, chosen
// provider/model/key and program progress.
type Settings struct {
	DeviceID        string       `json:"-"`
	ConsentLevel    ConsentLevel `json:"consent_level"`
	Language        string       `json:"language"`
	Theme           string       `json:"theme"`
	Onboarded       bool         `json:"onboarded"`
	Provider        string       `json:"provider"`
	Model           string       `json:"model"`
	APIKey          string       `json:"api_key,omitempty"`
	ProgramProgress int          `json:"program_progress"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// DefaultSettings is what a device gets before it ever saves settings.
func DefaultSettings(deviceID string) *Settings {
	return &Settings{
		DeviceID:     deviceID,
		ConsentLevel: ConsentEssential,
		Language:     "en",
		Theme:        "light",
		Provider:     "gemini",
	}
}
