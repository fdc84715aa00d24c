package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/oklog/ulid/v2"

	"calmcoach.app/backend/internal/provider"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS devices (
        id TEXT PRIMARY KEY,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS profiles (
        device_id TEXT PRIMARY KEY,
        payload TEXT NOT NULL, -- profile fields as a JSON blob
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (device_id) REFERENCES devices (id)
    );

    CREATE TABLE IF NOT EXISTS settings (
        device_id TEXT PRIMARY KEY,
        consent_level TEXT NOT NULL DEFAULT 'essential',
        language TEXT NOT NULL DEFAULT 'en',
        theme TEXT NOT NULL DEFAULT 'light',
        onboarded BOOLEAN NOT NULL DEFAULT FALSE,
        provider TEXT NOT NULL DEFAULT 'gemini',
        model TEXT NOT NULL DEFAULT '',
        api_key TEXT NOT NULL DEFAULT '',
        program_progress INTEGER NOT NULL DEFAULT 0,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (device_id) REFERENCES devices (id)
    );

    CREATE TABLE IF NOT EXISTS exercise_feedback (
        device_id TEXT NOT NULL,
        exercise_id TEXT NOT NULL,
        rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
        title TEXT NOT NULL,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (device_id, exercise_id),
        FOREIGN KEY (device_id) REFERENCES devices (id)
    );

    CREATE TABLE IF NOT EXISTS plan_history (
        id TEXT PRIMARY KEY, -- ULID, time-ordered
        device_id TEXT NOT NULL,
        user_input TEXT NOT NULL,
        exercises_json TEXT NOT NULL,
        sources_json TEXT,
        calm_image_url TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (device_id) REFERENCES devices (id)
    );

    CREATE TABLE IF NOT EXISTS exercise_completions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        device_id TEXT NOT NULL,
        exercise_id TEXT NOT NULL,
        title TEXT NOT NULL,
        category TEXT NOT NULL,
        completed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (device_id) REFERENCES devices (id)
    );

    CREATE TABLE IF NOT EXISTS journal_entries (
        id TEXT PRIMARY KEY, -- UUID
        device_id TEXT NOT NULL,
        content TEXT NOT NULL,
        reflection TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (device_id) REFERENCES devices (id)
    );

    CREATE TABLE IF NOT EXISTS mood_logs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        device_id TEXT NOT NULL,
        mood INTEGER NOT NULL CHECK (mood BETWEEN 1 AND 5),
        note TEXT NOT NULL DEFAULT '',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (device_id) REFERENCES devices (id)
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// Device methods

func (s *SQLiteStore) GetOrCreateDevice(deviceID string) (*Device, error) {
	var device Device
	err := s.db.QueryRow("SELECT id, created_at FROM devices WHERE id = ?", deviceID).Scan(&device.ID, &device.CreatedAt)
	if err == nil {
		return &device, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query device: %w", err)
	}

	now := time.Now()
	if _, err := s.db.Exec("INSERT INTO devices (id, created_at) VALUES (?, ?)", deviceID, now); err != nil {
		return nil, fmt.Errorf("failed to insert device: %w", err)
	}
	return &Device{ID: deviceID, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetDevice(deviceID string) (*Device, error) {
	var device Device
	err := s.db.QueryRow("SELECT id, created_at FROM devices WHERE id = ?", deviceID).Scan(&device.ID, &device.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Device not found
		}
		return nil, fmt.Errorf("failed to query device: %w", err)
	}
	return &device, nil
}

// Profile methods

func (s *SQLiteStore) UpsertProfile(deviceID string, profile *Profile) error {
	payload, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO profiles (device_id, payload, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(device_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		deviceID, string(payload), time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetProfile(deviceID string) (*Profile, error) {
	var payload string
	err := s.db.QueryRow("SELECT payload FROM profiles WHERE device_id = ?", deviceID).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No profile saved yet
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	var profile Profile
	if err := json.Unmarshal([]byte(payload), &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &profile, nil
}

// Settings methods

func (s *SQLiteStore) UpsertSettings(settings *Settings) error {
	settings.UpdatedAt = time.Now()
	_, err := s.db.Exec(`INSERT INTO settings
        (device_id, consent_level, language, theme, onboarded, provider, model, api_key, program_progress, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(device_id) DO UPDATE SET
            consent_level = excluded.consent_level,
            language = excluded.language,
            theme = excluded.theme,
            onboarded = excluded.onboarded,
            provider = excluded.provider,
            model = excluded.model,
            api_key = excluded.api_key,
            program_progress = excluded.program_progress,
            updated_at = excluded.updated_at`,
		settings.DeviceID, settings.ConsentLevel, settings.Language, settings.Theme, settings.Onboarded,
		settings.Provider, settings.Model, settings.APIKey, settings.ProgramProgress, settings.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}
	return nil
}

// GetSettings returns the device's settings, or defaults if nothing was saved.
func (s *SQLiteStore) GetSettings(deviceID string) (*Settings, error) {
	var settings Settings
	err := s.db.QueryRow(`SELECT device_id, consent_level, language, theme, onboarded, provider, model, api_key, program_progress, updated_at
        FROM settings WHERE device_id = ?`, deviceID).Scan(
		&settings.DeviceID, &settings.ConsentLevel, &settings.Language, &settings.Theme, &settings.Onboarded,
		&settings.Provider, &settings.Model, &settings.APIKey, &settings.ProgramProgress, &settings.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return DefaultSettings(deviceID), nil
		}
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	return &settings, nil
}

// Feedback methods

// SetFeedback stores a rating, replacing any previous rating for the same
// exercise id.
func (s *SQLiteStore) SetFeedback(deviceID string, entry FeedbackEntry) error {
	_, err := s.db.Exec(`INSERT INTO exercise_feedback (device_id, exercise_id, rating, title, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(device_id, exercise_id) DO UPDATE SET
            rating = excluded.rating, title = excluded.title, updated_at = excluded.updated_at`,
		deviceID, entry.ExerciseID, entry.Rating, entry.Title, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert feedback: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ClearFeedback(deviceID, exerciseID string) error {
	_, err := s.db.Exec("DELETE FROM exercise_feedback WHERE device_id = ? AND exercise_id = ?", deviceID, exerciseID)
	if err != nil {
		return fmt.Errorf("failed to clear feedback: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetFeedback(deviceID string) ([]FeedbackEntry, error) {
	rows, err := s.db.Query(`SELECT exercise_id, rating, title, updated_at
        FROM exercise_feedback WHERE device_id = ? ORDER BY updated_at DESC`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var entries []FeedbackEntry
	for rows.Next() {
		var entry FeedbackEntry
		if err := rows.Scan(&entry.ExerciseID, &entry.Rating, &entry.Title, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Plan history methods

// AppendPlanHistory assigns the entry a ULID and timestamp and inserts it.
// History is append-only; entries are never updated.
func (s *SQLiteStore) AppendPlanHistory(entry *PlanHistoryEntry) error {
	entry.ID = ulid.Make().String()
	entry.CreatedAt = time.Now()

	exercisesJSON, err := json.Marshal(entry.Exercises)
	if err != nil {
		return fmt.Errorf("failed to marshal exercises: %w", err)
	}
	sourcesJSON, err := json.Marshal(entry.Sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}

	stmt, err := s.db.Prepare(`INSERT INTO plan_history
        (id, device_id, user_input, exercises_json, sources_json, calm_image_url, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare history insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(entry.ID, entry.DeviceID, entry.UserInput, string(exercisesJSON), string(sourcesJSON), entry.CalmImageURL, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to execute history insert: %w", err)
	}
	return nil
}

// GetPlanHistory lists entries newest first, matching the client's
// prepend-to-list behavior.
func (s *SQLiteStore) GetPlanHistory(deviceID string, limit int) ([]PlanHistoryEntry, error) {
	rows, err := s.db.Query(`SELECT id, device_id, user_input, exercises_json, sources_json, calm_image_url, created_at
        FROM plan_history WHERE device_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query plan history: %w", err)
	}
	defer rows.Close()

	var entries []PlanHistoryEntry
	for rows.Next() {
		entry, err := scanPlanHistoryRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) GetPlanHistoryEntry(id, deviceID string) (*PlanHistoryEntry, error) {
	row := s.db.QueryRow(`SELECT id, device_id, user_input, exercises_json, sources_json, calm_image_url, created_at
        FROM plan_history WHERE id = ? AND device_id = ?`, id, deviceID)

	entry, err := scanPlanHistoryRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Entry not found
		}
		return nil, err
	}
	return entry, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlanHistoryRow(row rowScanner) (*PlanHistoryEntry, error) {
	var entry PlanHistoryEntry
	var exercisesJSON string
	var sourcesJSON, calmImageURL sql.NullString

	err := row.Scan(&entry.ID, &entry.DeviceID, &entry.UserInput, &exercisesJSON, &sourcesJSON, &calmImageURL, &entry.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan plan history row: %w", err)
	}

	if err := json.Unmarshal([]byte(exercisesJSON), &entry.Exercises); err != nil {
		return nil, fmt.Errorf("failed to unmarshal exercises for entry %s: %w", entry.ID, err)
	}
	if sourcesJSON.Valid && sourcesJSON.String != "" && sourcesJSON.String != "null" {
		if err := json.Unmarshal([]byte(sourcesJSON.String), &entry.Sources); err != nil {
			return nil, fmt.Errorf("failed to unmarshal sources for entry %s: %w", entry.ID, err)
		}
	}
	entry.CalmImageURL = calmImageURL.String
	return &entry, nil
}

// Completion methods

func (s *SQLiteStore) AddCompletion(completion *ExerciseCompletion) error {
	completion.CompletedAt = time.Now()
	res, err := s.db.Exec(`INSERT INTO exercise_completions (device_id, exercise_id, title, category, completed_at)
        VALUES (?, ?, ?, ?, ?)`,
		completion.DeviceID, completion.ExerciseID, completion.Title, completion.Category, completion.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to insert completion: %w", err)
	}
	completion.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) GetCompletions(deviceID string, limit int) ([]ExerciseCompletion, error) {
	rows, err := s.db.Query(`SELECT id, device_id, exercise_id, title, category, completed_at
        FROM exercise_completions WHERE device_id = ? ORDER BY completed_at DESC, id DESC LIMIT ?`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query completions: %w", err)
	}
	defer rows.Close()

	var completions []ExerciseCompletion
	for rows.Next() {
		var c ExerciseCompletion
		var category string
		if err := rows.Scan(&c.ID, &c.DeviceID, &c.ExerciseID, &c.Title, &category, &c.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan completion row: %w", err)
		}
		c.Category = provider.Category(category)
		completions = append(completions, c)
	}
	return completions, rows.Err()
}

// Journal methods

func (s *SQLiteStore) CreateJournalEntry(entry *JournalEntry) error {
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now()
	_, err := s.db.Exec(`INSERT INTO journal_entries (id, device_id, content, reflection, created_at)
        VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.DeviceID, entry.Content, entry.Reflection, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert journal entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetJournalEntries(deviceID string, limit int) ([]JournalEntry, error) {
	rows, err := s.db.Query(`SELECT id, device_id, content, reflection, created_at
        FROM journal_entries WHERE device_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal entries: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var entry JournalEntry
		if err := rows.Scan(&entry.ID, &entry.DeviceID, &entry.Content, &entry.Reflection, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Mood methods

func (s *SQLiteStore) AddMoodLog(mood *MoodLog) error {
	mood.CreatedAt = time.Now()
	res, err := s.db.Exec(`INSERT INTO mood_logs (device_id, mood, note, created_at) VALUES (?, ?, ?, ?)`,
		mood.DeviceID, mood.Mood, mood.Note, mood.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert mood log: %w", err)
	}
	mood.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) GetMoodLogs(deviceID string, limit int) ([]MoodLog, error) {
	rows, err := s.db.Query(`SELECT id, device_id, mood, note, created_at
        FROM mood_logs WHERE device_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query mood logs: %w", err)
	}
	defer rows.Close()

	var logs []MoodLog
	for rows.Next() {
		var m MoodLog
		if err := rows.Scan(&m.ID, &m.DeviceID, &m.Mood, &m.Note, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan mood row: %w", err)
		}
		logs = append(logs, m)
	}
	return logs, rows.Err()
}
