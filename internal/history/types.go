package history

import (
	"context"
	"time"
)

// Entry is one dispatched command as persisted in the action log.
type Entry struct {
	ID           string    `json:"id"`
	SessionID    string    `json:"session_id"`
	TranscriptID string    `json:"transcript_id"`
	Transcript   string    `json:"transcript"`
	Source       string    `json:"source"`
	Intent       string    `json:"intent"`
	Confidence   float64   `json:"confidence"`
	ActionID     string    `json:"action_id,omitempty"`
	Outcome      string    `json:"outcome"`
	Message      string    `json:"message,omitempty"`
	PIIRedacted  bool      `json:"pii_redacted"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists and retrieves a session's command history.
type Store interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error)
	Close() error
}
