package history

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/deckpilot/internal/policy"
)

type Options struct {
	DatabaseURL string
	RedisURL    string
	// PerSession caps the redis list kept for each session.
	PerSession int
	TTL        time.Duration
}

// NewStore picks postgres, then redis, then in-memory, based on which URL is
// configured. Every backend receives redacted transcripts.
func NewStore(ctx context.Context, opts Options) (Store, error) {
	var (
		inner Store
		err   error
	)
	switch {
	case strings.TrimSpace(opts.DatabaseURL) != "":
		inner, err = NewPostgresStore(ctx, opts.DatabaseURL)
	case strings.TrimSpace(opts.RedisURL) != "":
		inner, err = NewRedisStore(ctx, opts.RedisURL, opts.PerSession, opts.TTL)
	default:
		inner = NewInMemoryStore(opts.PerSession)
	}
	if err != nil {
		return nil, err
	}
	return Redacting(inner), nil
}

// Redacting wraps a store so transcripts and messages pass through
// policy.RedactPII before they are written.
func Redacting(s Store) Store {
	return redactingStore{Store: s}
}

type redactingStore struct {
	Store
}

func (s redactingStore) Record(ctx context.Context, e Entry) error {
	return s.Store.Record(ctx, prepare(e))
}

func prepare(e Entry) Entry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	var changedT, changedM bool
	e.Transcript, changedT = policy.RedactPII(e.Transcript)
	e.Message, changedM = policy.RedactPII(e.Message)
	e.PIIRedacted = e.PIIRedacted || changedT || changedM
	return e
}
