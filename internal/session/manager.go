package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ent0n29/deckpilot/internal/deck"
)

var (
	ErrNotFound = errors.New("session not found")
	// ErrInit wraps a presentation that failed to open for a new session.
	ErrInit = errors.New("session init failed")
)

type Options struct {
	InactivityTimeout time.Duration
	// Retention is how long ended sessions stay readable before they are purged.
	Retention   time.Duration
	RecentLimit int
	Logger      *zap.Logger
}

type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*State
	opener            deck.Opener
	inactivityTimeout time.Duration
	retention         time.Duration
	recentLimit       int
	onExpire          func(*State)
	logger            *zap.Logger
}

func NewManager(opener deck.Opener, opts Options) *Manager {
	if opts.InactivityTimeout <= 0 {
		opts.InactivityTimeout = 10 * time.Minute
	}
	if opts.Retention <= 0 {
		opts.Retention = 10 * time.Minute
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 20
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Manager{
		sessions:          make(map[string]*State),
		opener:            opener,
		inactivityTimeout: opts.InactivityTimeout,
		retention:         opts.Retention,
		recentLimit:       opts.RecentLimit,
		logger:            opts.Logger,
	}
}

func (m *Manager) SetExpireHook(hook func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Create starts a session. A request naming an id that is already active
// returns that session.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*State, error) {
	id := req.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok && !s.Ended() {
		return s, nil
	}

	pres, err := m.opener.Open(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInit, err)
	}
	s := newState(id, req.UserID, pres, m.recentLimit, m.inactivityTimeout)
	m.sessions[id] = s
	m.logger.Info("session created", zap.String("session_id", id))
	return s, nil
}

// Open returns the active session with id, creating it on first sight.
func (m *Manager) Open(ctx context.Context, id string) (*State, error) {
	return m.Create(ctx, CreateRequest{SessionID: id})
}

func (m *Manager) Get(sessionID string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// End closes the session's presentation. The state stays readable until the
// retention window passes.
func (m *Manager) End(sessionID string) (*State, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.Close(); err != nil {
		return s, fmt.Errorf("close presentation: %w", err)
	}
	return s, nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if !s.Ended() {
			count++
		}
	}
	return count
}

// CloseAll ends every session, for shutdown.
func (m *Manager) CloseAll() error {
	m.mu.RLock()
	states := make([]*State, 0, len(m.sessions))
	for _, s := range m.sessions {
		states = append(states, s)
	}
	m.mu.RUnlock()

	var errs []error
	for _, s := range states {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*State

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.endedBefore(now.Add(-m.retention)) {
			delete(m.sessions, id)
			continue
		}
		if s.Ended() || s.idleSince(now) < m.inactivityTimeout {
			continue
		}
		// A running cycle counts as activity.
		if !s.tryAcquire() {
			continue
		}
		expired = append(expired, s)
	}
	hook := m.onExpire
	m.mu.Unlock()

	for _, s := range expired {
		if err := s.Close(); err != nil {
			m.logger.Warn("close expired session", zap.String("session_id", s.ID), zap.Error(err))
		}
		s.Release()
		if hook != nil {
			hook(s)
		}
	}
}
