package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ent0n29/deckpilot/internal/command"
	"github.com/ent0n29/deckpilot/internal/deck"
)

var ErrEnded = errors.New("session ended")

// State is the per-conversation record the dispatch loop threads through
// every call. One cycle runs at a time; Acquire/Release bracket it.
type State struct {
	ID     string
	UserID string

	cycle chan struct{}
	pres  deck.Presentation
	ttl   time.Duration

	mu           sync.Mutex
	status       Status
	dispatch     DispatchState
	pending      *Clarification
	recent       *ring[RecentAction]
	stats        Stats
	startedAt    time.Time
	lastActivity time.Time
	endedAt      time.Time
	closeOnce    sync.Once
	closeErr     error
}

func newState(id, userID string, pres deck.Presentation, recentLimit int, ttl time.Duration) *State {
	now := time.Now().UTC()
	return &State{
		ID:           id,
		UserID:       userID,
		cycle:        make(chan struct{}, 1),
		pres:         pres,
		ttl:          ttl,
		status:       StatusActive,
		dispatch:     StateIdle,
		recent:       newRing[RecentAction](recentLimit),
		startedAt:    now,
		lastActivity: now,
	}
}

// NewState builds a standalone state around pres, outside any Manager.
func NewState(id string, pres deck.Presentation, recentLimit int) *State {
	return newState(id, "", pres, recentLimit, 0)
}

// Acquire blocks until no other cycle runs on this session.
func (s *State) Acquire(ctx context.Context) error {
	select {
	case s.cycle <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	if s.Ended() {
		s.Release()
		return ErrEnded
	}
	return nil
}

func (s *State) tryAcquire() bool {
	select {
	case s.cycle <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *State) Release() {
	select {
	case <-s.cycle:
	default:
	}
}

func (s *State) Presentation() deck.Presentation { return s.pres }

func (s *State) Dispatch() DispatchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatch
}

func (s *State) SetDispatch(d DispatchState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatch = d
}

func (s *State) Pending() (Clarification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Clarification{}, false
	}
	c := *s.pending
	c.Params = c.Params.Clone()
	return c, true
}

func (s *State) SetPending(c Clarification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Params = c.Params.Clone()
	s.pending = &c
	s.stats.Clarifications++
}

func (s *State) ClearPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// Record appends to the action log and updates counters.
func (s *State) Record(a RecentAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}
	s.recent.push(a)
	s.lastActivity = a.At
	s.stats.CommandsProcessed++
	switch a.Outcome {
	case OutcomeExecuted:
		s.stats.CommandsSucceeded++
	case OutcomeGenerated:
		s.stats.CommandsSucceeded++
		s.stats.Generations++
	case OutcomeFailed:
		s.stats.Failures++
	}
}

func (s *State) Recent() []RecentAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recent.items()
}

func (s *State) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *State) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now().UTC()
}

func (s *State) Ended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusEnded
}

// Close ends the session and closes its presentation. Only the first call
// does any work.
func (s *State) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.status = StatusEnded
		s.dispatch = StateIdle
		s.pending = nil
		s.endedAt = time.Now().UTC()
		s.mu.Unlock()
		if s.pres != nil {
			s.closeErr = s.pres.Close()
		}
	})
	return s.closeErr
}

func (s *State) Snapshot() Snapshot {
	var summary command.Summary
	if s.pres != nil {
		summary = s.pres.Summary()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		SessionID:       s.ID,
		UserID:          s.UserID,
		Status:          s.status,
		DispatchState:   s.dispatch,
		Recent:          s.recent.items(),
		Stats:           s.stats,
		Deck:            summary,
		StartedAt:       s.startedAt,
		LastActivityAt:  s.lastActivity,
		InactivityTTLMS: s.ttl.Milliseconds(),
	}
	if s.pending != nil {
		p := *s.pending
		snap.Pending = &p
	}
	return snap
}

func (s *State) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActivity)
}

func (s *State) endedBefore(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == StatusEnded && !s.endedAt.IsZero() && s.endedAt.Before(t)
}
