package history

import (
	"context"
	"sync"
)

// InMemoryStore is a simple in-process history store for local/dev use.
type InMemoryStore struct {
	mu         sync.RWMutex
	perSession int
	records    map[string][]Entry
}

func NewInMemoryStore(perSession int) *InMemoryStore {
	if perSession <= 0 {
		perSession = 500
	}
	return &InMemoryStore{perSession: perSession, records: make(map[string][]Entry)}
}

func (s *InMemoryStore) Record(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	arr := append(s.records[e.SessionID], e)
	if len(arr) > s.perSession {
		arr = append([]Entry(nil), arr[len(arr)-s.perSession:]...)
	}
	s.records[e.SessionID] = arr
	return nil
}

func (s *InMemoryStore) Recent(_ context.Context, sessionID string, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.records[sessionID]
	if len(arr) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > len(arr) {
		limit = len(arr)
	}
	out := make([]Entry, 0, limit)
	for i := len(arr) - limit; i < len(arr); i++ {
		out = append(out, arr[i])
	}
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }
