package request

import (
	"context"
	"fmt"
	"sync"

	"geoflow/internal/domain"
	"geoflow/pkg/platform/sentinel"
)

// MemoryStore keeps outcomes in a map. Used in tests and memory wiring.
type MemoryStore struct {
	mu       sync.RWMutex
	outcomes map[string]domain.Outcome
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{outcomes: make(map[string]domain.Outcome)}
}

func (s *MemoryStore) Set(_ context.Context, requestID string, outcome domain.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[requestID] = outcome
	return nil
}

func (s *MemoryStore) Get(_ context.Context, requestID string) (domain.Outcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	outcome, ok := s.outcomes[requestID]
	if !ok {
		return domain.Outcome{}, fmt.Errorf("get request %s: %w", requestID, sentinel.ErrNotFound)
	}
	return outcome, nil
}

// Len reports how many distinct request ids have been recorded.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outcomes)
}
