package user

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"geoflow/internal/domain"
	"geoflow/pkg/platform/sentinel"
)

// MemoryStore is a map-backed user store. It also fans mutation events out
// to subscribers, so it doubles as the change feed in tests and in
// WATCH_MODE=memory wiring.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
	subs  []chan domain.ChangeEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]domain.User)}
}

// Watch registers a subscriber for mutation events. Slow subscribers drop
// events once their buffer fills; the store never blocks a writer.
func (s *MemoryStore) Watch() <-chan domain.ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan domain.ChangeEvent, 64)
	s.subs = append(s.subs, ch)
	return ch
}

// Close closes all subscriber channels.
func (s *MemoryStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
}

func (s *MemoryStore) FindByID(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, fmt.Errorf("find user %s: %w", userID, sentinel.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) Put(_ context.Context, userID string, u domain.User) error {
	s.mu.Lock()
	prev, existed := s.users[userID]
	s.users[userID] = cloneUser(u)
	subs := append([]chan domain.ChangeEvent(nil), s.subs...)
	s.mu.Unlock()

	ev := domain.ChangeEvent{
		ID:     uuid.NewString(),
		Kind:   domain.ChangeCreate,
		UserID: userID,
		After:  ptr(cloneUser(u)),
	}
	if existed {
		ev.Kind = domain.ChangeUpdate
		ev.Before = ptr(cloneUser(prev))
	}
	emit(subs, ev)
	return nil
}

func (s *MemoryStore) UpsertGeoData(_ context.Context, userID string, geo domain.GeoData) error {
	s.mu.Lock()
	prev, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	next := cloneUser(prev)
	next.GeoData = &geo
	s.users[userID] = next
	subs := append([]chan domain.ChangeEvent(nil), s.subs...)
	s.mu.Unlock()

	emit(subs, domain.ChangeEvent{
		ID:     uuid.NewString(),
		Kind:   domain.ChangeUpdate,
		UserID: userID,
		Before: ptr(cloneUser(prev)),
		After:  ptr(cloneUser(next)),
	})
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	prev, existed := s.users[userID]
	delete(s.users, userID)
	subs := append([]chan domain.ChangeEvent(nil), s.subs...)
	s.mu.Unlock()

	if !existed {
		return nil
	}
	emit(subs, domain.ChangeEvent{
		ID:     uuid.NewString(),
		Kind:   domain.ChangeDelete,
		UserID: userID,
		Before: ptr(cloneUser(prev)),
	})
	return nil
}

func emit(subs []chan domain.ChangeEvent, ev domain.ChangeEvent) {
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func cloneUser(u domain.User) domain.User {
	if u.GeoData != nil {
		geo := *u.GeoData
		u.GeoData = &geo
	}
	return u
}

func ptr(u domain.User) *domain.User {
	return &u
}
