package watch

import (
	"context"

	"geoflow/internal/domain"
	"geoflow/internal/user"
)

// Watcher is a source of user-record change events. Run blocks until the
// context is canceled; Events is closed when the feed ends.
type Watcher interface {
	Events() <-chan domain.ChangeEvent
	Run(ctx context.Context) error
}

// MemoryWatcher exposes a MemoryStore's native change notifications as a
// Watcher. Used by tests and the memory wiring mode.
type MemoryWatcher struct {
	events <-chan domain.ChangeEvent
}

func NewMemoryWatcher(store *user.MemoryStore) *MemoryWatcher {
	return &MemoryWatcher{events: store.Watch()}
}

func (w *MemoryWatcher) Events() <-chan domain.ChangeEvent {
	return w.events
}

func (w *MemoryWatcher) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
