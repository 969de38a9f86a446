package request

import (
	"context"
	"time"

	"geoflow/internal/domain"
)

// Store persists one outcome per request id. Set is a full overwrite of the
// record at /requests/{id}.
type Store interface {
	Set(ctx context.Context, requestID string, outcome domain.Outcome) error
	Get(ctx context.Context, requestID string) (domain.Outcome, error)
}

// Clock is injected for testability; defaults to time.Now.
type Clock func() time.Time

// Ledger records the auditable outcome of every enrichment attempt. Entries
// are keyed by the caller-supplied request id and polled by the UI, so a
// re-recorded id overwrites rather than accumulates.
type Ledger struct {
	store Store
	clock Clock
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock sets the write-time clock.
func WithClock(clock Clock) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// NewLedger constructs a Ledger over the given store.
func NewLedger(store Store, opts ...Option) *Ledger {
	l := &Ledger{store: store, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Record stamps the outcome with the write-time clock and overwrites the
// entry at requestID.
func (l *Ledger) Record(ctx context.Context, requestID string, outcome domain.Outcome) error {
	if outcome.Timestamp.IsZero() {
		outcome.Timestamp = l.clock()
	}
	return l.store.Set(ctx, requestID, outcome)
}

// Get returns the recorded outcome for a request id.
func (l *Ledger) Get(ctx context.Context, requestID string) (domain.Outcome, error) {
	return l.store.Get(ctx, requestID)
}
