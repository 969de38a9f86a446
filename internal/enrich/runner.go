package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"geoflow/internal/domain"
	"geoflow/internal/platform/metrics"
	"geoflow/internal/request"
)

// Runner binds a change-event feed to reconciliation runs. Each dispatched
// event becomes an independent run, with parallelism bounded by a weighted
// semaphore (the hosting pool in the original deployment was capped at 5
// simultaneous instances).
type Runner struct {
	reconciler *Reconciler
	ledger     *request.Ledger
	events     <-chan domain.ChangeEvent
	logger     *slog.Logger
	metrics    *metrics.Metrics
	sem        *semaphore.Weighted
}

// NewRunner constructs a Runner. maxConcurrent values below 1 are clamped.
func NewRunner(reconciler *Reconciler, ledger *request.Ledger, events <-chan domain.ChangeEvent, logger *slog.Logger, m *metrics.Metrics, maxConcurrent int) *Runner {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Runner{
		reconciler: reconciler,
		ledger:     ledger,
		events:     events,
		logger:     logger,
		metrics:    m,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Run consumes events until ctx is done or the feed closes. It waits for
// in-flight reconciliations before returning.
func (r *Runner) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-r.events:
			if !ok {
				return nil
			}
			req, dispatch := Decide(ev)
			if !dispatch {
				r.metrics.ObserveEvent(string(ev.Kind), "skipped")
				continue
			}
			r.metrics.ObserveEvent(string(ev.Kind), "dispatched")

			if err := r.sem.Acquire(ctx, 1); err != nil {
				return err
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer r.sem.Release(1)
				r.runOne(ctx, ev.ID, req)
			}()
		}
	}
}

// runOne executes a single reconciliation. A panic inside the run is
// converted to a GENERIC_ERROR ledger entry when a request id exists; the
// trigger layer must survive anything a run throws.
func (r *Runner) runOne(ctx context.Context, eventID string, req Request) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("reconciliation panicked",
				"eventId", eventID, "userId", req.UserID, "panic", rec)
			if req.RequestID != "" {
				err := r.ledger.Record(ctx, req.RequestID, domain.Outcome{
					Status:          domain.StatusError,
					ErrorCode:       domain.CodeGenericError,
					ErrorMessage:    fmt.Sprintf("internal error: %v", rec),
					RequesterUserID: req.RequesterID,
				})
				if err != nil {
					r.logger.Error("record panic outcome", "requestId", req.RequestID, "error", err)
				}
			}
			r.metrics.ObserveRun("panic")
		}
	}()

	outcome := r.reconciler.Reconcile(ctx, req)
	if outcome.IsZero() {
		return
	}
	r.logger.Debug("reconciliation finished",
		"eventId", eventID, "userId", req.UserID, "status", string(outcome.Status))
}
