package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"geoflow/internal/domain"
	"geoflow/internal/geocode"
	"geoflow/internal/platform/metrics"
	"geoflow/internal/request"
	"geoflow/internal/user"
)

// Reconciler drives one enrichment attempt to a terminal outcome:
// validate the snapshot, look the postal code up, merge the geo data back,
// and record the result in the request ledger. Every invocation is a single
// best-effort pass; there are no retries and no cross-run coordination.
type Reconciler struct {
	users    user.Store
	ledger   *request.Ledger
	geocoder geocode.Client
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// NewReconciler wires the reconciler's collaborators.
func NewReconciler(users user.Store, ledger *request.Ledger, geocoder geocode.Client, logger *slog.Logger, m *metrics.Metrics) *Reconciler {
	return &Reconciler{
		users:    users,
		ledger:   ledger,
		geocoder: geocoder,
		logger:   logger,
		metrics:  m,
		tracer:   otel.Tracer("geoflow/enrich"),
	}
}

// Reconcile runs the state machine over one record snapshot. It never
// returns an error: every failure is converted into a ledger entry, so the
// trigger layer can never fail the underlying store write. The returned
// outcome is zero only on the no-request-id short circuit.
func (r *Reconciler) Reconcile(ctx context.Context, req Request) domain.Outcome {
	ctx, span := r.tracer.Start(ctx, "enrich.reconcile",
		trace.WithAttributes(attribute.String("user.id", req.UserID)))
	defer span.End()

	log := r.logger.With("userId", req.UserID, "requestId", req.RequestID)

	// A record without a request id never asked for enrichment. Remove it
	// and stop; this branch deliberately writes no ledger entry.
	if req.User.LastRequestID == "" {
		if err := r.users.Delete(ctx, req.UserID); err != nil {
			log.Error("delete user without request id", "error", err)
		}
		log.Debug("no request id on record, enrichment not requested")
		r.metrics.ObserveRun("skipped")
		span.SetAttributes(attribute.String("enrich.result", "skipped"))
		return domain.Outcome{}
	}

	if req.User.Name == "" || req.User.Zip == "" {
		msg := fmt.Sprintf("request %s is missing one of the required fields: 'name', 'zip'", req.RequestID)
		return r.fail(ctx, req, domain.CodeMissingReqAttr, msg, log, span)
	}

	geo, err := r.geocoder.Lookup(ctx, req.User.Zip)
	if err != nil {
		switch geocode.CategoryOf(err) {
		case geocode.CategoryNotFound:
			return r.fail(ctx, req, domain.CodeInvalidZip, geocode.MessageOf(err), log, span)
		case geocode.CategoryUnauthorized:
			return r.fail(ctx, req, domain.CodeInvalidAPIKey, "", log, span)
		default:
			return r.fail(ctx, req, domain.CodeGenericError, err.Error(), log, span)
		}
	}

	if err := r.users.UpsertGeoData(ctx, req.UserID, geo); err != nil {
		return r.fail(ctx, req, domain.CodeGenericError, err.Error(), log, span)
	}

	outcome := domain.Outcome{
		Status:          domain.StatusSuccess,
		RequesterUserID: req.RequesterID,
	}
	if err := r.ledger.Record(ctx, req.RequestID, outcome); err != nil {
		// The record is already enriched; a lost ledger write is the known
		// crash window between the two non-atomic writes.
		log.Error("record success outcome", "error", err)
	}

	log.Info("enrichment succeeded", "city", geo.CityName)
	r.metrics.ObserveRun("success")
	span.SetAttributes(attribute.String("enrich.result", "success"))
	return outcome
}

// fail records the error outcome, deletes the user record so the UI forces a
// re-submission, and returns the outcome. Secondary failures are logged but
// never escalate.
func (r *Reconciler) fail(ctx context.Context, req Request, code domain.ErrorCode, message string, log *slog.Logger, span trace.Span) domain.Outcome {
	outcome := domain.Outcome{
		Status:          domain.StatusError,
		ErrorCode:       code,
		ErrorMessage:    message,
		RequesterUserID: req.RequesterID,
	}
	if err := r.ledger.Record(ctx, req.RequestID, outcome); err != nil {
		log.Error("record error outcome", "code", code, "error", err)
	}
	if err := r.users.Delete(ctx, req.UserID); err != nil {
		log.Error("delete user after failed enrichment", "error", err)
	}

	log.Warn("enrichment failed", "code", code, "message", message)
	r.metrics.ObserveRun("error")
	span.SetAttributes(
		attribute.String("enrich.result", "error"),
		attribute.String("enrich.error_code", string(code)),
	)
	return outcome
}
