package domain

import "time"

// Status is the terminal result of one reconciliation run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrorCode classifies a failed run for the polling UI.
type ErrorCode string

const (
	CodeInvalidZip     ErrorCode = "INVALID_ZIP"
	CodeInvalidAPIKey  ErrorCode = "INVALID_API_KEY"
	CodeMissingReqAttr ErrorCode = "MISSING_REQ_ATTR"
	CodeGenericError   ErrorCode = "GENERIC_ERROR"
)

// Outcome is the ledger record for one enrichment request. Exactly one
// outcome exists per request id; recording again overwrites it.
type Outcome struct {
	Status          Status
	ErrorCode       ErrorCode
	ErrorMessage    string
	RequesterUserID string
	Timestamp       time.Time
}

// IsZero reports whether no outcome was produced, which only happens on the
// no-request-id short circuit.
func (o Outcome) IsZero() bool {
	return o.Status == ""
}
