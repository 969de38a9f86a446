package geocode

import (
	"errors"
	"fmt"
)

// Category normalizes upstream rejections so the reconciler can map them to
// ledger error codes without inspecting HTTP details.
type Category string

const (
	// CategoryNotFound means the upstream does not know the postal code.
	CategoryNotFound Category = "not_found"

	// CategoryUnauthorized means the credential was rejected.
	CategoryUnauthorized Category = "unauthorized"

	// CategoryOther covers transport failures, malformed responses and
	// unexpected statuses.
	CategoryOther Category = "other"
)

// UpstreamError wraps a categorized rejection from the geocoding service.
type UpstreamError struct {
	Category Category
	Message  string
	Status   int
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("geocode upstream [%s]: %s", e.Category, e.Message)
	}
	return fmt.Sprintf("geocode upstream [%s]: status %d", e.Category, e.Status)
}

// CategoryOf extracts the failure category from an error. Anything that is
// not an UpstreamError is CategoryOther.
func CategoryOf(err error) Category {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Category
	}
	return CategoryOther
}

// MessageOf returns the upstream-provided message, or the error string for
// uncategorized failures.
func MessageOf(err error) string {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
