package enrich

import "geoflow/internal/domain"

// Request is one reconciliation invocation: the record snapshot plus the
// mutation context it was taken from. RequesterID normally equals UserID but
// stays a separate field because the dispatcher owns that mapping.
type Request struct {
	UserID      string
	RequesterID string
	RequestID   string
	User        domain.User
}

// Decide translates a raw store mutation into a reconciliation request. It is
// a pure function so the trigger filter is testable without a live store.
//
// Creates always dispatch. Updates dispatch only when the postal code or the
// request id changed, so edits to unrelated fields (email) never burn an
// upstream call. Deletes never dispatch.
func Decide(ev domain.ChangeEvent) (Request, bool) {
	switch ev.Kind {
	case domain.ChangeCreate:
		if ev.After == nil {
			return Request{}, false
		}
		return fromEvent(ev), true
	case domain.ChangeUpdate:
		if ev.After == nil {
			return Request{}, false
		}
		if ev.Before != nil &&
			ev.Before.Zip == ev.After.Zip &&
			ev.Before.LastRequestID == ev.After.LastRequestID {
			return Request{}, false
		}
		return fromEvent(ev), true
	default:
		return Request{}, false
	}
}

func fromEvent(ev domain.ChangeEvent) Request {
	return Request{
		UserID:      ev.UserID,
		RequesterID: ev.UserID,
		RequestID:   ev.After.LastRequestID,
		User:        *ev.After,
	}
}
