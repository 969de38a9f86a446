package domain

// ChangeKind is the mutation type reported by the user store.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// ChangeEvent is one store mutation as seen by the trigger dispatcher.
// Before is nil on create, After is nil on delete. Keep it
// transport-agnostic so watchers can fan events in from any feed.
type ChangeEvent struct {
	ID     string // correlation id, assigned by the watcher
	Kind   ChangeKind
	UserID string
	Before *User
	After  *User
}
