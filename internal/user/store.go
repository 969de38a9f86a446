package user

import (
	"context"

	"geoflow/internal/domain"
)

// Store is the point read/write/delete surface over /users/{id}.
//
// Implementations return sentinel.ErrNotFound (wrapped) from FindByID when
// the record does not exist. Delete and UpsertGeoData treat a missing record
// as a no-op: the reconciler may race with concurrent deletes and must not
// fail a run over a record that is already gone.
type Store interface {
	FindByID(ctx context.Context, userID string) (domain.User, error)
	// Put fully replaces the record at userID.
	Put(ctx context.Context, userID string, u domain.User) error
	// UpsertGeoData merges only the geo field, preserving all other fields.
	UpsertGeoData(ctx context.Context, userID string, geo domain.GeoData) error
	Delete(ctx context.Context, userID string) error
}
