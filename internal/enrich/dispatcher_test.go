package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoflow/internal/domain"
)

func TestDecideCreateAlwaysDispatches(t *testing.T) {
	req, ok := Decide(domain.ChangeEvent{
		Kind:   domain.ChangeCreate,
		UserID: "u1",
		After:  &domain.User{Name: "Ada", Zip: "10001", LastRequestID: "r1"},
	})
	require.True(t, ok)
	assert.Equal(t, "u1", req.UserID)
	assert.Equal(t, "u1", req.RequesterID)
	assert.Equal(t, "r1", req.RequestID)
	assert.Equal(t, "Ada", req.User.Name)
}

func TestDecideCreateWithoutSnapshot(t *testing.T) {
	_, ok := Decide(domain.ChangeEvent{Kind: domain.ChangeCreate, UserID: "u1"})
	assert.False(t, ok)
}

func TestDecideUpdateEmailOnlyIsFiltered(t *testing.T) {
	_, ok := Decide(domain.ChangeEvent{
		Kind:   domain.ChangeUpdate,
		UserID: "u1",
		Before: &domain.User{Name: "Ada", Email: "old@example.com", Zip: "10001", LastRequestID: "r1"},
		After:  &domain.User{Name: "Ada", Email: "new@example.com", Zip: "10001", LastRequestID: "r1"},
	})
	assert.False(t, ok)
}

func TestDecideUpdateZipChangeDispatches(t *testing.T) {
	req, ok := Decide(domain.ChangeEvent{
		Kind:   domain.ChangeUpdate,
		UserID: "u1",
		Before: &domain.User{Name: "Ada", Zip: "10001", LastRequestID: "r1"},
		After:  &domain.User{Name: "Ada", Zip: "94103", LastRequestID: "r1"},
	})
	require.True(t, ok)
	assert.Equal(t, "94103", req.User.Zip)
}

func TestDecideUpdateRequestIDChangeDispatches(t *testing.T) {
	req, ok := Decide(domain.ChangeEvent{
		Kind:   domain.ChangeUpdate,
		UserID: "u1",
		Before: &domain.User{Name: "Ada", Zip: "10001", LastRequestID: "r1"},
		After:  &domain.User{Name: "Ada", Zip: "10001", LastRequestID: "r2"},
	})
	require.True(t, ok)
	assert.Equal(t, "r2", req.RequestID)
}

func TestDecideUpdateWithoutBeforeDispatches(t *testing.T) {
	// No before snapshot means the filter cannot prove the change is
	// irrelevant, so it dispatches.
	_, ok := Decide(domain.ChangeEvent{
		Kind:   domain.ChangeUpdate,
		UserID: "u1",
		After:  &domain.User{Name: "Ada", Zip: "10001", LastRequestID: "r1"},
	})
	assert.True(t, ok)
}

func TestDecideDeleteNeverDispatches(t *testing.T) {
	_, ok := Decide(domain.ChangeEvent{
		Kind:   domain.ChangeDelete,
		UserID: "u1",
		Before: &domain.User{Name: "Ada", Zip: "10001", LastRequestID: "r1"},
	})
	assert.False(t, ok)
}
