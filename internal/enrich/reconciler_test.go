package enrich

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"geoflow/internal/domain"
	"geoflow/internal/geocode"
	"geoflow/internal/request"
	"geoflow/internal/user"
	"geoflow/pkg/platform/sentinel"
)

type stubGeocoder struct {
	geo   domain.GeoData
	err   error
	calls int
}

func (s *stubGeocoder) Lookup(_ context.Context, _ string) (domain.GeoData, error) {
	s.calls++
	if s.err != nil {
		return domain.GeoData{}, s.err
	}
	return s.geo, nil
}

// failingUserStore wraps a store to inject write failures.
type failingUserStore struct {
	user.Store
	upsertErr error
}

func (f *failingUserStore) UpsertGeoData(ctx context.Context, userID string, geo domain.GeoData) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	return f.Store.UpsertGeoData(ctx, userID, geo)
}

var testClock = func() time.Time { return time.Unix(1700000000, 0) }

type ReconcilerSuite struct {
	suite.Suite
	users       *user.MemoryStore
	ledgerStore *request.MemoryStore
	ledger      *request.Ledger
	geocoder    *stubGeocoder
	reconciler  *Reconciler
}

func TestReconcilerSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerSuite))
}

func (s *ReconcilerSuite) SetupTest() {
	s.users = user.NewMemoryStore()
	s.ledgerStore = request.NewMemoryStore()
	s.ledger = request.NewLedger(s.ledgerStore, request.WithClock(testClock))
	s.geocoder = &stubGeocoder{}
	s.reconciler = NewReconciler(s.users, s.ledger, s.geocoder,
		slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func (s *ReconcilerSuite) seed(userID string, u domain.User) {
	s.Require().NoError(s.users.Put(context.Background(), userID, u))
}

func (s *ReconcilerSuite) TestSuccessEnrichesRecordAndLedger() {
	ctx := context.Background()
	ada := domain.User{Name: "Ada", Zip: "10001", LastRequestID: "r1"}
	s.seed("u1", ada)
	s.geocoder.geo = domain.GeoData{Lat: 40.75, Lon: -73.99, Timezone: -18000, CityName: "New York"}

	outcome := s.reconciler.Reconcile(ctx, Request{UserID: "u1", RequesterID: "u1", RequestID: "r1", User: ada})

	s.Equal(domain.StatusSuccess, outcome.Status)
	s.Empty(outcome.ErrorCode)

	stored, err := s.users.FindByID(ctx, "u1")
	s.Require().NoError(err)
	s.Equal("Ada", stored.Name)
	s.Equal("10001", stored.Zip)
	s.Require().NotNil(stored.GeoData)
	s.Equal(domain.GeoData{Lat: 40.75, Lon: -73.99, Timezone: -18000, CityName: "New York"}, *stored.GeoData)

	entry, err := s.ledger.Get(ctx, "r1")
	s.Require().NoError(err)
	s.Equal(domain.StatusSuccess, entry.Status)
	s.Equal("u1", entry.RequesterUserID)
	s.Equal(testClock(), entry.Timestamp)
}

func (s *ReconcilerSuite) TestMissingNameSkipsUpstream() {
	ctx := context.Background()
	u := domain.User{Zip: "10001", LastRequestID: "r1"}
	s.seed("u1", u)

	outcome := s.reconciler.Reconcile(ctx, Request{UserID: "u1", RequesterID: "u1", RequestID: "r1", User: u})

	s.Equal(domain.StatusError, outcome.Status)
	s.Equal(domain.CodeMissingReqAttr, outcome.ErrorCode)
	s.Zero(s.geocoder.calls)

	_, err := s.users.FindByID(ctx, "u1")
	s.ErrorIs(err, sentinel.ErrNotFound)

	entry, err := s.ledger.Get(ctx, "r1")
	s.Require().NoError(err)
	s.Equal(domain.CodeMissingReqAttr, entry.ErrorCode)
	s.NotEmpty(entry.ErrorMessage)
}

func (s *ReconcilerSuite) TestMissingZipSkipsUpstream() {
	ctx := context.Background()
	u := domain.User{Name: "Ada", LastRequestID: "r1"}
	s.seed("u1", u)

	outcome := s.reconciler.Reconcile(ctx, Request{UserID: "u1", RequesterID: "u1", RequestID: "r1", User: u})

	s.Equal(domain.CodeMissingReqAttr, outcome.ErrorCode)
	s.Zero(s.geocoder.calls)
}

func (s *ReconcilerSuite) TestUnknownZipDeletesRecord() {
	ctx := context.Background()
	bob := domain.User{Name: "Bob", Zip: "00000", LastRequestID: "r2"}
	s.seed("u2", bob)
	s.geocoder.err = &geocode.UpstreamError{Category: geocode.CategoryNotFound, Message: "city not found", Status: 404}

	outcome := s.reconciler.Reconcile(ctx, Request{UserID: "u2", RequesterID: "u2", RequestID: "r2", User: bob})

	s.Equal(domain.StatusError, outcome.Status)
	s.Equal(domain.CodeInvalidZip, outcome.ErrorCode)

	_, err := s.users.FindByID(ctx, "u2")
	s.ErrorIs(err, sentinel.ErrNotFound)

	entry, err := s.ledger.Get(ctx, "r2")
	s.Require().NoError(err)
	s.Equal(domain.CodeInvalidZip, entry.ErrorCode)
	s.Equal("city not found", entry.ErrorMessage)
	s.Equal("u2", entry.RequesterUserID)
}

func (s *ReconcilerSuite) TestRejectedCredentialDeletesRecord() {
	ctx := context.Background()
	u := domain.User{Name: "Ada", Zip: "10001", LastRequestID: "r3"}
	s.seed("u1", u)
	s.geocoder.err = &geocode.UpstreamError{Category: geocode.CategoryUnauthorized, Status: 401}

	outcome := s.reconciler.Reconcile(ctx, Request{UserID: "u1", RequesterID: "u1", RequestID: "r3", User: u})

	s.Equal(domain.CodeInvalidAPIKey, outcome.ErrorCode)
	s.Empty(outcome.ErrorMessage)

	_, err := s.users.FindByID(ctx, "u1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ReconcilerSuite) TestTransportFailureIsGeneric() {
	ctx := context.Background()
	u := domain.User{Name: "Ada", Zip: "10001", LastRequestID: "r4"}
	s.seed("u1", u)
	s.geocoder.err = errors.New("dial tcp: connection refused")

	outcome := s.reconciler.Reconcile(ctx, Request{UserID: "u1", RequesterID: "u1", RequestID: "r4", User: u})

	s.Equal(domain.CodeGenericError, outcome.ErrorCode)
	s.Contains(outcome.ErrorMessage, "connection refused")

	_, err := s.users.FindByID(ctx, "u1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ReconcilerSuite) TestWriteBackFailureIsGeneric() {
	ctx := context.Background()
	u := domain.User{Name: "Ada", Zip: "10001", LastRequestID: "r5"}
	s.seed("u1", u)
	s.geocoder.geo = domain.GeoData{Lat: 40.75, Lon: -73.99, Timezone: -18000, CityName: "New York"}

	failing := &failingUserStore{Store: s.users, upsertErr: errors.New("store unavailable")}
	reconciler := NewReconciler(failing, s.ledger, s.geocoder,
		slog.New(slog.NewTextHandler(io.Discard, nil)), nil)

	outcome := reconciler.Reconcile(ctx, Request{UserID: "u1", RequesterID: "u1", RequestID: "r5", User: u})

	s.Equal(domain.CodeGenericError, outcome.ErrorCode)
	entry, err := s.ledger.Get(ctx, "r5")
	s.Require().NoError(err)
	s.Equal(domain.CodeGenericError, entry.ErrorCode)
}

func (s *ReconcilerSuite) TestNoRequestIDDeletesWithoutLedgerEntry() {
	ctx := context.Background()
	u := domain.User{Name: "Ada", Zip: "10001"}
	s.seed("u1", u)

	outcome := s.reconciler.Reconcile(ctx, Request{UserID: "u1", RequesterID: "u1", User: u})

	s.True(outcome.IsZero())
	s.Zero(s.geocoder.calls)
	s.Zero(s.ledgerStore.Len())

	_, err := s.users.FindByID(ctx, "u1")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ReconcilerSuite) TestRerunOverwritesLedgerEntry() {
	ctx := context.Background()
	ada := domain.User{Name: "Ada", Zip: "10001", LastRequestID: "r1"}
	s.seed("u1", ada)
	s.geocoder.geo = domain.GeoData{Lat: 40.75, Lon: -73.99, Timezone: -18000, CityName: "New York"}

	req := Request{UserID: "u1", RequesterID: "u1", RequestID: "r1", User: ada}
	first := s.reconciler.Reconcile(ctx, req)
	second := s.reconciler.Reconcile(ctx, req)

	s.Equal(first.Status, second.Status)
	s.Equal(1, s.ledgerStore.Len())

	entry, err := s.ledger.Get(ctx, "r1")
	s.Require().NoError(err)
	s.Equal(domain.StatusSuccess, entry.Status)
}
