package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"geoflow/internal/domain"
	"geoflow/pkg/platform/sentinel"
)

// PostgresStore persists user records in PostgreSQL. The geo payload is kept
// as jsonb so its shape stays identical to the wire format.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the users table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			user_id         TEXT PRIMARY KEY,
			name            TEXT NOT NULL DEFAULT '',
			email           TEXT NOT NULL DEFAULT '',
			zip             TEXT NOT NULL DEFAULT '',
			last_request_id TEXT NOT NULL DEFAULT '',
			geo             JSONB,
			last_updated    TIMESTAMPTZ
		)`)
	if err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID string) (domain.User, error) {
	query := `
		SELECT name, email, zip, last_request_id, geo, last_updated
		FROM users
		WHERE user_id = $1
	`

	var (
		u           domain.User
		geoRaw      []byte
		lastUpdated sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, userID).
		Scan(&u.Name, &u.Email, &u.Zip, &u.LastRequestID, &geoRaw, &lastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, fmt.Errorf("find user %s: %w", userID, sentinel.ErrNotFound)
		}
		return domain.User{}, fmt.Errorf("find user %s: %w", userID, err)
	}

	if lastUpdated.Valid {
		u.LastUpdated = lastUpdated.Time
	}
	if len(geoRaw) > 0 {
		var geo domain.GeoData
		if err := json.Unmarshal(geoRaw, &geo); err != nil {
			return domain.User{}, fmt.Errorf("unmarshal geo data for user %s: %w", userID, err)
		}
		u.GeoData = &geo
	}
	return u, nil
}

func (s *PostgresStore) Put(ctx context.Context, userID string, u domain.User) error {
	geoRaw, err := marshalGeo(u.GeoData)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (user_id, name, email, zip, last_request_id, geo, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			zip = EXCLUDED.zip,
			last_request_id = EXCLUDED.last_request_id,
			geo = EXCLUDED.geo,
			last_updated = EXCLUDED.last_updated
	`

	var lastUpdated sql.NullTime
	if !u.LastUpdated.IsZero() {
		lastUpdated = sql.NullTime{Time: u.LastUpdated, Valid: true}
	}
	if _, err := s.db.ExecContext(ctx, query, userID, u.Name, u.Email, u.Zip, u.LastRequestID, geoRaw, lastUpdated); err != nil {
		return fmt.Errorf("put user %s: %w", userID, err)
	}
	return nil
}

func (s *PostgresStore) UpsertGeoData(ctx context.Context, userID string, geo domain.GeoData) error {
	geoRaw, err := marshalGeo(&geo)
	if err != nil {
		return err
	}

	// Field-level merge: everything but geo is left untouched. A missing
	// record means a concurrent delete won; that is not an error.
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET geo = $2 WHERE user_id = $1`, userID, geoRaw); err != nil {
		return fmt.Errorf("upsert geo data for user %s: %w", userID, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}
	return nil
}

func marshalGeo(geo *domain.GeoData) ([]byte, error) {
	if geo == nil {
		return nil, nil
	}
	raw, err := json.Marshal(geo)
	if err != nil {
		return nil, fmt.Errorf("marshal geo data: %w", err)
	}
	return raw, nil
}
