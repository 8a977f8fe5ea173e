package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/location"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const presenceSchema = `
CREATE TABLE IF NOT EXISTS user_presence (
	user_id      TEXT PRIMARY KEY,
	is_online    BOOLEAN NOT NULL,
	last_seen_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS user_latest_location (
	user_id     TEXT PRIMARY KEY,
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	received_at TIMESTAMPTZ NOT NULL
);
`

type presenceRepository struct {
	db *database.DB
}

// NewPresenceRepository creates a new presence repository
func NewPresenceRepository(db *database.DB) location.Repository {
	return &presenceRepository{db: db}
}

// EnsurePresenceSchema creates the presence tables when missing and marks
// every user offline. A fresh relay process holds no connections, so any
// online flag left behind by a previous process is stale.
func EnsurePresenceSchema(ctx context.Context, db *database.DB, at time.Time) error {
	return WithTransaction(ctx, db, func(ctx context.Context) error {
		q := GetQuerier(ctx, db)
		if _, err := q.Exec(ctx, presenceSchema); err != nil {
			return fmt.Errorf("failed to create presence schema: %w", err)
		}
		if _, err := q.Exec(ctx, `UPDATE user_presence SET is_online = FALSE, last_seen_at = $1 WHERE is_online`, at); err != nil {
			return fmt.Errorf("failed to reset presence: %w", err)
		}
		return nil
	})
}

// UpsertPresence records a user's online flag and when it last changed
func (r *presenceRepository) UpsertPresence(ctx context.Context, update location.StatusUpdate, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO user_presence (user_id, is_online, last_seen_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET is_online = EXCLUDED.is_online, last_seen_at = EXCLUDED.last_seen_at
		WHERE user_presence.last_seen_at <= EXCLUDED.last_seen_at
	`

	if _, err := q.Exec(ctx, query, update.UserID, update.IsOnline, at); err != nil {
		return fmt.Errorf("failed to upsert presence: %w", err)
	}
	return nil
}

// UpsertLatest keeps only the most recently received sample per user
func (r *presenceRepository) UpsertLatest(ctx context.Context, sample location.Sample) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO user_latest_location (user_id, latitude, longitude, received_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			received_at = EXCLUDED.received_at
		WHERE user_latest_location.received_at <= EXCLUDED.received_at
	`

	if _, err := q.Exec(ctx, query, sample.UserID, sample.Lat, sample.Long, sample.ReceivedAt); err != nil {
		return fmt.Errorf("failed to upsert latest location: %w", err)
	}
	return nil
}

// ListLatest returns the latest sample of every user
func (r *presenceRepository) ListLatest(ctx context.Context) ([]location.Sample, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT user_id, latitude, longitude, received_at
		FROM user_latest_location
		ORDER BY user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest locations: %w", err)
	}

	samples, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (location.Sample, error) {
		var s location.Sample
		err := row.Scan(&s.UserID, &s.Lat, &s.Long, &s.ReceivedAt)
		return s, err
	})
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to scan latest locations: %w", err)
	}
	return samples, nil
}
