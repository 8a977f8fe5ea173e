package location

import (
	"context"
	"time"
)

// Repository persists presence and the latest sample per user on the relay.
// Clients never persist samples.
type Repository interface {
	UpsertPresence(ctx context.Context, update StatusUpdate, at time.Time) error
	UpsertLatest(ctx context.Context, sample Sample) error
	ListLatest(ctx context.Context) ([]Sample, error)
}
