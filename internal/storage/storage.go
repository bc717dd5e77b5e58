package storage

import (
	"context"

	"donationScope/internal/model"
)

// Sink defines a destination for archived donation records.
type Sink interface {
	PutDonationBatch(ctx context.Context, records []model.DonationRecord) error
}

// KV is the on-device key/value store backing the goal override and leaderboard cache.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
