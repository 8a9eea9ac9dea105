package ports

import (
	"context"
	"time"
)

// RateLimitState is the current fixed-window counter for a request key.
type RateLimitState struct {
	Count        int
	BlockedUntil *time.Time
}

// RateLimitStore handles short-lived request throttling state.
// It is cache-backed so hot endpoints avoid database writes per attempt.
type RateLimitStore interface {
	Get(ctx context.Context, key string) (RateLimitState, error)
	RecordHit(ctx context.Context, key string, now time.Time, threshold int, window time.Duration) (RateLimitState, error)
	Clear(ctx context.Context, key string) error
}
