package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which delivery IDs have already been claimed so
// that redelivered messages are acknowledged without being processed twice.
type IdempotencyStore interface {
	// MarkProcessed claims id for ttl.
	// Returns true if the id was newly claimed, false if it was already claimed.
	MarkProcessed(ctx context.Context, id string, ttl time.Duration) (bool, error)

	// Release forgets a claim so the id can be processed again
	Release(ctx context.Context, id string) error

	Close() error
}

// IdempotencyConfig holds configuration for delivery de-duplication
type IdempotencyConfig struct {
	// TTL is how long a claimed id is remembered. Default: 24 hours
	TTL time.Duration

	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
