package port

import (
	"context"
	"time"
)

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string) (bool, error)

	// TouchSession creates or extends the lease of a session for ttl
	TouchSession(ctx context.Context, sessionID string, ttl time.Duration) error

	// SessionAlive reports whether the session lease has not lapsed
	SessionAlive(ctx context.Context, sessionID string) (bool, error)

	// DropSession removes the session lease
	DropSession(ctx context.Context, sessionID string) error
}
