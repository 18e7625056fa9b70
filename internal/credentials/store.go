package credentials

import (
	"context"
	"errors"
	"time"
)

// Keys under which the session persists its credentials
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// Lifetimes of the persisted credentials
const (
	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour
	UserTTL         = 7 * 24 * time.Hour
)

// Keys lists every key the session owns, in the order they are written.
var Keys = []string{KeyAccessToken, KeyRefreshToken, KeyUser}

// ErrNotFound is returned by Read when a key was never written, was deleted or has expired.
// Callers treat it as absence, not as a failure.
var ErrNotFound = errors.New("credential not found")

// Store defines the interface for an expiring string key/value store
type Store interface {
	// Save writes value under key; it becomes absent after ttl
	Save(ctx context.Context, key, value string, ttl time.Duration) error

	// Read returns the value for key or ErrNotFound
	Read(ctx context.Context, key string) (string, error)

	// Delete removes key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error
}
