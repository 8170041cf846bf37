package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Well-known keys.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUsername     = "username"
	KeyUser         = "user"
)

// SessionKeys are the keys removed when a session ends.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUsername, KeyUser}

// MaxKeyLength is the maximum allowed length for a key.
const MaxKeyLength = 256

// Sentinel errors for store operations.
var (
	ErrInvalidKey = errors.New("tokenstore: key is invalid")
	ErrKeyTooLong = errors.New("tokenstore: key exceeds max length")
	ErrNilStore   = errors.New("tokenstore: store is nil")
)

// Store is a persistent string key-value store.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Atomicity: each call touches a single key; there are no multi-key transactions.
//   - Errors: Get reports a missing key as ok=false with a nil error.
//     Remove is idempotent.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// ValidateKey checks if a key may be stored.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// Clear removes every key, continuing past failures. The returned error joins
// the failures of individual keys.
func Clear(ctx context.Context, s Store, keys ...string) error {
	if s == nil {
		return ErrNilStore
	}
	var errs []error
	for _, k := range keys {
		if err := s.Remove(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}
