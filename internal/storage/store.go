// Package storage holds the durable key/value port that the session manager
// and the API client share, plus its in-memory and encrypted-file adapters.
package storage

import (
	"fmt"
)

// Durable keys written by the session manager and the refresh exchange.
const (
	KeyToken          = "token"
	KeyRefreshToken   = "refresh_token"
	KeySessionID      = "session_id"
	KeyTokenExpiresAt = "token_expires_at"
	KeyUser           = "user"
)

// AuthKeys lists every key that makes up a persisted session.
var AuthKeys = []string{
	KeyToken,
	KeyRefreshToken,
	KeySessionID,
	KeyTokenExpiresAt,
	KeyUser,
}

// Store is a string-keyed, string-valued store that survives process
// restarts. Implementations must be safe for concurrent use and must never
// cache values across calls in a way that hides writes made by another
// Store instance over the same backing data.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(key, value string) error

	// Remove deletes the given keys. Absent keys are ignored.
	Remove(keys ...string) error
}

// ClearAuth removes every session key from s.
func ClearAuth(s Store) error {
	return s.Remove(AuthKeys...)
}

// GetString returns the value for key, or "" when it is absent or unreadable.
func GetString(s Store, key string) string {
	v, ok, err := s.Get(key)
	if err != nil || !ok {
		return ""
	}
	return v
}

// ParseError reports a persisted value that exists but cannot be decoded.
type ParseError struct {
	Key string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("stored %q is corrupted: %v", e.Key, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
