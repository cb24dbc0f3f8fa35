package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/impulsenest/teacherpanel/internal/log"
)

// TokenSet is the credential payload shared by the login and refresh
// endpoints.
type TokenSet struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	SessionID    string          `json:"sessionId"`
	ExpiresAt    time.Time       `json:"-"`
	User         json.RawMessage `json:"user,omitempty"`
}

// HasUser reports whether the payload carried a non-null user object
func (t *TokenSet) HasUser() bool {
	return len(t.User) > 0 && !bytes.Equal(bytes.TrimSpace(t.User), []byte("null"))
}

type tokenPayload struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	SessionID    json.RawMessage `json:"sessionId"`
	ExpiresAt    json.RawMessage `json:"expiresAt"`
	User         json.RawMessage `json:"user"`
}

// ParseTokenSet decodes a login/refresh payload, unwrapping a {"data": ...}
// envelope. Field presence is not validated here. An unparsable expiry is
// treated as unknown.
func ParseTokenSet(raw []byte) (*TokenSet, error) {
	var p tokenPayload
	if err := json.Unmarshal(unwrapData(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to decode token payload: %w", err)
	}

	ts := &TokenSet{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		SessionID:    scalarString(p.SessionID),
		User:         p.User,
	}

	expiresAt, err := parseExpiry(p.ExpiresAt)
	if err != nil {
		log.DefaultLogger().WithError(err).Warn("ignoring unparsable token expiry")
		expiresAt = time.Time{}
	}
	if expiresAt.IsZero() && ts.AccessToken != "" {
		expiresAt = TokenExpiry(ts.AccessToken)
	}
	ts.ExpiresAt = expiresAt

	return ts, nil
}

// scalarString renders a JSON string or number as text; session ids are
// numeric on some backends.
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// parseExpiry accepts an RFC 3339 string or a unix timestamp in seconds or
// milliseconds.
func parseExpiry(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return time.Time{}, nil
		}
		t, err := ParseTimestamp(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid expiresAt %q: %w", s, err)
		}
		return t, nil
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return time.Time{}, fmt.Errorf("invalid expiresAt %s", raw)
	}
	// values past year 2286 in seconds are milliseconds
	if n > 1e10 {
		return time.UnixMilli(int64(n)).UTC(), nil
	}
	return time.Unix(int64(n), 0).UTC(), nil
}

// ParseTimestamp parses the persisted token_expires_at value.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05.000Z07:00", s)
}

// FormatTimestamp renders t the way token_expires_at is persisted.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// TokenExpiry returns the exp claim of a JWT access token without verifying
// its signature, or the zero time when the token is opaque or has no exp.
func TokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time.UTC()
}
