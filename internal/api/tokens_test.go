package api

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestParseTokenSet(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    TokenSet
		wantExp time.Time
	}{
		{
			name:    "login payload",
			body:    `{"access_token":"a1","refresh_token":"r1","sessionId":"s1","expiresAt":"2099-01-01T00:00:00Z","user":{"id":7}}`,
			want:    TokenSet{AccessToken: "a1", RefreshToken: "r1", SessionID: "s1"},
			wantExp: time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "data envelope with numeric session id",
			body:    `{"data":{"access_token":"a1","refresh_token":"r1","sessionId":42,"expiresAt":"2099-01-01T00:00:00.000Z"}}`,
			want:    TokenSet{AccessToken: "a1", RefreshToken: "r1", SessionID: "42"},
			wantExp: time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "unix seconds",
			body:    `{"access_token":"a1","expiresAt":4070908800}`,
			want:    TokenSet{AccessToken: "a1"},
			wantExp: time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "unix milliseconds",
			body:    `{"access_token":"a1","expiresAt":4070908800000}`,
			want:    TokenSet{AccessToken: "a1"},
			wantExp: time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "no expiry and opaque token",
			body: `{"access_token":"a1","expiresAt":null}`,
			want: TokenSet{AccessToken: "a1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, err := ParseTokenSet([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want.AccessToken, ts.AccessToken)
			assert.Equal(t, tt.want.RefreshToken, ts.RefreshToken)
			assert.Equal(t, tt.want.SessionID, ts.SessionID)
			assert.True(t, tt.wantExp.Equal(ts.ExpiresAt), "expiresAt = %v, want %v", ts.ExpiresAt, tt.wantExp)
		})
	}
}

func TestParseTokenSet_UnparsableExpiryIsUnknown(t *testing.T) {
	for _, body := range []string{
		`{"access_token":"a1","expiresAt":"soon","user":{"id":7}}`,
		`{"access_token":"a1","expiresAt":{"at":1},"user":{"id":7}}`,
	} {
		ts, err := ParseTokenSet([]byte(body))
		require.NoError(t, err, body)
		assert.Equal(t, "a1", ts.AccessToken)
		assert.True(t, ts.ExpiresAt.IsZero(), "expiresAt = %v, want unknown", ts.ExpiresAt)
		assert.True(t, ts.HasUser())
	}
}

func TestTokenSet_HasUser(t *testing.T) {
	ts, err := ParseTokenSet([]byte(`{"access_token":"a1","user":null}`))
	require.NoError(t, err)
	assert.False(t, ts.HasUser())

	ts, err = ParseTokenSet([]byte(`{"access_token":"a1","user":{"id":7}}`))
	require.NoError(t, err)
	assert.True(t, ts.HasUser())
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Date(2031, 2, 3, 4, 5, 6, 0, time.UTC)
	assert.True(t, TokenExpiry(signedToken(t, exp)).Equal(exp))
	assert.True(t, TokenExpiry("not-a-jwt").IsZero())

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7"})
	s, err := noExp.SignedString([]byte("k"))
	require.NoError(t, err)
	assert.True(t, TokenExpiry(s).IsZero())
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2099, 1, 1, 3, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	assert.Equal(t, "2099-01-01T00:00:00Z", FormatTimestamp(ts))

	parsed, err := ParseTimestamp("2099-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts))
}
