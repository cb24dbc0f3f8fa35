package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impulsenest/teacherpanel/internal/storage"
)

func refreshServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/auth/refresh", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestRefresh_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		seed map[string]string
	}{
		{"nothing stored", map[string]string{}},
		{"no refresh token", map[string]string{storage.KeyToken: "a1", storage.KeySessionID: "s1"}},
		{"no session id", map[string]string{storage.KeyToken: "a1", storage.KeyRefreshToken: "r1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := refreshServer(t, http.StatusOK, `{}`)
			store := storage.NewMemoryStore()
			for k, v := range tt.seed {
				require.NoError(t, store.Set(k, v))
			}
			client := newTestClient(srv, store)

			_, err := client.Refresher().Refresh(context.Background())
			assert.ErrorIs(t, err, ErrNoRefreshCredentials)
			assert.Equal(t, int32(0), calls.Load())
			assert.Equal(t, len(tt.seed), store.Len(), "store must be left untouched")
		})
	}
}

func TestRefresh_PersistsRotatedCredentials(t *testing.T) {
	srv, calls := refreshServer(t, http.StatusOK,
		`{"data":{"access_token":"a2","refresh_token":"r2","sessionId":"s2","expiresAt":"2099-01-01T00:00:00Z","user":{"id":9}}}`)
	store := storage.NewMemoryStore()
	seedSession(t, store, "a1")
	client := newTestClient(srv, store)

	var seen *TokenSet
	client.Refresher().Subscribe(func(ts *TokenSet) { seen = ts })

	ts, err := client.Refresher().Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "a2", ts.AccessToken)
	assert.Equal(t, ts, seen)

	assert.Equal(t, "a2", storage.GetString(store, storage.KeyToken))
	assert.Equal(t, "r2", storage.GetString(store, storage.KeyRefreshToken))
	assert.Equal(t, "s2", storage.GetString(store, storage.KeySessionID))
	assert.Equal(t, "2099-01-01T00:00:00Z", storage.GetString(store, storage.KeyTokenExpiresAt))
	assert.JSONEq(t, `{"id":9}`, storage.GetString(store, storage.KeyUser))
}

func TestRefresh_ExpiryFallsBackToJWT(t *testing.T) {
	exp := time.Date(2030, 5, 1, 12, 0, 0, 0, time.UTC)
	token := signedToken(t, exp)

	srv, _ := refreshServer(t, http.StatusOK, `{"access_token":"`+token+`","refresh_token":"r2"}`)
	store := storage.NewMemoryStore()
	seedSession(t, store, "a1")
	client := newTestClient(srv, store)

	ts, err := client.Refresher().Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, ts.ExpiresAt.Equal(exp))
	assert.Equal(t, "2030-05-01T12:00:00Z", storage.GetString(store, storage.KeyTokenExpiresAt))
}

func TestRefresh_UnknownExpiryRemovesStoredOne(t *testing.T) {
	srv, _ := refreshServer(t, http.StatusOK, `{"access_token":"opaque","refresh_token":"r2"}`)
	store := storage.NewMemoryStore()
	seedSession(t, store, "a1")
	client := newTestClient(srv, store)

	_, err := client.Refresher().Refresh(context.Background())
	require.NoError(t, err)

	_, ok, _ := store.Get(storage.KeyTokenExpiresAt)
	assert.False(t, ok)
}

func TestRefresh_MalformedResponseClearsStore(t *testing.T) {
	srv, _ := refreshServer(t, http.StatusOK, `{"access_token":"a2"}`)
	store := storage.NewMemoryStore()
	seedSession(t, store, "a1")
	client := newTestClient(srv, store)

	var cleared bool
	client.Refresher().Subscribe(func(ts *TokenSet) { cleared = ts == nil })

	_, err := client.Refresher().Refresh(context.Background())

	var malformed *MalformedResponseError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, []string{"refresh_token"}, malformed.Missing)
	assert.Equal(t, 0, store.Len())
	assert.True(t, cleared)
}

func TestRefresh_RejectedClearsStore(t *testing.T) {
	srv, _ := refreshServer(t, http.StatusUnauthorized, `{"message":"Session revoked"}`)
	store := storage.NewMemoryStore()
	seedSession(t, store, "a1")
	client := newTestClient(srv, store)

	_, err := client.Refresher().Refresh(context.Background())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "Session revoked", statusErr.Message)
	assert.Equal(t, 0, store.Len())
}

func TestRefresh_InterruptedKeepsStore(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	store := storage.NewMemoryStore()
	seedSession(t, store, "a1")
	before := store.Len()
	client := newTestClient(srv, store)

	var notified atomic.Int32
	client.Refresher().Subscribe(func(*TokenSet) { notified.Add(1) })

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := client.Refresher().Refresh(ctx)

	require.Error(t, err)
	assert.True(t, Interrupted(ctx, err))
	assert.Equal(t, before, store.Len())
	assert.Equal(t, "r1", storage.GetString(store, storage.KeyRefreshToken))
	assert.Equal(t, int32(0), notified.Load())
}

func TestInterrupted(t *testing.T) {
	live := context.Background()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, Interrupted(live, nil))
	assert.False(t, Interrupted(live, errors.New("connection refused")))
	assert.True(t, Interrupted(cancelled, errors.New("connection reset")))
	assert.True(t, Interrupted(live, &TransportError{Method: "POST", URL: "/auth/refresh", Err: context.Canceled}))
}
