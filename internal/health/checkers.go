package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/impulsenest/teacherpanel/internal/storage"
)

// BackendChecker verifies the backend answers HTTP at all. Any response,
// including 404, proves reachability.
type BackendChecker struct {
	baseURL string
	client  *http.Client
}

// NewBackendChecker creates a checker for baseURL. A nil client uses
// http.DefaultClient.
func NewBackendChecker(baseURL string, client *http.Client) *BackendChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &BackendChecker{baseURL: baseURL, client: client}
}

// Name returns "backend".
func (c *BackendChecker) Name() string {
	return "backend"
}

// Check issues a GET against the base URL.
func (c *BackendChecker) Check(ctx context.Context) *Result {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return Unhealthy("invalid backend URL").WithDetail("error", err.Error())
	}

	resp, err := c.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return Unhealthy("backend unreachable").
			WithDetail("url", c.baseURL).
			WithDetail("error", err.Error()).
			WithLatency(latency)
	}
	_ = resp.Body.Close()

	result := Healthy("backend reachable")
	if resp.StatusCode >= 500 {
		result = Degraded(fmt.Sprintf("backend answered %d", resp.StatusCode))
	}
	return result.
		WithDetail("url", c.baseURL).
		WithDetail("status", resp.StatusCode).
		WithLatency(latency)
}

// StoreChecker verifies the session store can be read and decrypted.
type StoreChecker struct {
	store storage.Store
}

// NewStoreChecker creates a checker for store.
func NewStoreChecker(store storage.Store) *StoreChecker {
	return &StoreChecker{store: store}
}

// Name returns "session-store".
func (c *StoreChecker) Name() string {
	return "session-store"
}

// Check reads every session key.
func (c *StoreChecker) Check(ctx context.Context) *Result {
	present := 0
	for _, key := range storage.AuthKeys {
		value, ok, err := c.store.Get(key)
		if err != nil {
			return Unhealthy("session store unreadable").WithDetail("error", err.Error())
		}
		if !ok {
			continue
		}
		present++
		if key == storage.KeyUser && !json.Valid([]byte(value)) {
			return Degraded("stored session is corrupted").WithDetail("key", key)
		}
	}
	if fs, ok := c.store.(*storage.FileStore); ok {
		return Healthy("session store readable").
			WithDetail("path", fs.Path()).
			WithDetail("keys", present)
	}
	return Healthy("session store readable").WithDetail("keys", present)
}

// SessionChecker reports whether the stored session is still accepted.
type SessionChecker struct {
	hasSession func() bool
	validate   func(ctx context.Context) bool
}

// NewSessionChecker creates a checker. hasSession tells whether credentials
// are held at all; validate checks them against the backend.
func NewSessionChecker(hasSession func() bool, validate func(ctx context.Context) bool) *SessionChecker {
	return &SessionChecker{hasSession: hasSession, validate: validate}
}

// Name returns "session".
func (c *SessionChecker) Name() string {
	return "session"
}

// Check validates the session. Being logged out is degraded, not unhealthy.
func (c *SessionChecker) Check(ctx context.Context) *Result {
	if !c.hasSession() {
		return Degraded("not logged in")
	}
	if !c.validate(ctx) {
		return Unhealthy("session rejected by backend")
	}
	return Healthy("session valid")
}
