package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/impulsenest/teacherpanel/internal/api"
	"github.com/impulsenest/teacherpanel/internal/log"
	"github.com/impulsenest/teacherpanel/internal/metrics"
	"github.com/impulsenest/teacherpanel/internal/push"
	"github.com/impulsenest/teacherpanel/internal/storage"
)

const (
	// DefaultRefreshBuffer is how long before expiry CheckAuth refreshes
	DefaultRefreshBuffer = 5 * time.Minute

	// DefaultNotifyTimeout bounds the push-notification binding after login
	DefaultNotifyTimeout = 10 * time.Second

	loginFailed = "Login failed"
)

// LoginResult is the outcome of Login. Failures never return an error;
// Error carries a message fit for the user.
type LoginResult struct {
	Success bool            `json:"success" yaml:"success"`
	Data    json.RawMessage `json:"data,omitempty" yaml:"-"`
	Error   string          `json:"error,omitempty" yaml:"error,omitempty"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier sets the push-notification binding called after login.
func WithNotifier(n push.Notifier) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithRefreshBuffer sets how close to expiry a token is refreshed.
func WithRefreshBuffer(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.refreshBuffer = d
		}
	}
}

// WithNotifyTimeout bounds each notifier call.
func WithNotifyTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.notifyTimeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// Manager owns the in-memory session and keeps it in step with the durable
// store. Its mutex is never held across a network call.
type Manager struct {
	client   *api.Client
	store    storage.Store
	notifier push.Notifier
	logger   *log.Logger
	metrics  *metrics.Metrics

	refreshBuffer time.Duration
	notifyTimeout time.Duration
	now           func() time.Time

	initOnce sync.Once
	notifyWG sync.WaitGroup

	mu        sync.RWMutex
	session   Session
	lastError string
}

// NewManager creates a manager over client and the client's durable store.
func NewManager(client *api.Client, opts ...Option) *Manager {
	m := &Manager{
		client:        client,
		store:         client.Store(),
		notifier:      push.Nop{},
		logger:        log.DefaultLogger(),
		refreshBuffer: DefaultRefreshBuffer,
		notifyTimeout: DefaultNotifyTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithComponent("session")

	client.Refresher().Subscribe(m.applyRefresh)
	return m
}

// Initialize hydrates the session from the durable store. Only the first
// call reads the store. A corrupted stored value clears the whole session.
func (m *Manager) Initialize(ctx context.Context) {
	m.initOnce.Do(func() {
		m.hydrate(ctx)
	})
}

func (m *Manager) hydrate(ctx context.Context) {
	token, hasToken, err := m.store.Get(storage.KeyToken)
	if err != nil {
		m.discardCorrupted(ctx, err)
		return
	}
	userRaw, hasUser, err := m.store.Get(storage.KeyUser)
	if err != nil {
		m.discardCorrupted(ctx, err)
		return
	}
	if !hasToken || !hasUser || token == "" || userRaw == "" {
		return
	}

	user, err := ParseUserProfile([]byte(userRaw))
	if err != nil {
		m.discardCorrupted(ctx, &storage.ParseError{Key: storage.KeyUser, Err: err})
		return
	}

	var expiresAt time.Time
	if raw := storage.GetString(m.store, storage.KeyTokenExpiresAt); raw != "" {
		expiresAt, err = api.ParseTimestamp(raw)
		if err != nil {
			m.discardCorrupted(ctx, &storage.ParseError{Key: storage.KeyTokenExpiresAt, Err: err})
			return
		}
	}

	m.mu.Lock()
	m.session = Session{
		AccessToken:  token,
		RefreshToken: storage.GetString(m.store, storage.KeyRefreshToken),
		SessionID:    storage.GetString(m.store, storage.KeySessionID),
		ExpiresAt:    expiresAt,
		User:         user,
	}
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "session restored", "user_id", user.ID(), "expires_at", expiresAt)
}

func (m *Manager) discardCorrupted(ctx context.Context, err error) {
	m.logger.WithError(err).ErrorContext(ctx, "stored session is corrupted, clearing it")
	m.ClearAuth(ctx)
}

// Login exchanges credentials for a session. On success the whole session
// is replaced and persisted; on failure nothing changes.
func (m *Manager) Login(ctx context.Context, creds api.Credentials) LoginResult {
	result := m.login(ctx, creds)
	m.metrics.ObserveLogin(result.Success)

	m.mu.Lock()
	m.lastError = result.Error
	m.mu.Unlock()

	return result
}

func (m *Manager) login(ctx context.Context, creds api.Credentials) LoginResult {
	resp, err := m.client.Auth().Login(ctx, creds)
	if err != nil {
		m.logger.WithError(err).InfoContext(ctx, "login rejected")
		return LoginResult{Error: failureMessage(err)}
	}

	ts, err := api.ParseTokenSet(resp.Body)
	if err != nil {
		return LoginResult{Error: failureMessage(err)}
	}

	var missing []string
	if ts.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if !ts.HasUser() {
		missing = append(missing, "user")
	}
	if len(missing) > 0 {
		return LoginResult{Error: failureMessage(&api.MalformedResponseError{Endpoint: "login", Missing: missing})}
	}

	user, err := ParseUserProfile(ts.User)
	if err != nil {
		return LoginResult{Error: failureMessage(err)}
	}

	// A new login replaces every key, including ones the payload omits
	if err := storage.ClearAuth(m.store); err != nil {
		return LoginResult{Error: failureMessage(err)}
	}
	if err := api.PersistTokens(m.store, ts); err != nil {
		_ = storage.ClearAuth(m.store)
		return LoginResult{Error: failureMessage(err)}
	}

	m.mu.Lock()
	m.session = Session{
		AccessToken:  ts.AccessToken,
		RefreshToken: ts.RefreshToken,
		SessionID:    ts.SessionID,
		ExpiresAt:    ts.ExpiresAt,
		User:         user,
	}
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "logged in", "user_id", user.ID())
	m.bindPush(ctx, user.ID())

	return LoginResult{Success: true, Data: resp.Data()}
}

// bindPush calls the notifier in its own goroutine. Its failure never
// affects the login.
func (m *Manager) bindPush(ctx context.Context, userID string) {
	if userID == "" {
		return
	}

	m.notifyWG.Add(1)
	go func() {
		defer m.notifyWG.Done()

		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.notifyTimeout)
		defer cancel()

		if err := m.notifier.Login(nctx, userID); err != nil {
			m.logger.WithError(err).Warn("push notification binding failed", "user_id", userID)
		}
	}()
}

// Wait blocks until pending push-notification bindings finish.
func (m *Manager) Wait() {
	m.notifyWG.Wait()
}

// failureMessage prefers the backend's message, then the error text.
func failureMessage(err error) string {
	var statusErr *api.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return loginFailed
}

// Logout invalidates the session server-side when a token is held, then
// clears it locally whatever the outcome.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.RLock()
	hasToken := m.session.AccessToken != ""
	m.mu.RUnlock()

	if hasToken {
		if err := m.client.Auth().Logout(ctx); err != nil {
			m.logger.WithError(err).WarnContext(ctx, "logout request failed")
		}
	}

	m.ClearAuth(ctx)
	m.logger.DebugContext(ctx, "logged out")
}

// ClearAuth drops the session from memory and the durable store.
func (m *Manager) ClearAuth(ctx context.Context) {
	m.mu.Lock()
	m.session = Session{}
	m.lastError = ""
	m.mu.Unlock()

	if err := storage.ClearAuth(m.store); err != nil {
		m.logger.WithError(err).WarnContext(ctx, "failed to clear stored credentials")
	}
}

// CheckAuth validates the session before a protected command runs. It
// refreshes a token that expires within the refresh buffer, then confirms
// the session by fetching the profile. Any unrecoverable failure leaves the
// session cleared and returns false.
func (m *Manager) CheckAuth(ctx context.Context) bool {
	ok := m.checkAuth(ctx)
	m.metrics.ObserveAuthCheck(ok)
	return ok
}

func (m *Manager) checkAuth(ctx context.Context) bool {
	s := m.Snapshot()
	if s.AccessToken == "" {
		return false
	}

	if !s.ExpiresAt.IsZero() && !s.ExpiresAt.After(m.now().Add(m.refreshBuffer)) {
		m.logger.DebugContext(ctx, "token expired or about to expire, refreshing", "expires_at", s.ExpiresAt)
		if !m.RefreshAccessToken(ctx) {
			return false
		}
	}

	err := m.fetchProfile(ctx)
	if err == nil {
		return true
	}
	m.logger.WithError(err).InfoContext(ctx, "auth check failed")

	if m.Snapshot().CanRefresh() && m.RefreshAccessToken(ctx) {
		err = m.fetchProfile(ctx)
		if err == nil {
			return true
		}
		m.logger.WithError(err).InfoContext(ctx, "auth check failed after token refresh")
	}

	if api.Interrupted(ctx, err) {
		return false
	}
	m.ClearAuth(ctx)
	return false
}

func (m *Manager) fetchProfile(ctx context.Context) error {
	resp, err := m.client.Auth().Profile(ctx)
	if err != nil {
		return err
	}

	user, err := ParseUserProfile(resp.Data())
	if err != nil {
		return fmt.Errorf("invalid profile response: %w", err)
	}

	m.mu.Lock()
	if m.session.AccessToken == "" {
		m.mu.Unlock()
		return errors.New("session cleared while fetching profile")
	}
	m.session.User = user
	m.mu.Unlock()

	if err := m.store.Set(storage.KeyUser, string(user.Raw())); err != nil {
		m.logger.WithError(err).WarnContext(ctx, "failed to persist profile")
	}
	return nil
}

// RefreshAccessToken rotates the access token using the refresh token and
// session id. Without both it clears the session and returns false without
// a network call. Any failure clears the session.
func (m *Manager) RefreshAccessToken(ctx context.Context) bool {
	if !m.Snapshot().CanRefresh() {
		m.logger.DebugContext(ctx, "no refresh token or session id available")
		m.ClearAuth(ctx)
		return false
	}

	if _, err := m.client.Refresher().Refresh(ctx); err != nil {
		if api.Interrupted(ctx, err) {
			m.logger.WithError(err).DebugContext(ctx, "token refresh interrupted")
			return false
		}
		m.logger.WithError(err).WarnContext(ctx, "token refresh failed")
		m.ClearAuth(ctx)
		return false
	}
	return true
}

// applyRefresh keeps memory in step with rotations performed by the shared
// refresher, including those triggered by the HTTP client on a 401.
func (m *Manager) applyRefresh(ts *api.TokenSet) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ts == nil {
		m.session = Session{}
		return
	}

	user := m.session.User
	if ts.HasUser() {
		if parsed, err := ParseUserProfile(ts.User); err == nil {
			user = parsed
		}
	}
	if user == nil {
		user = m.storedUser()
	}
	if user == nil {
		// a token without a user is not a session
		return
	}

	m.session.User = user
	m.session.AccessToken = ts.AccessToken
	if ts.RefreshToken != "" {
		m.session.RefreshToken = ts.RefreshToken
	}
	if ts.SessionID != "" {
		m.session.SessionID = ts.SessionID
	}
	m.session.ExpiresAt = ts.ExpiresAt
}

// storedUser reads the persisted profile, or nil when absent or invalid.
func (m *Manager) storedUser() *UserProfile {
	raw, ok, err := m.store.Get(storage.KeyUser)
	if err != nil || !ok || raw == "" {
		return nil
	}
	user, err := ParseUserProfile([]byte(raw))
	if err != nil {
		return nil
	}
	return user
}

// UpdateUser merges partial into the profile and persists it.
func (m *Manager) UpdateUser(ctx context.Context, partial map[string]any) error {
	m.mu.Lock()
	merged, err := m.session.User.Merge(partial)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	m.session.User = merged
	m.mu.Unlock()

	if err := m.store.Set(storage.KeyUser, string(merged.Raw())); err != nil {
		return fmt.Errorf("failed to persist user: %w", err)
	}
	m.logger.DebugContext(ctx, "user profile updated")
	return nil
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// IsAuthenticated reports whether a token and a user are both held.
func (m *Manager) IsAuthenticated() bool {
	return m.Snapshot().Authenticated()
}

// IsTokenExpired reports whether the known expiry has passed. An unknown
// expiry is never expired.
func (m *Manager) IsTokenExpired() bool {
	s := m.Snapshot()
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !m.now().Before(s.ExpiresAt)
}

// UserID returns the user's id, or "".
func (m *Manager) UserID() string {
	return m.Snapshot().User.ID()
}

// UserRole returns the user's first role, or "".
func (m *Manager) UserRole() string {
	return m.Snapshot().User.Role()
}

// UserName returns the user's display name, or "".
func (m *Manager) UserName() string {
	return m.Snapshot().User.DisplayName()
}

// UserPhone returns the user's phone number, or "".
func (m *Manager) UserPhone() string {
	return m.Snapshot().User.Phone()
}

// LastError returns the message of the last failed login.
func (m *Manager) LastError() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastError
}
