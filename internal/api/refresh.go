package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/impulsenest/teacherpanel/internal/log"
	"github.com/impulsenest/teacherpanel/internal/metrics"
	"github.com/impulsenest/teacherpanel/internal/storage"
	"github.com/impulsenest/teacherpanel/internal/telemetry"
)

// RefreshListener observes credential rotations. It receives the new token
// set after a successful exchange and nil after credentials were cleared.
type RefreshListener func(*TokenSet)

// Refresher performs the refresh-token exchange. It is the only
// implementation of the exchange: the HTTP client calls it on 401 and the
// session manager calls it for proactive refresh. Concurrent callers share
// one in-flight exchange.
type Refresher struct {
	client  *Client
	store   storage.Store
	logger  *log.Logger
	metrics *metrics.Metrics

	group singleflight.Group

	mu        sync.RWMutex
	listeners []RefreshListener
}

func newRefresher(c *Client, store storage.Store, logger *log.Logger, m *metrics.Metrics) *Refresher {
	return &Refresher{
		client:  c,
		store:   store,
		logger:  logger,
		metrics: m,
	}
}

// Subscribe registers fn to be called after every rotation or clear.
func (r *Refresher) Subscribe(fn RefreshListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

func (r *Refresher) notify(ts *TokenSet) {
	r.mu.RLock()
	listeners := make([]RefreshListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn(ts)
	}
}

// Refresh exchanges the stored refresh token and session id for new
// credentials and persists them. When either credential is missing it
// returns ErrNoRefreshCredentials without touching the network or the
// store. Any later failure clears the stored session.
func (r *Refresher) Refresh(ctx context.Context) (*TokenSet, error) {
	return r.refresh(ctx, "")
}

// refresh runs or joins the exchange. When stale is set and the stored
// token no longer equals it, another caller already rotated the credentials
// and the stored ones are returned without an exchange.
func (r *Refresher) refresh(ctx context.Context, stale string) (*TokenSet, error) {
	ch := r.group.DoChan("refresh", func() (any, error) {
		if stale != "" {
			if current := storage.GetString(r.store, storage.KeyToken); current != "" && current != stale {
				return &TokenSet{
					AccessToken:  current,
					RefreshToken: storage.GetString(r.store, storage.KeyRefreshToken),
					SessionID:    storage.GetString(r.store, storage.KeySessionID),
				}, nil
			}
		}
		return r.exchange(ctx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*TokenSet), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	SessionID    string `json:"sessionId"`
}

func (r *Refresher) exchange(ctx context.Context) (*TokenSet, error) {
	refreshToken := storage.GetString(r.store, storage.KeyRefreshToken)
	sessionID := storage.GetString(r.store, storage.KeySessionID)
	if refreshToken == "" || sessionID == "" {
		r.metrics.ObserveRefresh("skipped", 0)
		return nil, ErrNoRefreshCredentials
	}

	ctx, span := telemetry.StartRefreshSpan(ctx)
	defer span.End()

	start := time.Now()
	ts, err := r.doExchange(ctx, refreshRequest{RefreshToken: refreshToken, SessionID: sessionID})
	if err != nil {
		telemetry.RecordError(span, err)
		if Interrupted(ctx, err) {
			r.metrics.ObserveRefresh("interrupted", time.Since(start))
			r.logger.WithError(err).DebugContext(ctx, "token refresh interrupted")
			return nil, err
		}
		r.metrics.ObserveRefresh("failure", time.Since(start))
		r.logger.WithError(err).WarnContext(ctx, "token refresh failed")

		if cerr := storage.ClearAuth(r.store); cerr != nil {
			r.logger.WithError(cerr).Warn("failed to clear stored credentials")
		}
		r.notify(nil)
		return nil, err
	}

	r.metrics.ObserveRefresh("success", time.Since(start))
	telemetry.RecordSuccess(span)
	r.logger.DebugContext(ctx, "token refreshed", "expires_at", ts.ExpiresAt)

	r.notify(ts)
	return ts, nil
}

func (r *Refresher) doExchange(ctx context.Context, body refreshRequest) (*TokenSet, error) {
	resp, err := r.client.Request(ctx, refreshPath, &RequestOptions{
		Method: http.MethodPost,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}

	ts, err := ParseTokenSet(resp.Body)
	if err != nil {
		return nil, err
	}

	var missing []string
	if ts.AccessToken == "" {
		missing = append(missing, "access_token")
	}
	if ts.RefreshToken == "" {
		missing = append(missing, "refresh_token")
	}
	if len(missing) > 0 {
		return nil, &MalformedResponseError{Endpoint: refreshPath, Missing: missing}
	}

	if ts.SessionID == "" {
		ts.SessionID = body.SessionID
	}

	if err := PersistTokens(r.store, ts); err != nil {
		return nil, fmt.Errorf("failed to persist refreshed credentials: %w", err)
	}
	return ts, nil
}

// PersistTokens writes a token set to the durable store. The user and
// session id are only written when present; an unknown expiry removes the
// stored one.
func PersistTokens(store storage.Store, ts *TokenSet) error {
	if ts == nil || ts.AccessToken == "" {
		return errors.New("no access token to persist")
	}

	if err := store.Set(storage.KeyToken, ts.AccessToken); err != nil {
		return err
	}
	if ts.RefreshToken != "" {
		if err := store.Set(storage.KeyRefreshToken, ts.RefreshToken); err != nil {
			return err
		}
	}
	if ts.SessionID != "" {
		if err := store.Set(storage.KeySessionID, ts.SessionID); err != nil {
			return err
		}
	}
	if ts.ExpiresAt.IsZero() {
		if err := store.Remove(storage.KeyTokenExpiresAt); err != nil {
			return err
		}
	} else if err := store.Set(storage.KeyTokenExpiresAt, FormatTimestamp(ts.ExpiresAt)); err != nil {
		return err
	}
	if ts.HasUser() {
		if err := store.Set(storage.KeyUser, string(ts.User)); err != nil {
			return err
		}
	}
	return nil
}
