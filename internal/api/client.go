// Package api is the client for the teacher administration backend: one
// request path for every call, with transparent token refresh on 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/impulsenest/teacherpanel/internal/log"
	"github.com/impulsenest/teacherpanel/internal/metrics"
	"github.com/impulsenest/teacherpanel/internal/storage"
	"github.com/impulsenest/teacherpanel/internal/telemetry"
)

const (
	// DefaultMaxAuthRetries is how many times a 401 is recovered per request
	DefaultMaxAuthRetries = 1

	refreshPath = "/auth/refresh"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. https://example.com/api
	BaseURL string

	// Timeout bounds each HTTP round trip. Zero leaves it to the transport.
	Timeout time.Duration

	// MaxAuthRetries is the number of refresh-and-retry cycles allowed per
	// request. Zero disables recovery.
	MaxAuthRetries int

	// UserAgent is sent on every request when set
	UserAgent string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// RequestOptions describes one call. The zero value is a GET.
type RequestOptions struct {
	Method string
	// Headers override the defaults (Content-Type, Authorization)
	Headers map[string]string
	// Body is sent as-is when it is []byte, string or io.Reader, and
	// JSON-encoded otherwise.
	Body  any
	Query url.Values
}

// Client issues backend requests with the token currently held in the
// durable store.
type Client struct {
	baseURL        string
	userAgent      string
	maxAuthRetries int
	httpClient     *http.Client
	store          storage.Store
	refresher      *Refresher
	logger         *log.Logger
	metrics        *metrics.Metrics
}

// NewClient creates a client reading and writing credentials through store.
func NewClient(cfg Config, store storage.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:      cfg.UserAgent,
		maxAuthRetries: cfg.MaxAuthRetries,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		store:          store,
		logger:         log.DefaultLogger(),
	}
	if c.maxAuthRetries < 0 {
		c.maxAuthRetries = 0
	}

	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent("api")
	c.refresher = newRefresher(c, store, c.logger, c.metrics)

	return c
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Store returns the durable store the client reads tokens from
func (c *Client) Store() storage.Store {
	return c.store
}

// Refresher returns the shared refresh exchange bound to this client
func (c *Client) Refresher() *Refresher {
	return c.refresher
}

// Request performs one API call. A 401 on any endpoint other than login or
// refresh triggers a refresh exchange followed by a single replay of the
// request with the new token.
func (c *Client) Request(ctx context.Context, endpoint string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	body, err := encodeBody(opts.Body)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartRequestSpan(ctx, method, endpoint)
	defer span.End()

	token := storage.GetString(c.store, storage.KeyToken)
	resp, err := c.send(ctx, method, endpoint, opts, body, token)

	for attempt := 0; err != nil; attempt++ {
		if !IsUnauthorized(err) || !recoverable(endpoint) || attempt >= c.maxAuthRetries {
			if attempt > 0 {
				err = c.expire(&AuthExpiredError{Err: err})
			}
			break
		}

		newToken, rerr := c.recoverToken(ctx, token)
		if errors.Is(rerr, ErrNoRefreshCredentials) {
			c.logger.DebugContext(ctx, "401 without refresh credentials", "endpoint", endpoint)
			break
		}
		if Interrupted(ctx, rerr) {
			err = rerr
			break
		}
		if rerr != nil {
			err = c.expire(&AuthExpiredError{Err: err, RefreshErr: rerr})
			c.metrics.ObserveAuthRetry(false)
			break
		}

		token = newToken
		resp, err = c.send(ctx, method, endpoint, opts, body, token)
		c.metrics.ObserveAuthRetry(err == nil)
	}

	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.RecordStatus(span, resp.StatusCode)
	telemetry.RecordSuccess(span)
	return resp, nil
}

// recoverToken returns a token to replay with. When another caller already
// rotated the stored token since sent was read, that token is used without a
// new exchange.
func (c *Client) recoverToken(ctx context.Context, sent string) (string, error) {
	if current := storage.GetString(c.store, storage.KeyToken); current != "" && current != sent {
		return current, nil
	}

	ts, err := c.refresher.refresh(ctx, sent)
	if err != nil {
		return "", err
	}
	return ts.AccessToken, nil
}

// expire clears durable credentials after an unrecoverable 401
func (c *Client) expire(err *AuthExpiredError) error {
	if cerr := storage.ClearAuth(c.store); cerr != nil {
		c.logger.WithError(cerr).Warn("failed to clear stored credentials")
	}
	c.refresher.notify(nil)
	c.logger.WithError(err).Info("session expired")
	return err
}

// send performs a single HTTP round trip and classifies the result
func (c *Client) send(ctx context.Context, method, endpoint string, opts *RequestOptions, body []byte, token string) (*Response, error) {
	target := c.baseURL + endpoint
	if len(opts.Query) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + opts.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	logger := c.logger.WithRequest(method, endpoint, requestID)
	start := time.Now()

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(method, 0, time.Since(start))
		c.metrics.ObserveRequestError(method, "transport")
		logger.WithError(err).DebugContext(ctx, "request failed")
		return nil, &TransportError{Method: method, URL: target, Err: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	c.metrics.ObserveRequest(method, httpResp.StatusCode, time.Since(start))
	if err != nil {
		c.metrics.ObserveRequestError(method, "transport")
		return nil, &TransportError{Method: method, URL: target, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	logger.DebugContext(ctx, "request completed",
		"status", httpResp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		c.metrics.ObserveRequestError(method, "status")
		return nil, &StatusError{
			StatusCode: httpResp.StatusCode,
			Message:    errorMessage(respBody, fmt.Sprintf("HTTP error! status: %d", httpResp.StatusCode)),
			Body:       respBody,
		}
	}

	return newResponse(httpResp, respBody), nil
}

// recoverable reports whether a 401 on endpoint may be recovered. The
// refresh endpoint and every login endpoint are excluded.
func recoverable(endpoint string) bool {
	path := endpoint
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if strings.Contains(path, refreshPath) || strings.Contains(path, "/auth/login") {
		return false
	}
	return !strings.HasSuffix(path, "/login")
}

// encodeBody renders a request body. The result is replayable.
func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case json.RawMessage:
		return b, nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		return data, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		return data, nil
	}
}
