package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoRefreshCredentials is returned by the refresher when the durable
// store holds no refresh token or session id. No request is made and the
// store is left untouched.
var ErrNoRefreshCredentials = errors.New("no refresh token or session id available")

// TransportError reports a request that never produced an HTTP response
// (DNS failure, refused connection, cancelled context, ...).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx response. Message is the backend's JSON
// "message", else the raw body, else a generic status text.
type StatusError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *StatusError) Error() string {
	return e.Message
}

// IsUnauthorized reports whether err is a 401 StatusError.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == 401
}

// Interrupted reports whether err came from ctx being cancelled or timing
// out. Such failures say nothing about the credentials, so stored ones are
// kept.
func Interrupted(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}

// AuthExpiredError is surfaced when a 401 could not be recovered: the
// refresh exchange failed, or the replayed request failed again. Both the
// request failure and the refresh failure (when there is one) are reachable
// through errors.Is / errors.As.
type AuthExpiredError struct {
	// Err is the failure of the original request, or of the retry
	Err error
	// RefreshErr is the refresh exchange failure, nil when the refresh succeeded
	RefreshErr error
}

func (e *AuthExpiredError) Error() string {
	if e.RefreshErr != nil {
		return fmt.Sprintf("session expired: refresh failed: %v", e.RefreshErr)
	}
	return fmt.Sprintf("session expired: %v", e.Err)
}

func (e *AuthExpiredError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	if e.RefreshErr != nil {
		errs = append(errs, e.RefreshErr)
	}
	return errs
}

// MalformedResponseError reports a login or refresh payload that lacks
// required fields.
type MalformedResponseError struct {
	Endpoint string
	Missing  []string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("invalid response format from %s: missing %s", e.Endpoint, strings.Join(e.Missing, ", "))
}
