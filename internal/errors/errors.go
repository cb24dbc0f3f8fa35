package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Authentication errors (AUTH-001 to AUTH-099)
	ErrCodeNotLoggedIn        ErrorCode = "AUTH-001"
	ErrCodeSessionExpired     ErrorCode = "AUTH-002"
	ErrCodeLoginFailed        ErrorCode = "AUTH-003"
	ErrCodeRefreshFailed      ErrorCode = "AUTH-004"
	ErrCodeAlreadyLoggedIn    ErrorCode = "AUTH-005"
	ErrCodeMissingCredentials ErrorCode = "AUTH-006"

	// Backend API errors (API-001 to API-099)
	ErrCodeAPITransport ErrorCode = "API-001"
	ErrCodeAPIStatus    ErrorCode = "API-002"
	ErrCodeAPIMalformed ErrorCode = "API-003"
	ErrCodeAPINotFound  ErrorCode = "API-004"

	// Credential storage errors (STORE-001 to STORE-099)
	ErrCodeStoreParse  ErrorCode = "STORE-001"
	ErrCodeStoreRead   ErrorCode = "STORE-002"
	ErrCodeStoreWrite  ErrorCode = "STORE-003"
	ErrCodeStoreCrypto ErrorCode = "STORE-004"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid ErrorCode = "CONFIG-001"
	ErrCodeConfigRead    ErrorCode = "CONFIG-002"

	// Upload errors (UPLOAD-001 to UPLOAD-099)
	ErrCodeUploadFileMissing ErrorCode = "UPLOAD-001"
	ErrCodeUploadFailed      ErrorCode = "UPLOAD-002"

	// Usage errors (USAGE-001 to USAGE-099)
	ErrCodeInvalidPayload ErrorCode = "USAGE-001"
)

const docsBase = "https://github.com/impulsenest/teacherpanel#"

// PanelError represents an enhanced error with code, suggestions, and documentation
type PanelError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *PanelError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *PanelError) Unwrap() error {
	return e.Cause
}

// New creates a new PanelError
func New(code ErrorCode, message string) *PanelError {
	return &PanelError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new PanelError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *PanelError {
	return &PanelError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *PanelError) WithSuggestion(suggestion string) *PanelError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *PanelError) WithSuggestions(suggestions ...string) *PanelError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *PanelError) WithDocs(url string) *PanelError {
	e.DocsURL = url
	return e
}

// Common error constructors for frequently used errors

// NewNotLoggedInError is returned when a protected command runs without a valid session
func NewNotLoggedInError() *PanelError {
	return New(ErrCodeNotLoggedIn, "not logged in").
		WithSuggestion("Run 'teacherpanel auth login' to authenticate").
		WithDocs(docsBase + "authentication")
}

// NewSessionExpiredError is returned when the session could not be refreshed
func NewSessionExpiredError(cause error) *PanelError {
	return Wrap(ErrCodeSessionExpired, "session expired and could not be refreshed", cause).
		WithSuggestion("Run 'teacherpanel auth login' to start a new session").
		WithDocs(docsBase + "authentication")
}

// NewLoginFailedError wraps the message reported by the backend for a failed login
func NewLoginFailedError(message string) *PanelError {
	return New(ErrCodeLoginFailed, fmt.Sprintf("login failed: %s", message)).
		WithSuggestion("Check your login and password").
		WithSuggestion("Run 'teacherpanel auth forgot-password' if you lost your password")
}

// NewAlreadyLoggedInError is returned by guest-only commands
func NewAlreadyLoggedInError(user string) *PanelError {
	return New(ErrCodeAlreadyLoggedIn, fmt.Sprintf("already logged in as %s", user)).
		WithSuggestion("Run 'teacherpanel auth logout' first to switch accounts")
}

// NewTransportError creates a network error for the given backend address
func NewTransportError(baseURL string, cause error) *PanelError {
	return Wrap(ErrCodeAPITransport, fmt.Sprintf("cannot reach backend at %s", baseURL), cause).
		WithSuggestion("Check your network connection").
		WithSuggestion("Verify api.base_url with 'teacherpanel config view'")
}

// NewStatusError creates an error for a non-2xx backend response
func NewStatusError(status int, message string) *PanelError {
	code := ErrCodeAPIStatus
	if status == 404 {
		code = ErrCodeAPINotFound
	}
	return New(code, fmt.Sprintf("backend returned status %d: %s", status, message))
}

// NewStoreParseError creates an error for corrupted persisted credentials
func NewStoreParseError(key string, cause error) *PanelError {
	return Wrap(ErrCodeStoreParse, fmt.Sprintf("stored value %q is corrupted", key), cause).
		WithSuggestion("Run 'teacherpanel auth logout' to reset stored credentials")
}

// NewConfigInvalidError creates a configuration validation error
func NewConfigInvalidError(details string) *PanelError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Run 'teacherpanel config path' to locate the configuration file").
		WithDocs(docsBase + "configuration")
}

// NewUploadFileMissingError creates an error for an unreadable upload source
func NewUploadFileMissingError(path string, cause error) *PanelError {
	return Wrap(ErrCodeUploadFileMissing, fmt.Sprintf("cannot open upload file: %s", path), cause).
		WithSuggestion("Check if the file path is correct")
}

// NewInvalidPayloadError creates an error for an unparsable --data argument
func NewInvalidPayloadError(cause error) *PanelError {
	return Wrap(ErrCodeInvalidPayload, "request payload is not valid JSON", cause).
		WithSuggestion(`Pass a JSON object, e.g. --data '{"title":"Unit 1"}'`).
		WithSuggestion("Use --data @file.json to read the payload from a file")
}
