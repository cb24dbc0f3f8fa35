package exitcode

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/impulsenest/teacherpanel/internal/api"
	"github.com/impulsenest/teacherpanel/internal/errors"
	"github.com/impulsenest/teacherpanel/internal/storage"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ConfigError indicates an unreadable or invalid configuration
	ConfigError = 3

	// StorageError indicates the session store could not be read or written
	StorageError = 4

	// AuthError indicates an authentication or authorization failure
	AuthError = 5

	// NetworkError indicates a network connectivity issue
	NetworkError = 6

	// Interrupted indicates the user cancelled with Ctrl+C
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	code := DetermineExitCode(err)
	Exit(code)
}

// DetermineExitCode maps an error to an exit code. Typed errors anywhere in
// the chain decide; cobra's untyped usage errors are matched by message.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var panelErr *errors.PanelError
	if stderrors.As(err, &panelErr) {
		if code := fromErrorCode(panelErr.Code); code != GeneralError {
			return code
		}
	}

	var (
		expired   *api.AuthExpiredError
		transport *api.TransportError
		status    *api.StatusError
		parseErr  *storage.ParseError
	)
	switch {
	case stderrors.As(err, &expired), stderrors.Is(err, api.ErrNoRefreshCredentials):
		return AuthError
	case stderrors.As(err, &transport):
		return NetworkError
	case stderrors.As(err, &status):
		if status.StatusCode == 401 || status.StatusCode == 403 {
			return AuthError
		}
		return GeneralError
	case stderrors.As(err, &parseErr):
		return StorageError
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "unknown flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "accepts ") {
		return UsageError
	}

	return GeneralError
}

func fromErrorCode(code errors.ErrorCode) int {
	prefix, _, _ := strings.Cut(string(code), "-")
	switch prefix {
	case "AUTH":
		return AuthError
	case "CONFIG":
		return ConfigError
	case "STORE":
		return StorageError
	case "USAGE":
		return UsageError
	case "API":
		if code == errors.ErrCodeAPITransport {
			return NetworkError
		}
	}
	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case ConfigError:
		return "Configuration error"
	case StorageError:
		return "Session storage error"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
