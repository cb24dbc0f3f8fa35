package ux

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/impulsenest/teacherpanel/internal/api"
	"github.com/impulsenest/teacherpanel/internal/errors"
	"github.com/impulsenest/teacherpanel/internal/storage"
)

// EnhanceError converts the client's typed errors into coded PanelErrors
// carrying recovery suggestions. Errors that already are PanelErrors, and
// untyped errors, are returned unchanged.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}

	var panelErr *errors.PanelError
	if stderrors.As(err, &panelErr) {
		return err
	}

	var (
		expired   *api.AuthExpiredError
		transport *api.TransportError
		status    *api.StatusError
		malformed *api.MalformedResponseError
		parseErr  *storage.ParseError
	)
	switch {
	case stderrors.As(err, &expired), stderrors.Is(err, api.ErrNoRefreshCredentials):
		return errors.NewSessionExpiredError(err)
	case stderrors.As(err, &transport):
		return errors.NewTransportError(origin(transport.URL), transport.Err)
	case stderrors.As(err, &status):
		if status.StatusCode == 401 {
			return errors.NewNotLoggedInError()
		}
		return errors.NewStatusError(status.StatusCode, status.Message)
	case stderrors.As(err, &malformed):
		return errors.Wrap(errors.ErrCodeAPIMalformed, "unexpected response from backend", err)
	case stderrors.As(err, &parseErr):
		return errors.NewStoreParseError(parseErr.Key, parseErr.Err)
	}
	return err
}

// FormatError provides consistent error formatting with context
func FormatError(err error, context string) error {
	if err == nil {
		return nil
	}

	enhanced := EnhanceError(err)
	if context != "" {
		return fmt.Errorf("%s: %w", context, enhanced)
	}
	return enhanced
}

// RenderError writes err for a terminal: the message in the error style and
// any suggestions beneath it.
func RenderError(w io.Writer, err error, styles Styles) {
	if err == nil {
		return
	}

	var panelErr *errors.PanelError
	if !stderrors.As(err, &panelErr) {
		fmt.Fprintln(w, styles.Error.Render("Error:")+" "+err.Error())
		return
	}

	msg := panelErr.Message
	if panelErr.Cause != nil {
		msg += ": " + panelErr.Cause.Error()
	}
	fmt.Fprintf(w, "%s %s %s\n", styles.Error.Render("Error:"), styles.Muted.Render("["+string(panelErr.Code)+"]"), msg)

	if len(panelErr.Suggestions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.Warning.Render("Suggestions:"))
		for _, s := range panelErr.Suggestions {
			fmt.Fprintf(w, "  • %s\n", s)
		}
	}
	if panelErr.DocsURL != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.Muted.Render("Documentation: "+panelErr.DocsURL))
	}
}

// origin trims a request URL to scheme://host.
func origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.SplitN(raw, "?", 2)[0]
	}
	return u.Scheme + "://" + u.Host
}
