// Package cmd is the teacherpanel command tree.
package cmd

import (
	"context"
	stderrors "errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/impulsenest/teacherpanel/internal/errors"
	"github.com/impulsenest/teacherpanel/internal/ux"
)

const (
	// annotationAuth marks commands that need a valid session
	annotationAuth = "teacherpanel/auth"
	authRequired   = "required"

	// annotationNoApp marks commands that run without configuration
	annotationNoApp = "teacherpanel/no-app"
)

func newRootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "teacherpanel",
		Short: "Command-line client for the teacher administration panel",
		Long: `teacherpanel manages courses, groups, students, attendance and learning
content on the teacher administration backend.

Log in once with 'teacherpanel auth login'. The session is kept in an
encrypted file and refreshed automatically while it is valid.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !needsApp(cmd) {
				return nil
			}

			app, err := newApp(cmd, o)
			if err != nil {
				return err
			}
			o.app = app
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, app))

			return authorize(cmd, app)
		},
	}

	root.PersistentFlags().String("config", "", "config file (default is $HOME/.teacherpanel/config.yaml)")
	root.PersistentFlags().StringP("format", "o", "text", "output format: text, json or yaml")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn or error")
	root.PersistentFlags().Bool("no-color", false, "disable colored output")

	root.SetOut(o.out)
	root.SetErr(o.errOut)

	root.AddCommand(
		newAuthCmd(),
		newConfigCmd(),
		newDoctorCmd(),
		newVersionCmd(),
		newUploadCmd(),
		newFilesCmd(),
		newAttendanceCmd(),
	)
	for _, def := range resourceDefs() {
		root.AddCommand(newResourceCmd(def))
	}

	return root
}

// needsApp reports whether cmd reads configuration or talks to the backend.
func needsApp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationNoApp] == "true" {
			return false
		}
		if c.Name() == "help" || c.Name() == cobra.ShellCompRequestCmd || c.Name() == "completion" {
			return false
		}
	}
	return true
}

// authorize validates the session before commands marked as protected.
func authorize(cmd *cobra.Command, app *App) error {
	if !requiresAuth(cmd) {
		return nil
	}
	if !app.Session.CheckAuth(cmd.Context()) {
		return errors.NewNotLoggedInError()
	}
	return nil
}

func requiresAuth(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[annotationAuth] == authRequired {
			return true
		}
	}
	return false
}

func protected() map[string]string {
	return map[string]string{annotationAuth: authRequired}
}

// Run executes the command tree with args and releases what the
// invocation acquired. Errors come back as coded PanelErrors when their type
// is known.
func Run(ctx context.Context, args []string, opts ...Option) error {
	o := &options{out: os.Stdout, errOut: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	root := newRootCmd(o)
	root.SetArgs(args)

	err := ux.EnhanceError(root.ExecuteContext(ctx))

	if o.app != nil {
		var panelErr *errors.PanelError
		if stderrors.As(err, &panelErr) {
			o.app.Metrics.ObserveError(string(panelErr.Code))
		}
		if err != nil {
			o.app.Logger.WithError(err).Debug("command failed")
		}
		o.app.Close(err)
	}
	return err
}

// Execute runs teacherpanel with the process arguments.
func Execute(ctx context.Context) error {
	return Run(ctx, os.Args[1:])
}

// ReportError prints err the way the CLI shows failures.
func ReportError(w io.Writer, err error, noColor bool) {
	styles := ux.DefaultStyles()
	if noColor {
		styles = ux.PlainStyles()
	}
	ux.RenderError(w, err, styles)
}
