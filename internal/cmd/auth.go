package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/impulsenest/teacherpanel/internal/api"
	"github.com/impulsenest/teacherpanel/internal/errors"
	"github.com/impulsenest/teacherpanel/internal/session"
	"github.com/impulsenest/teacherpanel/internal/tui"
	"github.com/impulsenest/teacherpanel/internal/ux"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Log in, log out and inspect the session",
	}

	cmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newRefreshCmd(),
		newForgotPasswordCmd(),
		newResetPasswordCmd(),
	)
	return cmd
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in as a teacher",
		Long: `Log in with your teacher login and password.

Missing values are prompted for when a terminal is attached. The session
replaces any previous one on this machine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			force, _ := cmd.Flags().GetBool("force")
			if !force && app.Session.IsAuthenticated() && app.Session.CheckAuth(ctx) {
				return errors.NewAlreadyLoggedInError(displayName(app.Session.Snapshot()))
			}

			var creds api.Credentials
			creds.Login, _ = cmd.Flags().GetString("login")
			creds.Password, _ = cmd.Flags().GetString("password")

			if (creds.Login == "" || creds.Password == "") && tui.ShouldPrompt() {
				if err := tui.PromptForLogin(ctx, &creds); err != nil {
					return err
				}
			}
			if creds.Login == "" || creds.Password == "" {
				return errors.New(errors.ErrCodeMissingCredentials, "login and password are required").
					WithSuggestion("Pass --login and --password, or run in a terminal to be prompted")
			}

			result := app.Session.Login(ctx, creds)
			if !result.Success {
				return errors.NewLoginFailedError(result.Error)
			}
			return app.Print(sessionDetail("Logged in", app.Session.Snapshot()))
		},
	}

	cmd.Flags().StringP("login", "l", "", "teacher login")
	cmd.Flags().StringP("password", "p", "", "password (prompted when omitted)")
	cmd.Flags().Bool("force", false, "log in again even with a valid session")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and erase stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			app.Session.Logout(cmd.Context())
			return app.Print("Logged out")
		},
	}
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			check, _ := cmd.Flags().GetBool("check")
			if check && !app.Session.CheckAuth(cmd.Context()) {
				return errors.NewNotLoggedInError()
			}

			s := app.Session.Snapshot()
			if !s.Authenticated() {
				return app.Print(ux.Detail{
					Title:  "Not logged in",
					Fields: []ux.Field{{Key: "store", Value: app.Config.Storage.Path}},
				})
			}
			return app.Print(sessionDetail("Logged in", s))
		},
	}
	cmd.Flags().Bool("check", false, "validate the session against the backend, refreshing it if needed")
	return cmd
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if !app.Session.RefreshAccessToken(cmd.Context()) {
				return errors.New(errors.ErrCodeRefreshFailed, "session could not be refreshed").
					WithSuggestion("Run 'teacherpanel auth login' to start a new session")
			}
			return app.Print(sessionDetail("Session refreshed", app.Session.Snapshot()))
		},
	}
}

func newForgotPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			email, _ := cmd.Flags().GetString("email")
			if _, err := app.Client.Auth().ForgotPassword(cmd.Context(), email); err != nil {
				return err
			}
			return app.Print("Password reset instructions sent to " + email)
		},
	}
	cmd.Flags().String("email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newResetPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			var req api.ResetPasswordRequest
			req.Token, _ = cmd.Flags().GetString("token")
			req.NewPassword, _ = cmd.Flags().GetString("password")

			if req.NewPassword == "" && tui.ShouldPrompt() {
				req.NewPassword, err = tui.PromptForString(cmd.Context(), tui.Prompt{
					Message:  "New password",
					Required: true,
					Secret:   true,
				})
				if err != nil {
					return err
				}
			}
			if req.NewPassword == "" {
				return errors.New(errors.ErrCodeMissingCredentials, "a new password is required").
					WithSuggestion("Pass --password, or run in a terminal to be prompted")
			}

			if _, err := app.Client.Auth().ResetPassword(cmd.Context(), req); err != nil {
				return err
			}
			return app.Print("Password updated. Run 'teacherpanel auth login' to sign in.")
		},
	}
	cmd.Flags().String("token", "", "token from the reset email")
	cmd.Flags().String("password", "", "new password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func sessionDetail(title string, s session.Session) ux.Detail {
	expires := ""
	if !s.ExpiresAt.IsZero() {
		expires = api.FormatTimestamp(s.ExpiresAt)
	}
	return ux.Detail{
		Title: title,
		Fields: []ux.Field{
			{Key: "user", Value: displayName(s)},
			{Key: "id", Value: s.User.ID()},
			{Key: "role", Value: s.User.Role()},
			{Key: "phone", Value: s.User.Phone()},
			{Key: "session", Value: s.SessionID},
			{Key: "expires", Value: expires},
		},
	}
}

func displayName(s session.Session) string {
	if name := strings.TrimSpace(s.User.DisplayName()); name != "" {
		return name
	}
	return s.User.ID()
}
