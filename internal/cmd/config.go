package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/impulsenest/teacherpanel/internal/config"
	"github.com/impulsenest/teacherpanel/internal/ux"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	view := &cobra.Command{
		Use:   "view",
		Short: "Print the configuration after defaults, file and environment are merged",
		Long: `Print the effective configuration. Secrets such as the session passphrase
and the OneSignal API key are never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if app.flags.Format == "text" {
				return app.Print(configDetail(app.Config))
			}
			return app.Print(app.Config)
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print where configuration and the session are read from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			file := app.Config.File()
			if file == "" {
				file, _ = config.DefaultPath()
				file += " (not found, defaults in use)"
			}
			return app.Print(ux.Detail{
				Fields: []ux.Field{
					{Key: "config", Value: file},
					{Key: "session", Value: app.Config.Storage.Path},
				},
			})
		},
	}

	cmd.AddCommand(view, path)
	return cmd
}

func configDetail(c *config.Config) ux.Detail {
	push := "disabled"
	if c.PushEnabled() {
		push = "onesignal (" + c.Push.OneSignalAppID + ")"
	}
	telemetry := "disabled"
	if c.Telemetry.Enabled {
		telemetry = c.Telemetry.Endpoint
		if telemetry == "" {
			telemetry = "enabled"
		}
	}
	metricsFile := "disabled"
	if c.Metrics.Textfile != "" {
		metricsFile = c.Metrics.Textfile
	}
	timeout := "none"
	if c.API.Timeout > 0 {
		timeout = c.API.Timeout.String()
	}
	return ux.Detail{
		Title: "Configuration",
		Fields: []ux.Field{
			{Key: "api.base_url", Value: c.API.BaseURL},
			{Key: "api.timeout", Value: timeout},
			{Key: "refresh_buffer", Value: c.Auth.RefreshBuffer.String()},
			{Key: "auth_retries", Value: strconv.Itoa(c.Auth.MaxAuthRetries)},
			{Key: "storage.path", Value: c.Storage.Path},
			{Key: "push", Value: push},
			{Key: "logging", Value: c.Logging.Level + "/" + c.Logging.Format},
			{Key: "telemetry", Value: telemetry},
			{Key: "metrics.textfile", Value: metricsFile},
		},
	}
}
