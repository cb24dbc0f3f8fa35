package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	panelerrors "github.com/impulsenest/teacherpanel/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.API.BaseURL)
	assert.Equal(t, time.Duration(0), cfg.API.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Auth.RefreshBuffer)
	assert.Equal(t, 1, cfg.Auth.MaxAuthRetries)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.False(t, cfg.PushEnabled())
	assert.Equal(t, "session.json", filepath.Base(cfg.Storage.Path))
	assert.Empty(t, cfg.File())
	assert.Empty(t, cfg.Metrics.Textfile)
}

func TestLoadMetricsTextfileExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TEACHERPANEL_METRICS_TEXTFILE", "~/metrics/teacherpanel.prom")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "metrics", "teacherpanel.prom"), cfg.Metrics.Textfile)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: https://api.impulse.uz
  timeout: 30s
auth:
  refresh_buffer: 2m
  max_auth_retries: 0
storage:
  path: ~/panel/session.json
push:
  onesignal_app_id: app-1
  onesignal_api_key: key-1
logging:
  level: debug
  format: json
`)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.impulse.uz", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.Auth.RefreshBuffer)
	assert.Equal(t, 0, cfg.Auth.MaxAuthRetries)
	assert.True(t, cfg.PushEnabled())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, path, cfg.File())

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "panel", "session.json"), cfg.Storage.Path)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "api:\n  base_url: https://file.example.com\n")
	t.Setenv("TEACHERPANEL_API_BASE_URL", "https://env.example.com")
	t.Setenv("TEACHERPANEL_AUTH_MAX_AUTH_RETRIES", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.API.BaseURL)
	assert.Equal(t, 3, cfg.Auth.MaxAuthRetries)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	var panelErr *panelerrors.PanelError
	require.ErrorAs(t, err, &panelErr)
	assert.Equal(t, panelerrors.ErrCodeConfigRead, panelErr.Code)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "bad base url", content: "api:\n  base_url: not-a-url\n", want: "api.base_url"},
		{name: "negative retries", content: "auth:\n  max_auth_retries: -1\n", want: "max_auth_retries"},
		{name: "negative buffer", content: "auth:\n  refresh_buffer: -1m\n", want: "refresh_buffer"},
		{name: "half push config", content: "push:\n  onesignal_app_id: app\n", want: "onesignal"},
		{name: "sample rate", content: "telemetry:\n  sample_rate: 2\n", want: "sample_rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))

			var panelErr *panelerrors.PanelError
			require.ErrorAs(t, err, &panelErr)
			assert.Equal(t, panelerrors.ErrCodeConfigInvalid, panelErr.Code)
			assert.Contains(t, panelErr.Message, tt.want)
		})
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("TEACHERPANEL_LOGGING_LEVEL=error\n"), 0o600))

	t.Chdir(dir)

	t.Setenv("TEACHERPANEL_LOGGING_LEVEL", "")
	require.NoError(t, os.Unsetenv("TEACHERPANEL_LOGGING_LEVEL"))

	LoadEnvFiles()
	assert.Equal(t, "error", os.Getenv("TEACHERPANEL_LOGGING_LEVEL"))
	require.NoError(t, os.Unsetenv("TEACHERPANEL_LOGGING_LEVEL"))
}

func TestSessionPassphrase(t *testing.T) {
	cfg := &Config{Storage: StorageConfig{Passphrase: "explicit"}}
	assert.Equal(t, "explicit", cfg.SessionPassphrase())

	cfg.Storage.Passphrase = ""
	assert.Contains(t, cfg.SessionPassphrase(), "teacherpanel:")
}
