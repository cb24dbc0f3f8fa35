// Package config loads teacherpanel settings from ~/.teacherpanel/config.yaml,
// a .env file and TEACHERPANEL_* environment variables using Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	panelerrors "github.com/impulsenest/teacherpanel/internal/errors"
)

const (
	// EnvPrefix prefixes every environment override, e.g. TEACHERPANEL_API_BASE_URL.
	EnvPrefix = "TEACHERPANEL"

	dirName  = ".teacherpanel"
	fileName = "config.yaml"
)

// Config is the full teacherpanel configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api" json:"api" yaml:"api"`
	Auth      AuthConfig      `mapstructure:"auth" json:"auth" yaml:"auth"`
	Storage   StorageConfig   `mapstructure:"storage" json:"storage" yaml:"storage"`
	Push      PushConfig      `mapstructure:"push" json:"push" yaml:"push"`
	Logging   LoggingConfig   `mapstructure:"logging" json:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry" yaml:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics" json:"metrics" yaml:"metrics"`

	// path of the file that was read, empty when only defaults applied
	file string
}

// APIConfig points the client at the backend.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url" json:"base_url" yaml:"base_url"`
	// Timeout bounds each HTTP call. Zero leaves the transport default.
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// AuthConfig tunes session refresh.
type AuthConfig struct {
	RefreshBuffer  time.Duration `mapstructure:"refresh_buffer" json:"refresh_buffer" yaml:"refresh_buffer"`
	MaxAuthRetries int           `mapstructure:"max_auth_retries" json:"max_auth_retries" yaml:"max_auth_retries"`
}

// StorageConfig locates the encrypted session file.
type StorageConfig struct {
	Path       string `mapstructure:"path" json:"path" yaml:"path"`
	Passphrase string `mapstructure:"passphrase" json:"-" yaml:"-"`
}

// PushConfig enables the OneSignal binding when both values are set.
type PushConfig struct {
	OneSignalAppID  string `mapstructure:"onesignal_app_id" json:"onesignal_app_id,omitempty" yaml:"onesignal_app_id,omitempty"`
	OneSignalAPIKey string `mapstructure:"onesignal_api_key" json:"-" yaml:"-"`
}

// LoggingConfig selects the log level and format.
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Insecure   bool    `mapstructure:"insecure" json:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" json:"sample_rate" yaml:"sample_rate"`
}

// MetricsConfig exports counters after each command.
type MetricsConfig struct {
	// Textfile is rewritten in the Prometheus text format when set, for the
	// node_exporter textfile collector.
	Textfile string `mapstructure:"textfile" json:"textfile,omitempty" yaml:"textfile,omitempty"`
}

// Dir returns ~/.teacherpanel.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// DefaultPath returns ~/.teacherpanel/config.yaml.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

func setDefaults(v *viper.Viper) {
	dir, _ := Dir()

	v.SetDefault("api.base_url", "http://localhost:3000")
	v.SetDefault("api.timeout", "0s")
	v.SetDefault("auth.refresh_buffer", "5m")
	v.SetDefault("auth.max_auth_retries", 1)
	v.SetDefault("storage.path", filepath.Join(dir, "session.json"))
	v.SetDefault("storage.passphrase", "")
	v.SetDefault("push.onesignal_app_id", "")
	v.SetDefault("push.onesignal_api_key", "")
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.sample_rate", 1.0)
	v.SetDefault("metrics.textfile", "")
}

// LoadEnvFiles loads .env and .env.local from the working directory.
// Variables already set in the environment are never overridden.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load reads configuration. An explicit path must exist; otherwise the
// default file is optional and defaults apply. Environment variables
// override the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, panelerrors.Wrap(panelerrors.ErrCodeConfigRead, "failed to read configuration", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, panelerrors.Wrap(panelerrors.ErrCodeConfigRead, "failed to decode configuration", err)
	}
	cfg.file = v.ConfigFileUsed()
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Metrics.Textfile = expandHome(cfg.Metrics.Textfile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail later at first use.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return panelerrors.NewConfigInvalidError(fmt.Sprintf("api.base_url %q must be an http(s) URL", c.API.BaseURL))
	}
	if c.API.Timeout < 0 {
		return panelerrors.NewConfigInvalidError("api.timeout must not be negative")
	}
	if c.Auth.RefreshBuffer < 0 {
		return panelerrors.NewConfigInvalidError("auth.refresh_buffer must not be negative")
	}
	if c.Auth.MaxAuthRetries < 0 {
		return panelerrors.NewConfigInvalidError("auth.max_auth_retries must not be negative")
	}
	if c.Storage.Path == "" {
		return panelerrors.NewConfigInvalidError("storage.path must be set")
	}
	if (c.Push.OneSignalAppID == "") != (c.Push.OneSignalAPIKey == "") {
		return panelerrors.NewConfigInvalidError("push.onesignal_app_id and push.onesignal_api_key must be set together")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return panelerrors.NewConfigInvalidError("telemetry.sample_rate must be between 0 and 1")
	}
	return nil
}

// File returns the configuration file that was read, or "".
func (c *Config) File() string {
	return c.file
}

// PushEnabled reports whether OneSignal credentials are configured.
func (c *Config) PushEnabled() bool {
	return c.Push.OneSignalAppID != "" && c.Push.OneSignalAPIKey != ""
}

// SessionPassphrase returns the configured passphrase, or one derived from
// the local user and host so the session file is bound to this machine.
func (c *Config) SessionPassphrase() string {
	if c.Storage.Passphrase != "" {
		return c.Storage.Passphrase
	}
	host, _ := os.Hostname()
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}
	return "teacherpanel:" + user + "@" + host
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
