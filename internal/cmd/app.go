package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/impulsenest/teacherpanel/internal/api"
	"github.com/impulsenest/teacherpanel/internal/config"
	"github.com/impulsenest/teacherpanel/internal/errors"
	"github.com/impulsenest/teacherpanel/internal/log"
	"github.com/impulsenest/teacherpanel/internal/metrics"
	"github.com/impulsenest/teacherpanel/internal/push"
	"github.com/impulsenest/teacherpanel/internal/session"
	"github.com/impulsenest/teacherpanel/internal/storage"
	"github.com/impulsenest/teacherpanel/internal/telemetry"
	"github.com/impulsenest/teacherpanel/internal/ux"
	"github.com/impulsenest/teacherpanel/internal/version"
)

const shutdownTimeout = 5 * time.Second

type appKey struct{}

// App is everything a command needs, built once per invocation.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Metrics *metrics.Metrics
	Store   storage.Store
	Client  *api.Client
	Session *session.Manager

	Out    io.Writer
	ErrOut io.Writer

	flags      *CommandContext
	httpClient *http.Client
	span       trace.Span
	shutdown   func(context.Context) error
}

// Option overrides a collaborator of the App, mainly for tests.
type Option func(*options)

type options struct {
	store      storage.Store
	httpClient *http.Client
	notifier   push.Notifier
	out        io.Writer
	errOut     io.Writer

	app *App
}

// WithStore replaces the encrypted session file.
func WithStore(s storage.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithHTTPClient replaces the HTTP client used for backend calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithNotifier replaces the push-notification binding.
func WithNotifier(n push.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithOutput redirects command output and diagnostics.
func WithOutput(out, errOut io.Writer) Option {
	return func(o *options) {
		o.out = out
		o.errOut = errOut
	}
}

func newApp(cmd *cobra.Command, o *options) (*App, error) {
	ctx := cmd.Context()

	flags, err := NewCommandContext(cmd)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		return nil, err
	}

	info := version.GetInfo()
	level := cfg.Logging.Level
	if flags.LogLevel != "" {
		level = flags.LogLevel
	}
	logCfg := log.ConfigFromSettings(level, cfg.Logging.Format, info.Version)
	logCfg.Output = log.NewOutput(o.errOut)
	logger := log.New(logCfg)
	log.SetDefaultLogger(logger)

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = info.Version
	tcfg.Enabled = cfg.Telemetry.Enabled
	tcfg.Endpoint = cfg.Telemetry.Endpoint
	tcfg.Insecure = cfg.Telemetry.Insecure
	tcfg.SampleRate = cfg.Telemetry.SampleRate
	shutdown, err := telemetry.InitProvider(ctx, tcfg)
	if err != nil {
		logger.WithError(err).Warn("tracing disabled")
		shutdown = func(context.Context) error { return nil }
	}

	store := o.store
	if store == nil {
		fs, err := storage.NewFileStore(cfg.Storage.Path, cfg.SessionPassphrase())
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStoreRead, "failed to open session store", err)
		}
		store = fs
	}

	m := metrics.GetDefault()

	clientOpts := []api.Option{api.WithLogger(logger), api.WithMetrics(m)}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, api.WithHTTPClient(o.httpClient))
	}
	client := api.NewClient(api.Config{
		BaseURL:        cfg.API.BaseURL,
		Timeout:        cfg.API.Timeout,
		MaxAuthRetries: cfg.Auth.MaxAuthRetries,
		UserAgent:      info.UserAgent(),
	}, store, clientOpts...)

	notifier := o.notifier
	if notifier == nil {
		notifier = push.Nop{}
		if cfg.PushEnabled() {
			notifier = push.NewOneSignal(cfg.Push.OneSignalAppID, cfg.Push.OneSignalAPIKey)
		}
	}

	mgr := session.NewManager(client,
		session.WithNotifier(notifier),
		session.WithLogger(logger),
		session.WithMetrics(m),
		session.WithRefreshBuffer(cfg.Auth.RefreshBuffer),
	)

	ctx, span := telemetry.StartCommandSpan(ctx, cmd.CommandPath())
	cmd.SetContext(ctx)

	mgr.Initialize(ctx)

	return &App{
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
		Store:      store,
		Client:     client,
		Session:    mgr,
		Out:        o.out,
		ErrOut:     o.errOut,
		flags:      flags,
		httpClient: o.httpClient,
		span:       span,
		shutdown:   shutdown,
	}, nil
}

// appFrom returns the App attached by the root command's pre-run hook.
func appFrom(cmd *cobra.Command) (*App, error) {
	if app, ok := cmd.Context().Value(appKey{}).(*App); ok {
		return app, nil
	}
	return nil, fmt.Errorf("%s: application not initialized", cmd.CommandPath())
}

// Print writes data in the selected output format.
func (a *App) Print(data any) error {
	f, err := ux.NewFormatter(a.flags.Format, &ux.FormatterOptions{
		Writer:  a.Out,
		NoColor: a.flags.NoColor,
	})
	if err != nil {
		return err
	}
	return f.Format(data)
}

// Styles returns the text styles honoring --no-color.
func (a *App) Styles() ux.Styles {
	if a.flags.NoColor {
		return ux.PlainStyles()
	}
	return ux.DefaultStyles()
}

// Close waits for background work, flushes traces and exports metrics.
func (a *App) Close(err error) {
	a.Session.Wait()

	if err != nil {
		telemetry.RecordError(a.span, err)
	} else {
		telemetry.RecordSuccess(a.span)
	}
	a.span.End()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := a.shutdown(ctx); serr != nil {
		a.Logger.WithError(serr).Warn("failed to flush traces")
	}

	if path := a.Config.Metrics.Textfile; path != "" {
		if merr := metrics.WriteTextfile(path, prometheus.DefaultGatherer); merr != nil {
			a.Logger.WithError(merr).Warn("failed to export metrics", "path", path)
		}
	}
}
