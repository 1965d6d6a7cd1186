// Package bootstrap wires all dependencies and starts the application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/artpar/crudkit/adapters/eventpub"
	apihttp "github.com/artpar/crudkit/adapters/http"
	"github.com/artpar/crudkit/adapters/metrics"
	"github.com/artpar/crudkit/adapters/sqlstore"
	"github.com/artpar/crudkit/config"
	"github.com/artpar/crudkit/core/events"
	"github.com/artpar/crudkit/core/openapi"
	"github.com/artpar/crudkit/core/permission"
	"github.com/artpar/crudkit/core/view"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Pool       *sqlstore.Pool
	Router     chi.Router
	HTTPServer *http.Server
	Metrics    *metrics.Collector
	Events     *events.Bus
	OpenAPI    *openapi.Service
	Views      []Mounted

	holder     *config.Holder
	publishers []io.Closer
}

// Options provides optional settings for application initialization.
type Options struct {
	Version string

	// Logger replaces the logger built from the logging config.
	Logger *zerolog.Logger
}

// New initializes the application from cfg. On error every resource opened
// so far is released.
func New(cfg *config.Config, opts Options) (_ *App, err error) {
	a := &App{Config: cfg}
	if opts.Logger != nil {
		a.Logger = *opts.Logger
	} else {
		a.Logger = setupLogger(cfg.Logging)
	}

	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
	}

	poolOpts := sqlstore.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	if a.Metrics != nil {
		poolOpts.OnAcquire = a.Metrics.ObserveAcquire
	}
	a.Pool, err = sqlstore.Open(cfg.Database.Driver, cfg.Database.DSN, poolOpts)
	if err != nil {
		return nil, err
	}
	a.Logger.Info().
		Str("driver", cfg.Database.Driver).
		Str("dsn", cfg.Database.DSN).
		Msg("database opened")

	a.Events = events.NewBus(a.Logger)
	if err = a.setupPublisher(cfg.Events); err != nil {
		return nil, err
	}

	defs, err := cfg.Definitions()
	if err != nil {
		return nil, err
	}

	deps := Deps{
		Logger:       a.Logger,
		Events:       a.Events,
		Checker:      permission.Header{Name: cfg.Permissions.Header},
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}
	if a.Metrics != nil {
		deps.Observer = a.Metrics
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	a.Views, err = BuildViews(ctx, a.Pool, defs, cfg.Server.BasePath, deps)
	if err != nil {
		return nil, err
	}

	a.Router = a.newRouter(opts.Version)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	a.Logger.Info().Int("models", len(a.Views)).Msg("application initialized")
	return a, nil
}

// NewWithHolder initializes the application from the holder's current
// config and records reload outcomes in metrics.
func NewWithHolder(h *config.Holder, opts Options) (*App, error) {
	a, err := New(h.Get(), opts)
	if err != nil {
		return nil, err
	}
	a.holder = h
	if a.Metrics != nil {
		h.OnReload(a.Metrics.ConfigReloaded)
	}
	return a, nil
}

func (a *App) newRouter(version string) chi.Router {
	cfg := a.Config
	routerCfg := apihttp.RouterConfig{
		Version:        version,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	if a.Metrics != nil {
		routerCfg.MetricsPath = cfg.Metrics.Path
		routerCfg.MetricsHandler = a.Metrics.Handler()
	}

	r := apihttp.NewRouter(apihttp.NewHealthHandler(a.Pool), a.Logger, routerCfg)

	var gen *openapi.Generator
	if cfg.OpenAPI.Enabled {
		gen = openapi.NewGenerator(openapi.Info{
			Title:   cfg.OpenAPI.Title,
			Version: cfg.OpenAPI.Version,
		})
	}

	for _, m := range a.Views {
		m.ViewSet.Mount(r, m.Path)
		if gen != nil {
			gen.Add(m.Path, m.ViewSet)
		}
		a.Logger.Debug().
			Str("model", m.Definition.Name).
			Str("path", m.Path).
			Interface("actions", m.ViewSet.Actions()).
			Msg("viewset mounted")
	}

	if gen != nil {
		a.OpenAPI = openapi.NewService(gen)
		a.OpenAPI.Mount(r)
	}
	return r
}

func (a *App) setupPublisher(cfg config.EventsConfig) error {
	switch cfg.Driver {
	case "nats":
		p, err := eventpub.NewNATS(eventpub.NATSConfig{URL: cfg.URL, Prefix: cfg.Prefix})
		if err != nil {
			return err
		}
		a.forward(p)
	case "redis":
		p, err := eventpub.NewRedisStreams(eventpub.RedisConfig{
			URL:    cfg.URL,
			Stream: cfg.Stream,
			MaxLen: cfg.MaxLen,
		})
		if err != nil {
			return err
		}
		a.forward(p)
	default:
		return nil
	}
	a.Logger.Info().Str("driver", cfg.Driver).Msg("forwarding change events")
	return nil
}

type closingPublisher interface {
	events.Publisher
	io.Closer
}

func (a *App) forward(p closingPublisher) {
	a.Events.Forward("*", p)
	a.publishers = append(a.publishers, p)
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.Router
}

// Run starts the HTTP server and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	if a.holder != nil {
		a.holder.WatchSignals()
		if err := a.holder.WatchFile(); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watch disabled")
		}
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		a.close()
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application: the HTTP server drains, then
// publishers and the pool close.
func (a *App) Shutdown() error {
	timeout := a.Config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var err error
	if a.HTTPServer != nil {
		if err = a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	a.close()
	a.Logger.Info().Msg("shutdown complete")
	return err
}

func (a *App) close() {
	if a.holder != nil {
		a.holder.Stop()
	}

	for _, p := range a.publishers {
		if err := p.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("event publisher close error")
		}
	}
	a.publishers = nil

	if a.Pool != nil {
		if err := a.Pool.Close(); err != nil {
			a.Logger.Error().Err(err).Msg("database close error")
		}
		a.Pool = nil
	}
}

// Routes lists every mounted route, in mount order.
func (a *App) Routes() []view.Route {
	var routes []view.Route
	for _, m := range a.Views {
		routes = append(routes, m.ViewSet.Routes(m.Path)...)
	}
	return routes
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
