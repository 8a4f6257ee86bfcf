// Package app wires the local store, the remote gateway and the synchronizer
// into the engine behind the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"todosync/internal/backend/googletasks"
	"todosync/internal/backend/rest"
	"todosync/internal/config"
	"todosync/internal/httpapi"
	"todosync/internal/logging"
	"todosync/internal/notify"
	"todosync/internal/remote"
	"todosync/internal/retry"
	"todosync/internal/service"
	"todosync/internal/store/sqlite"
	"todosync/internal/syncer"
	"todosync/internal/tasks"
)

const readHeaderTimeout = 10 * time.Second

// App owns the database and builds the synchronizer on demand, so commands
// that only touch local data work without remote settings.
type App struct {
	cfg    *config.Config
	logger zerolog.Logger
	logOut io.Writer
	store  *sqlite.Store
	tasks  *tasks.Service
}

// Option configures an App.
type Option func(*App)

// WithLogOutput sets where serve writes its logs. Defaults to stdout.
func WithLogOutput(w io.Writer) Option {
	return func(a *App) { a.logOut = w }
}

// Open opens the database at cfg.DatabasePath. cfg.Settings must be loaded.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	a := &App{
		cfg:    cfg,
		logger: logger,
		logOut: os.Stdout,
	}
	for _, opt := range opts {
		opt(a)
	}

	if cfg.Settings.DBPath == "" {
		if err := cfg.EnsureDir(); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	store, err := sqlite.Open(ctx, cfg.DatabasePath(), logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.tasks = tasks.New(store, logger, tasks.WithStepDelay(cfg.Settings.HTTP.CompleteAllStepDelay))
	return a, nil
}

// Tasks returns the local task service.
func (a *App) Tasks() service.Service {
	return a.tasks
}

// RunPass runs one synchronization pass.
func (a *App) RunPass(ctx context.Context) (syncer.Report, error) {
	orch, err := a.orchestrator(ctx, a.logger)
	if err != nil {
		return syncer.Report{}, err
	}
	return orch.RunPass(ctx)
}

// Serve runs the scheduler and the HTTP API until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	s := a.cfg.Settings
	logger, err := logging.New(s.Env, s.LogLevel, a.logOut)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrNotConfigured, err)
	}

	orch, err := a.orchestrator(ctx, logger)
	if err != nil {
		return err
	}
	schedule, err := syncer.ParseSchedule(s.Sync.Interval)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrNotConfigured, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hub := notify.NewHub(logger)
	svc := tasks.New(a.store, logger, tasks.WithStepDelay(s.HTTP.CompleteAllStepDelay))
	handler := httpapi.New(ctx, logger, svc, orch, hub)
	server := &http.Server{
		Addr:              s.HTTP.Addr,
		Handler:           handler.Router(s.Env, hub),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		syncer.NewScheduler(orch, schedule, s.Sync.RunOnStart, logger).Run(ctx)
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", s.HTTP.Addr).Msg("setting up http server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case err := <-errCh:
		serveErr = fmt.Errorf("failed to listen and serve http: %w", err)
	}
	cancel()

	logger.Info().Msg("shutting down http server")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), s.HTTP.ShutdownTimeout)
	defer cancelShutdown()

	// Hijacked websocket connections are not tracked by Shutdown.
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil && serveErr == nil {
		serveErr = fmt.Errorf("failed to shut down http server: %w", err)
	}
	handler.Wait()
	wg.Wait()

	logger.Info().Msg("shut down http server")
	return serveErr
}

// Close closes the database.
func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) orchestrator(ctx context.Context, logger zerolog.Logger) (*syncer.Orchestrator, error) {
	gateway, err := OpenGateway(ctx, a.cfg, logger)
	if err != nil {
		return nil, err
	}

	metrics, err := syncer.NewMetrics(otel.Meter(syncer.MeterName))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to create metrics, continuing without")
		metrics = syncer.NoopMetrics()
	}

	exec := retry.New(retry.Config{
		Attempts:  a.cfg.Settings.Retry.Attempts,
		BaseDelay: a.cfg.Settings.Retry.BaseDelay,
	}, logger)
	return syncer.New(a.store, gateway, exec, logger, syncer.WithMetrics(metrics)), nil
}

// OpenGateway builds the gateway selected by the remote kind setting.
func OpenGateway(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (remote.Gateway, error) {
	r := cfg.Settings.Remote
	switch r.Kind {
	case config.RemoteREST:
		if r.BaseURL == "" {
			return nil, fmt.Errorf("%w: REMOTE_BASE_URL is not set", config.ErrNotConfigured)
		}
		return rest.New(ctx, rest.Config{
			BaseURL:      r.BaseURL,
			Timeout:      r.Timeout,
			ClientID:     r.ClientID,
			ClientSecret: r.ClientSecret,
			TokenURL:     r.TokenURL,
		}, logger)
	case config.RemoteGoogleTasks:
		if !cfg.HasOAuthClient() {
			return nil, fmt.Errorf("%w: oauth_client.json not found in %s", config.ErrNotConfigured, cfg.Dir)
		}
		if !cfg.HasToken() {
			return nil, fmt.Errorf("%w: not logged in (run: todosync login)", config.ErrNotConfigured)
		}
		return googletasks.New(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: unknown remote kind %q", config.ErrNotConfigured, r.Kind)
	}
}
