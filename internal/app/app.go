package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dimitrmo/cygaz/internal/cache"
	"github.com/dimitrmo/cygaz/internal/config"
	"github.com/dimitrmo/cygaz/internal/fetcher"
	"github.com/dimitrmo/cygaz/internal/metrics"
	"github.com/dimitrmo/cygaz/internal/refresher"
	"github.com/dimitrmo/cygaz/internal/scheduler"
	"github.com/dimitrmo/cygaz/internal/server"
	"github.com/dimitrmo/cygaz/internal/service"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newFetcher() (*fetcher.Cygaz, error) {
	return fetcher.NewCygaz(fetcher.Options{
		Endpoint:   a.Config.Fetcher.Endpoint,
		UserAgent:  a.Config.Fetcher.UserAgent,
		RetryCount: a.Config.Fetcher.RetryCount,
	}, a.Logger)
}

// Run starts the price cache service: the scheduler-driven refresh loop and
// the HTTP server, stopping both on SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fetch, err := a.newFetcher()
	if err != nil {
		return err
	}
	defer fetch.Close()

	m := metrics.New()
	store := cache.NewStore()
	coordinator := refresher.New(fetch, store, a.Config.Fetcher.Timeout(), m, a.Logger)

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToStart,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc := service.New(sched, coordinator, a.Logger)
	srv := server.New(server.Options{
		Host:            a.Config.Server.Host,
		Port:            a.Config.Server.Port,
		ShutdownTimeout: a.Config.Server.ShutdownTimeout,
	}, store, coordinator, m, a.Logger)

	a.Logger.Info().Msg("starting price cache service")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("price cache service stopped")
	return nil
}
