package refresher

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/dimitrmo/cygaz/internal/cache"
	"github.com/dimitrmo/cygaz/internal/fetcher"
	"github.com/dimitrmo/cygaz/internal/metrics"
	"github.com/dimitrmo/cygaz/internal/petrol"
)

// ErrAlreadyRunning reports that a refresh for the same petroleum type was
// already in flight. It is a defined no-op outcome, not a failure.
var ErrAlreadyRunning = errors.New("refresher: refresh already running")

// Outcome is the immediate result of an asynchronous refresh request.
type Outcome string

const (
	Accepted       Outcome = "accepted"
	AlreadyRunning Outcome = "already_running"
)

// Coordinator drives one refresh attempt per petroleum type to completion
// while keeping at most one in flight per type. Fetch failures are absorbed
// here: they are logged and counted, and the last good snapshot stays
// authoritative. Retry is the scheduler's next tick, never this call.
type Coordinator struct {
	fetcher fetcher.Fetcher
	store   *cache.Store
	timeout time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New constructs a Coordinator. timeout bounds every upstream fetch.
func New(f fetcher.Fetcher, store *cache.Store, timeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		fetcher: f,
		store:   store,
		timeout: timeout,
		metrics: m,
		logger:  logger.With().Str("component", "refresher").Logger(),
	}
}

// Refresh runs one attempt for t and blocks until it completes. It returns
// ErrAlreadyRunning without doing anything if a refresh for t is in flight.
// A fetch failure (timeout included) is returned to the caller but leaves
// the store untouched.
func (c *Coordinator) Refresh(ctx context.Context, t petrol.Type) error {
	if !c.store.TryBeginRefresh(t) {
		return ErrAlreadyRunning
	}
	return c.run(ctx, t)
}

// RefreshAsync claims the refresh flag synchronously and runs the fetch in
// a detached goroutine, so callers learn immediately whether their request
// was accepted without waiting on the upstream.
func (c *Coordinator) RefreshAsync(t petrol.Type) Outcome {
	if !c.store.TryBeginRefresh(t) {
		return AlreadyRunning
	}
	go func() {
		// Detached from the request context on purpose: an accepted
		// refresh survives the request that triggered it.
		_ = c.run(context.Background(), t)
	}()
	return Accepted
}

// run assumes the refresh flag for t is held and always releases it.
func (c *Coordinator) run(ctx context.Context, t petrol.Type) error {
	defer c.store.EndRefresh(t)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	label := t.String()
	start := time.Now()
	stations, err := c.fetcher.Fetch(ctx, t)
	elapsed := time.Since(start)

	c.metrics.RefreshDuration.WithLabelValues(label).Observe(elapsed.Seconds())

	if err != nil {
		c.metrics.RefreshTotal.WithLabelValues(label, "error").Inc()
		c.logger.Error().Err(err).
			Uint32("petroleum_type", t.ID()).
			Dur("elapsed", elapsed).
			Msg("refresh failed; keeping previous snapshot")
		return err
	}

	fetchedAt := time.Now()
	c.store.Put(t, petrol.NewPriceList(t, stations, fetchedAt))

	c.metrics.RefreshTotal.WithLabelValues(label, "success").Inc()
	c.metrics.Stations.WithLabelValues(label).Set(float64(len(stations)))
	c.metrics.LastRefresh.WithLabelValues(label).Set(float64(fetchedAt.Unix()))

	c.logger.Info().
		Uint32("petroleum_type", t.ID()).
		Int("stations", len(stations)).
		Dur("elapsed", elapsed).
		Msg("snapshot refreshed")

	return nil
}
