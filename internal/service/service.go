package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dimitrmo/cygaz/internal/petrol"
	"github.com/dimitrmo/cygaz/internal/refresher"
	"github.com/dimitrmo/cygaz/internal/scheduler"
)

// Service keeps the price cache warm: one immediate fan-out at startup,
// then one per scheduler tick. Each petroleum type refreshes independently;
// a type still in flight from the previous tick is skipped.
type Service struct {
	scheduler   *scheduler.Scheduler
	coordinator *refresher.Coordinator
	logger      zerolog.Logger
}

// New constructs the cache-warming service.
func New(sched *scheduler.Scheduler, coordinator *refresher.Coordinator, logger zerolog.Logger) *Service {
	return &Service{
		scheduler:   sched,
		coordinator: coordinator,
		logger:      logger.With().Str("component", "service").Logger(),
	}
}

// Run warms the cache once, then blocks on the scheduler loop until ctx is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}

	s.logger.Info().Msg("warming up cache")
	s.refreshAll(ctx)

	return s.scheduler.Run(ctx, s.Tick)
}

// Tick fans out one refresh per petroleum type.
func (s *Service) Tick(ctx context.Context, at time.Time) error {
	s.refreshAll(ctx)
	return nil
}

// refreshAll starts an independent refresh for every type without waiting
// for any of them. Conflicts with in-flight refreshes are a no-op.
func (s *Service) refreshAll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	for _, t := range petrol.All() {
		if outcome := s.coordinator.RefreshAsync(t); outcome == refresher.AlreadyRunning {
			s.logger.Debug().
				Uint32("petroleum_type", t.ID()).
				Msg("refresh still in flight; skipping")
		}
	}
}
