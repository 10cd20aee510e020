package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/azamatbayne/user-service/internal/metrics"
	"github.com/robfig/cron/v3"
)

// staleCounter is the slice of the user repository the sweeper needs.
type staleCounter interface {
	CountStaleTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper periodically counts confirmation tokens that outlived their TTL
// and publishes the count as a gauge. Tokens are never deleted: an expired
// token keeps failing reset attempts the same way until its owner requests
// a fresh one.
type Sweeper struct {
	users    staleCounter
	ttl      time.Duration
	schedule string
	logger   *slog.Logger
	cron     *cron.Cron
}

func NewSweeper(users staleCounter, ttl time.Duration, schedule string, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		users:    users,
		ttl:      ttl,
		schedule: schedule,
		logger:   logger.With("component", "retention_sweeper"),
	}
}

// Start registers the cron entry and launches the scheduler. It also runs
// one sweep immediately so the gauge is populated at boot.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() { s.sweep(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.sweep(ctx)
	s.logger.Info("retention sweeper started", "schedule", s.schedule, "ttl", s.ttl)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.logger.Info("retention sweeper stopped")
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.ttl)

	count, err := s.users.CountStaleTokens(ctx, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "count stale tokens", "error", err)
		return
	}

	metrics.StaleResetTokens.Set(float64(count))
	if count > 0 {
		s.logger.InfoContext(ctx, "stale confirmation tokens outstanding", "count", count)
	}
}
