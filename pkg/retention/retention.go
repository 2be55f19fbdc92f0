// Package retention sweeps idle conversation sessions out of the session
// store on a fixed schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/chalique/botflow/pkg/persistence"
)

const defaultSchedule = "@hourly"

// Sweeper periodically deletes sessions that have not been updated within
// the retention window.
type Sweeper struct {
	sessions persistence.SessionRepository
	window   time.Duration
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewSweeper creates a sweeper that removes sessions idle for longer than
// window. An empty schedule runs hourly.
func NewSweeper(sessions persistence.SessionRepository, window time.Duration, schedule string, logger *slog.Logger) (*Sweeper, error) {
	if window <= 0 {
		return nil, fmt.Errorf("retention window must be positive, got %s", window)
	}

	if schedule == "" {
		schedule = defaultSchedule
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}

	return &Sweeper{
		sessions: sessions,
		window:   window,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Start registers the schedule and begins sweeping in the background.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron = cron.New()

	_, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.Sweep(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Session sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule session sweep: %w", err)
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "Session retention sweeper started",
		"schedule", s.schedule, "window", s.window.String())

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}

	<-s.cron.Stop().Done()
}

// Sweep deletes every session last updated before now minus the retention
// window.
func (s *Sweeper) Sweep(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.window)

	removed, err := s.sessions.DeleteIdleSessions(ctx, cutoff)
	if err != nil {
		return err
	}

	if removed > 0 {
		s.logger.InfoContext(ctx, "Idle sessions removed", "count", removed, "cutoff", cutoff)
	}

	return nil
}
