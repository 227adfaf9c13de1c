// Package jobs runs background maintenance on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"invoicegen/internal/domain"
)

const sweepTimeout = 30 * time.Second

// Sweeper periodically deletes expired client tokens.
type Sweeper struct {
	cron     *cron.Cron
	tokens   domain.TokenStore
	schedule string
	log      zerolog.Logger
}

// NewSweeper creates a sweeper for schedule, which accepts standard cron
// specs with an optional seconds field and descriptors such as "@every 10m".
func NewSweeper(tokens domain.TokenStore, schedule string, log zerolog.Logger) *Sweeper {
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)))
	return &Sweeper{
		cron:     c,
		tokens:   tokens,
		schedule: schedule,
		log:      log,
	}
}

// Start registers the sweep and starts the scheduler. An empty schedule
// disables sweeping.
func (s *Sweeper) Start() error {
	if s.schedule == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info().Str("schedule", s.schedule).Msg("token sweeper started")
	return nil
}

// Stop halts the scheduler and waits up to 5s for a running sweep.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("token sweeper stop timed out")
	}
}

// Sweep deletes expired tokens once.
func (s *Sweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if err := s.tokens.DeleteExpired(ctx); err != nil {
		s.log.Error().Err(err).Msg("sweep expired tokens failed")
		return
	}
	s.log.Debug().Msg("expired tokens swept")
}
