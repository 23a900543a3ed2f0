package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ResetTokenPurger clears password reset tokens whose expiry has passed.
type ResetTokenPurger interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// StreamTrimmer caps the mail outbox stream.
type StreamTrimmer interface {
	Trim(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron     *cron.Cron
	schedule string
	users    ResetTokenPurger
	outbox   StreamTrimmer
	log      zerolog.Logger
	now      func() time.Time
}

func NewScheduler(schedule string, users ResetTokenPurger, outbox StreamTrimmer, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		schedule: schedule,
		users:    users,
		outbox:   outbox,
		log:      log.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
	}
}

func (s *Scheduler) Start() error {
	if s.users != nil {
		if _, err := s.cron.AddFunc(s.schedule, s.purgeResetTokens); err != nil {
			return err
		}
	}
	if s.outbox != nil {
		if _, err := s.cron.AddFunc("0 30 3 * * *", s.trimOutbox); err != nil { // daily
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits up to five seconds for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduled jobs still running at shutdown")
	}
}

func (s *Scheduler) purgeResetTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cleared, err := s.users.ClearExpiredResetTokens(ctx, s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("purge expired reset tokens failed")
		return
	}
	if cleared > 0 {
		s.log.Info().Int64("cleared", cleared).Msg("expired reset tokens purged")
	}
}

func (s *Scheduler) trimOutbox() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	trimmed, err := s.outbox.Trim(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("trim mail outbox failed")
		return
	}
	s.log.Debug().Int64("trimmed", trimmed).Msg("mail outbox trimmed")
}
