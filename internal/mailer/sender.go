package mailer

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"storefront/internal/queue"
)

// LogSender delivers outbox messages by writing them to the log. It stands in
// for an SMTP or provider integration.
type LogSender struct {
	from   string
	logger zerolog.Logger
}

func NewLogSender(from string, logger zerolog.Logger) *LogSender {
	return &LogSender{from: from, logger: logger}
}

func (s *LogSender) Handle(ctx context.Context, msg redis.XMessage) error {
	m, err := decodeMessage(msg)
	if err != nil {
		return queue.Permanent(fmt.Errorf("decode message: %w", err))
	}

	switch m.Type {
	case TypePasswordReset:
		return s.send(ctx, m)
	default:
		s.logger.Warn().Str("type", m.Type).Str("message_id", m.ID).Msg("unknown mail type")
		return nil
	}
}

func (s *LogSender) send(_ context.Context, m Message) error {
	s.logger.Info().
		Str("message_id", m.ID).
		Str("from", s.from).
		Str("to", m.To).
		Str("subject", m.Subject).
		Int64("user_id", m.UserID).
		Msg("mail sent")
	s.logger.Debug().Str("message_id", m.ID).Msg(m.Body)
	return nil
}
