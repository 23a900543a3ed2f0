package mailer

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const TypePasswordReset = "password_reset"

// PasswordReset is the payload of a password reset email.
type PasswordReset struct {
	UserID    int64
	Name      string
	Email     string
	ResetURL  string
	ExpiresAt time.Time
}

// Message is a rendered email as carried on the outbox stream.
type Message struct {
	ID      string
	Type    string
	To      string
	Subject string
	Body    string
	UserID  int64
}

func (m PasswordReset) Render() Message {
	body := fmt.Sprintf(
		"Hello %s,\n\nYou are receiving this email because a password reset was requested for your account.\n"+
			"Open the link below to choose a new password:\n\n%s\n\nThe link expires at %s.\n",
		m.Name, m.ResetURL, m.ExpiresAt.UTC().Format(time.RFC1123),
	)
	return Message{
		Type:    TypePasswordReset,
		To:      m.Email,
		Subject: "Password reset token",
		Body:    body,
		UserID:  m.UserID,
	}
}

func (m Message) values() map[string]any {
	return map[string]any{
		"type":    m.Type,
		"to":      m.To,
		"subject": m.Subject,
		"body":    m.Body,
		"user_id": strconv.FormatInt(m.UserID, 10),
	}
}

func decodeMessage(msg redis.XMessage) (Message, error) {
	out := Message{ID: msg.ID}
	fields := map[string]*string{
		"type":    &out.Type,
		"to":      &out.To,
		"subject": &out.Subject,
		"body":    &out.Body,
	}
	for key, dst := range fields {
		raw, ok := msg.Values[key]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			return Message{}, fmt.Errorf("field %s: unexpected %T", key, raw)
		}
		*dst = s
	}
	if raw, ok := msg.Values["user_id"].(string); ok && raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Message{}, fmt.Errorf("field user_id: %w", err)
		}
		out.UserID = id
	}
	if out.Type == "" || out.To == "" {
		return Message{}, fmt.Errorf("message %s: missing type or recipient", msg.ID)
	}
	return out, nil
}

// Outbox publishes rendered emails onto a redis stream for cmd/worker.
type Outbox struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewOutbox(client *redis.Client, stream string) *Outbox {
	return &Outbox{client: client, stream: stream, maxLen: 10000}
}

func (o *Outbox) EnqueuePasswordReset(ctx context.Context, msg PasswordReset) error {
	return o.Enqueue(ctx, msg.Render())
}

func (o *Outbox) Enqueue(ctx context.Context, msg Message) error {
	err := o.client.XAdd(ctx, &redis.XAddArgs{
		Stream: o.stream,
		MaxLen: o.maxLen,
		Approx: true,
		Values: msg.values(),
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", o.stream, err)
	}
	return nil
}

// Trim caps the stream length; delivered entries are otherwise kept forever.
func (o *Outbox) Trim(ctx context.Context) (int64, error) {
	return o.client.XTrimMaxLenApprox(ctx, o.stream, o.maxLen, 0).Result()
}
