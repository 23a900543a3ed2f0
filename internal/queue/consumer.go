package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	defaultMaxDeliveries = 5
	deadLetterMaxLen     = 10000
)

// ErrPermanent marks handler failures that no retry can fix.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so the consumer dead-letters the message instead of
// leaving it pending.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

type MessageHandler interface {
	Handle(ctx context.Context, msg redis.XMessage) error
}

// Consumer reads a redis stream through a consumer group, acking each entry
// after its handler succeeds. Entries left pending longer than the claim
// interval are claimed and retried until they reach maxDeliveries, then moved
// to the dead-letter stream.
type Consumer struct {
	client        *redis.Client
	stream        string
	group         string
	consumer      string
	claimInterval time.Duration
	block         time.Duration
	maxDeliveries int64
	deadLetter    string
	logger        zerolog.Logger
	handler       MessageHandler
}

func NewConsumer(client *redis.Client, stream, group, consumer string, claimInterval time.Duration, logger zerolog.Logger, handler MessageHandler) *Consumer {
	return &Consumer{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		claimInterval: claimInterval,
		block:         5 * time.Second,
		maxDeliveries: defaultMaxDeliveries,
		deadLetter:    stream + ":dead",
		logger:        logger.With().Str("stream", stream).Str("consumer", consumer).Logger(),
		handler:       handler,
	}
}

// EnsureGroup creates the stream and its consumer group when missing.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create group %s: %w", c.group, err)
	}
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(c.claimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := c.read(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error().Err(err).Msg("stream read error")
				time.Sleep(2 * time.Second)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := c.claimStalled(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error().Err(err).Msg("claim stalled failed")
			}
		default:
		}
	}
}

func (c *Consumer) read(ctx context.Context) error {
	result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    10,
		Block:    c.block,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	for _, stream := range result {
		for _, msg := range stream.Messages {
			c.process(ctx, msg, "handle message failed")
		}
	}
	return nil
}

func (c *Consumer) process(ctx context.Context, msg redis.XMessage, failure string) {
	if err := c.handler.Handle(ctx, msg); err != nil {
		if errors.Is(err, ErrPermanent) {
			c.bury(ctx, msg, err)
			return
		}
		c.logger.Error().
			Err(err).
			Str("message_id", msg.ID).
			Msg(failure)
		return
	}
	c.ack(ctx, msg.ID)
}

func (c *Consumer) ack(ctx context.Context, id string) {
	if err := c.client.XAck(ctx, c.stream, c.group, id).Err(); err != nil {
		c.logger.Error().Err(err).Str("message_id", id).Msg("ack failed")
	}
}

// bury copies msg to the dead-letter stream and acks it on the source stream.
// The message stays pending if the copy fails.
func (c *Consumer) bury(ctx context.Context, msg redis.XMessage, cause error) {
	values := make(map[string]any, len(msg.Values)+2)
	for k, v := range msg.Values {
		values[k] = v
	}
	values["source_id"] = msg.ID
	values["error"] = cause.Error()

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.deadLetter,
		MaxLen: deadLetterMaxLen,
		Approx: true,
		Values: values,
	}).Err(); err != nil {
		c.logger.Error().Err(err).Str("message_id", msg.ID).Msg("dead-letter failed")
		return
	}

	c.logger.Warn().
		Err(cause).
		Str("message_id", msg.ID).
		Str("dead_letter", c.deadLetter).
		Msg("message dead-lettered")
	c.ack(ctx, msg.ID)
}

func (c *Consumer) claimStalled(ctx context.Context) error {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Start:  "-",
		End:    "+",
		Count:  100,
	}).Result()
	if err != nil {
		return err
	}

	for _, entry := range pending {
		if entry.Idle < c.claimInterval {
			continue
		}
		msgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   c.stream,
			Group:    c.group,
			Consumer: c.consumer,
			MinIdle:  c.claimInterval,
			Messages: []string{entry.ID},
		}).Result()
		if err != nil {
			c.logger.Error().Err(err).Str("message_id", entry.ID).Msg("claim error")
			continue
		}
		for _, msg := range msgs {
			if entry.RetryCount >= c.maxDeliveries {
				c.bury(ctx, msg, fmt.Errorf("gave up after %d deliveries", entry.RetryCount))
				continue
			}
			c.process(ctx, msg, "handle claimed message failed")
		}
	}
	return nil
}
