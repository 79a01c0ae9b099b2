package service

import (
	"context"
	"encoding/json"
	"time"

	"promovote/pkg/redis"

	"go.uber.org/zap"
)

// EventKind identifies a voting lifecycle event.
type EventKind string

const (
	EventVoteInitiated EventKind = "vote.initiated"
	EventVoteProgress  EventKind = "vote.progress"
	EventVoteCompleted EventKind = "vote.completed"
)

// Notifier delivers voting events best-effort. Implementations must never
// block the primary operation or surface delivery failures to it.
type Notifier interface {
	Notify(ctx context.Context, kind EventKind, payload interface{})
}

// RedisNotifier publishes events to a pub/sub channel. Delivery failures are
// logged and swallowed.
type RedisNotifier struct {
	redis   *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisNotifier(redisClient *redis.Client, channel string, logger *zap.Logger) *RedisNotifier {
	return &RedisNotifier{redis: redisClient, channel: channel, logger: logger}
}

type eventEnvelope struct {
	Kind      EventKind   `json:"kind"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Notify publishes an event envelope. It detaches from the caller's context
// so a cancelled request cannot abort delivery, and bounds the publish with
// its own short timeout.
func (n *RedisNotifier) Notify(_ context.Context, kind EventKind, payload interface{}) {
	if n.redis == nil {
		return
	}

	data, err := json.Marshal(eventEnvelope{
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		n.logger.Warn("failed to encode notification event",
			zap.String("kind", string(kind)),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := n.redis.Publish(ctx, n.channel, data); err != nil {
		n.logger.Warn("failed to publish notification event",
			zap.String("kind", string(kind)),
			zap.String("channel", n.channel),
			zap.Error(err))
	}
}

// NoopNotifier drops all events. Used when Redis is not configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, EventKind, interface{}) {}
