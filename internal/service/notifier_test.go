package service

import (
	"context"
	"encoding/json"
	"testing"

	"promovote/pkg/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisNotifier(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes event envelope", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()

		client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
		require.NoError(t, err)
		defer client.Close()

		raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		defer raw.Close()

		pubsub := raw.Subscribe(ctx, "promovote.events")
		defer pubsub.Close()
		_, err = pubsub.Receive(ctx)
		require.NoError(t, err)

		notifier := NewRedisNotifier(client, "promovote.events", zap.NewNop())
		notifier.Notify(ctx, EventVoteInitiated, map[string]string{
			"vote_id":      "PV2026abcd",
			"applicant_id": "E42",
		})

		msg, err := pubsub.ReceiveMessage(ctx)
		require.NoError(t, err)
		assert.Equal(t, "promovote.events", msg.Channel)

		var env struct {
			Kind    string `json:"kind"`
			Payload struct {
				VoteID string `json:"vote_id"`
			} `json:"payload"`
		}
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
		assert.Equal(t, string(EventVoteInitiated), env.Kind)
		assert.Equal(t, "PV2026abcd", env.Payload.VoteID)
	})

	t.Run("nil client is a no-op", func(t *testing.T) {
		notifier := NewRedisNotifier(nil, "promovote.events", zap.NewNop())
		assert.NotPanics(t, func() {
			notifier.Notify(ctx, EventVoteCompleted, map[string]string{"vote_id": "PV2026abcd"})
		})
	})
}

func TestNoopNotifier(t *testing.T) {
	assert.NotPanics(t, func() {
		NoopNotifier{}.Notify(context.Background(), EventVoteProgress, nil)
	})
}
