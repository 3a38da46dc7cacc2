package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisSlot keeps the value under a Redis string key and announces every
// write on the "<key>:changes" channel with the writer's origin id.
// Subscribers skip messages carrying their own origin.
type RedisSlot struct {
	client *redis.Client
	key    string
	origin string
}

// NewRedisSlot returns a slot for key with a fresh origin id.
func NewRedisSlot(client *redis.Client, key string) *RedisSlot {
	return &RedisSlot{client: client, key: key, origin: uuid.NewString()}
}

// Channel is the Pub/Sub channel carrying change notices for the slot.
func (s *RedisSlot) Channel() string { return s.key + ":changes" }

// Load returns the stored value, or nil when the key is absent.
func (s *RedisSlot) Load(ctx context.Context) ([]byte, error) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return b, nil
}

// Save writes the value and publishes a change notice in one pipeline.
func (s *RedisSlot) Save(ctx context.Context, value []byte) error {
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.key, value, 0)
		p.Publish(ctx, s.Channel(), s.origin)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

// Watch subscribes to the change channel. The subscription is confirmed
// before Watch returns, so no later write is missed.
func (s *RedisSlot) Watch(ctx context.Context, onChange func()) (func(), error) {
	sub := s.client.Subscribe(ctx, s.Channel())
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", s.Channel(), err)
	}

	ch := sub.Channel()
	go func() {
		for msg := range ch {
			if msg.Payload == s.origin {
				continue
			}
			onChange()
		}
	}()
	return stopOnDone(ctx, func() { _ = sub.Close() }), nil
}
