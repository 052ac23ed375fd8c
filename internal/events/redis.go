package events

import (
	"context"

	"crm-connect/internal/common/errors"
	"crm-connect/internal/redis"
)

// RedisPublisher publishes to a Redis pub/sub channel
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) (*RedisPublisher, error) {
	if client == nil {
		return nil, errors.ConfigError("redis client is required for redis events")
	}
	if channel == "" {
		return nil, errors.ConfigError("redis channel is required")
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

func (p *RedisPublisher) Name() string { return "redis" }

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	body, err := event.Encode()
	if err != nil {
		return errors.InternalError("failed to encode event", err)
	}
	return p.client.Publish(ctx, p.channel, body)
}

// Close leaves the shared Redis client open; the app owns it
func (p *RedisPublisher) Close() error { return nil }
