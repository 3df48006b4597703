package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisURL = "redis://127.0.0.1:6379"

	// redisTimeout bounds the connection check and every publish.
	redisTimeout = 2 * time.Second
)

type redisClient interface {
	Ping(ctx context.Context) *redis.StatusCmd
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher publishes events as JSON messages on a Redis channel.
type RedisPublisher struct {
	client  redisClient
	channel string
}

// NewRedisPublisher connects to url, or the local default when it is empty.
// An unreachable server is reported here rather than on every publish.
func NewRedisPublisher(url, channel string) (*RedisPublisher, error) {
	if url == "" {
		url = defaultRedisURL
	}
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	options.MaxRetries = -1
	return newRedisPublisherWithClient(redis.NewClient(options), channel)
}

func newRedisPublisherWithClient(client redisClient, channel string) (*RedisPublisher, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

// Publish sends the event to the channel.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	raw, err := encode(event)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Close closes the client.
func (p *RedisPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

var _ Publisher = (*RedisPublisher)(nil)
