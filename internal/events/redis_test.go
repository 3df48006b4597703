package events

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedisClient struct {
	channels []string
	messages [][]byte
	err      error
	pingErr  error
	closed   bool
	deadline bool
}

func (c *fakeRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	_, c.deadline = ctx.Deadline()
	return redis.NewStatusResult("PONG", c.pingErr)
}

func (c *fakeRedisClient) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	_, c.deadline = ctx.Deadline()
	c.channels = append(c.channels, channel)
	if raw, ok := message.([]byte); ok {
		c.messages = append(c.messages, raw)
	}
	return redis.NewIntResult(1, c.err)
}

func (c *fakeRedisClient) Close() error {
	c.closed = true
	return nil
}

func TestRedisPublisher_Publish(t *testing.T) {
	client := &fakeRedisClient{}
	pub := &RedisPublisher{client: client, channel: "loops"}

	require.NoError(t, pub.Publish(context.Background(), Event{Type: GuardrailsFailed, RunID: "r", Iteration: 2}))

	assert.Equal(t, []string{"loops"}, client.channels)
	require.Len(t, client.messages, 1)
	assert.Contains(t, string(client.messages[0]), `"type":"guardrails.failed"`)
	assert.True(t, client.deadline, "publish is bounded by a timeout")

	require.NoError(t, pub.Close())
	assert.True(t, client.closed)
}

func TestRedisPublisher_PublishError(t *testing.T) {
	client := &fakeRedisClient{err: errors.New("connection refused")}
	pub := &RedisPublisher{client: client, channel: "loops"}

	err := pub.Publish(context.Background(), Event{Type: RunFinished})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewRedisPublisher_ChecksConnection(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		client := &fakeRedisClient{}
		pub, err := newRedisPublisherWithClient(client, "loops")
		require.NoError(t, err)
		assert.Equal(t, "loops", pub.channel)
		assert.True(t, client.deadline)
		assert.False(t, client.closed)
	})

	t.Run("unreachable", func(t *testing.T) {
		client := &fakeRedisClient{pingErr: errors.New("dial tcp: connection refused")}
		_, err := newRedisPublisherWithClient(client, "loops")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connect redis")
		assert.True(t, client.closed)
	})
}

func TestNewRedisPublisher_UnreachableServer(t *testing.T) {
	_, err := NewRedisPublisher("redis://127.0.0.1:1/0", "loops")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect redis")
}
