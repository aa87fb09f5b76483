package outbox

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisTransport publishes messages onto per-topic Redis streams,
// where read-model sync consumers pick them up.
type RedisTransport struct {
	client *redis.Client
}

// NewRedisTransport constructs RedisTransport.
func NewRedisTransport(client *redis.Client) *RedisTransport {
	return &RedisTransport{client: client}
}

// Publish appends the message to the topic's stream.
func (t *RedisTransport) Publish(ctx context.Context, msg Message) error {
	values := map[string]any{
		"op":       string(msg.Op),
		"publicId": msg.PublicID,
	}
	if len(msg.Payload) > 0 {
		values["payload"] = string(msg.Payload)
	}
	if err := t.client.XAdd(ctx, &redis.XAddArgs{
		Stream: "outbox:" + msg.Topic,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("outbox: publish %s/%s: %w", msg.Topic, msg.PublicID, err)
	}
	return nil
}
