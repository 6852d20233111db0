// Package events broadcasts committed room events on a Redis Stream so
// other services (front desk displays, accounting) can follow them.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"boarding-house-backend/config"
	"boarding-house-backend/internal/lifecycle"
)

// NewRedisClient creates a Redis client from config.
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// StreamPublisher appends each event to a capped stream as
// {type, room_id, data}, where data is the JSON-encoded event.
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamPublisher(client *redis.Client, stream string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: maxLen}
}

// Publish implements lifecycle.Publisher.
func (p *StreamPublisher) Publish(ctx context.Context, ev lifecycle.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"type":    ev.Type,
			"room_id": fmt.Sprintf("%d", ev.RoomID),
			"data":    string(data),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}
	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", ev.Type, p.stream, err)
	}
	return nil
}

// Ping checks the connection.
func (p *StreamPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Nop discards events; used when Redis is disabled.
type Nop struct{}

func (Nop) Publish(context.Context, lifecycle.Event) error { return nil }
