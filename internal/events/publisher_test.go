package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boarding-house-backend/config"
	"boarding-house-backend/internal/lifecycle"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(&config.RedisConfig{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestStreamPublisher_Publish(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	pub := NewStreamPublisher(client, "boarding:room-events", 100)
	require.NoError(t, pub.Ping(ctx))

	ev := lifecycle.Event{
		Type:       lifecycle.EventTenantAssigned,
		RoomID:     7,
		RoomNumber: "A-101",
		TenancyID:  3,
		TenantRef:  "tenant-1",
		FromStatus: "available",
		ToStatus:   "occupied",
		Actor:      "alice",
		OccurredAt: time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.Publish(ctx, ev))

	msgs, err := client.XRange(ctx, "boarding:room-events", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, lifecycle.EventTenantAssigned, msgs[0].Values["type"])
	assert.Equal(t, "7", msgs[0].Values["room_id"])

	var got lifecycle.Event
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["data"].(string)), &got))
	assert.Equal(t, ev, got)
}

func TestStreamPublisher_RedisDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Close()

	err := NewStreamPublisher(client, "s", 0).Publish(context.Background(), lifecycle.Event{Type: lifecycle.EventReserved})
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	var p lifecycle.Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), lifecycle.Event{}))
}
