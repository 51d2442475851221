package cache

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/TimPolDev/memoriesDev/internal/game"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeAction(t *testing.T) {
	actor := uuid.New()
	data, err := EncodeAction(game.ActionRecord{
		RoomID:      "ABC123",
		Round:       2,
		ActionIndex: 7,
		ActorID:     actor,
		ActionType:  "card_flip",
		Payload:     map[string]interface{}{"card": 3},
		Timestamp:   1700000000000,
	})
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "ABC123", got["roomId"])
	assert.Equal(t, float64(7), got["actionIndex"])
	assert.Equal(t, actor.String(), got["actorId"])
	assert.Equal(t, "card_flip", got["actionType"])
	assert.Equal(t, map[string]interface{}{"card": float64(3)}, got["payload"])
}

func TestNilPublisherRecordIsNoop(t *testing.T) {
	var p *ActionPublisher
	assert.NotPanics(t, func() { p.Record(game.ActionRecord{}) })
}

func TestRecordDropsWhenQueueFull(t *testing.T) {
	logger, hook := test.NewNullLogger()
	p := NewActionPublisher(nil, "", 0, logger)
	assert.Equal(t, DefaultActionKey, p.key)
	assert.Equal(t, int64(DefaultMaxLen), p.maxLen)

	for i := 0; i < cap(p.queue)+1; i++ {
		p.Record(game.ActionRecord{ActionIndex: i})
	}
	assert.Len(t, p.queue, cap(p.queue))
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "queue full")
}

// TestPublishRedis needs a live server at TEST_REDIS_ADDR.
func TestPublishRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rdb, err := Connect(ctx, addr, "", 0)
	require.NoError(t, err)
	defer rdb.Close()

	key := "test_room_actions_" + uuid.NewString()
	defer rdb.Del(ctx, key)

	logger, _ := test.NewNullLogger()
	p := NewActionPublisher(rdb, key, 2, logger)
	for i := 1; i <= 3; i++ {
		require.NoError(t, p.Publish(ctx, game.ActionRecord{RoomID: "ABC123", ActionIndex: i}))
	}

	entries, err := rdb.LRange(ctx, key, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, entries, 2, "list is trimmed to maxLen")
	var last game.ActionRecord
	require.NoError(t, json.Unmarshal([]byte(entries[1]), &last))
	assert.Equal(t, 3, last.ActionIndex)
}
