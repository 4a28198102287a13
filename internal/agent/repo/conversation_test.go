package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warranty-agent-poc-v1/server/internal/agent/model"
	errx "github.com/warranty-agent-poc-v1/server/internal/core/error"
)

func newRedisRepo(t *testing.T, ttl time.Duration, maxMessages int) (*RedisConversationRepository, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisConversationRepository(rdb, ttl, maxMessages), srv
}

// exerciseRepository runs the behaviour shared by every ConversationRepository.
func exerciseRepository(t *testing.T, r model.ConversationRepository) {
	ctx := context.Background()
	const id = "conv-1"

	h, err := r.LoadHistory(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, h.Messages)

	require.NoError(t, r.AddMessage(ctx, id, schema.UserMessage("predict 1HGCM82633A004352")))
	require.NoError(t, r.AddMessage(ctx, id, schema.AssistantMessage("Risk Level: LOW RISK", nil)))

	h, err = r.LoadHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, h.Messages, 2)
	assert.Equal(t, schema.User, h.Messages[0].Role)
	assert.Equal(t, "Risk Level: LOW RISK", h.Messages[1].Content)

	n, err := r.GetMessageCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, r.ClearHistory(ctx, id))
	n, err = r.GetMessageCount(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedisConversationRepository(t *testing.T) {
	r, _ := newRedisRepo(t, time.Minute, 0)
	exerciseRepository(t, r)
}

func TestMemoryConversationRepository(t *testing.T) {
	exerciseRepository(t, NewMemoryConversationRepository(0))
}

func TestRedisConversationRepositoryCapsAndExpires(t *testing.T) {
	r, srv := newRedisRepo(t, time.Minute, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, r.AddMessage(ctx, "c", schema.UserMessage(fmt.Sprintf("m%d", i))))
	}

	h, err := r.LoadHistory(ctx, "c")
	require.NoError(t, err)
	require.Len(t, h.Messages, 3)
	assert.Equal(t, "m2", h.Messages[0].Content)
	assert.Equal(t, "m4", h.Messages[2].Content)

	key := r.conversationKey("c")
	assert.Equal(t, time.Minute, srv.TTL(key))

	srv.FastForward(2 * time.Minute)
	n, err := r.GetMessageCount(ctx, "c")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryConversationRepositoryCaps(t *testing.T) {
	r := NewMemoryConversationRepository(2)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		require.NoError(t, r.AddMessage(ctx, "c", schema.UserMessage(fmt.Sprintf("m%d", i))))
	}
	h, err := r.LoadHistory(ctx, "c")
	require.NoError(t, err)
	require.Len(t, h.Messages, 2)
	assert.Equal(t, "m2", h.Messages[0].Content)
}

func TestRedisConversationRepositoryWrapsErrors(t *testing.T) {
	r, srv := newRedisRepo(t, 0, 0)
	srv.Close()

	err := r.AddMessage(context.Background(), "c", schema.UserMessage("hi"))
	require.Error(t, err)
	assert.Equal(t, errx.KindRedis, errx.KindOf(err))

	_, err = r.LoadHistory(context.Background(), "c")
	assert.Equal(t, errx.KindRedis, errx.KindOf(err))
}
