package cache_test

import (
	"context"
	"testing"

	"github.com/Kyz7/juna/internal/cache"
	"github.com/Kyz7/juna/internal/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNoop(t *testing.T) {
	var c cache.Cache = cache.Noop{}
	ctx := context.Background()

	assert.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, 0))

	var out map[string]int
	hit, err := c.Get(ctx, "k", &out)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, c.DeletePattern(ctx, cache.SubscriptionListPattern))
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("0b9a3f54-8c1e-4e34-9d2b-5b0d6c3f0a11")
	assert.Equal(t, "subscription:0b9a3f54-8c1e-4e34-9d2b-5b0d6c3f0a11:stats", cache.SubscriptionStatsKey(id))
	assert.Equal(t, "subscriptions:list:page=1", cache.SubscriptionListKey("page=1"))
}

func TestNewRedisClient(t *testing.T) {
	t.Run("Error - Unreachable server", func(t *testing.T) {
		_, err := cache.NewRedisClient(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: "1"})
		assert.Error(t, err)
	})
}
