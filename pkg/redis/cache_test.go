package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// With a disabled client every cache operation is a silent no-op
func TestCacheDisabledClient(t *testing.T) {
	cache := NewCache(NewDisabled(), "test")
	ctx := context.Background()

	var dest map[string]string
	hit, err := cache.Get(ctx, "report:x", &dest)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, dest)

	assert.NoError(t, cache.Set(ctx, "report:x", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, cache.Delete(ctx, "report:x"))
}

func TestCacheKeyNamespacing(t *testing.T) {
	cache := NewCache(NewDisabled(), "taho")
	assert.Equal(t, "taho:cache:report:daily", cache.key("report:daily"))
}
