package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClientSetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	require.NoError(t, c.Set(ctx, "blueprint:invoices", "arn:aws:bedrock:::blueprint/x", time.Minute))

	val, err := c.Get(ctx, "blueprint:invoices")
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:bedrock:::blueprint/x", val)
}

func TestMemoryClientMiss(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	_, err := c.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient()

	require.NoError(t, c.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientClose(t *testing.T) {
	assert.NoError(t, NewMemoryClient().Close())
}
