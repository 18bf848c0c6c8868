package paramstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "/invoice-pipeline/blueprint_arn", "arn:x"))

	val, err := s.Get(ctx, "/invoice-pipeline/blueprint_arn")
	require.NoError(t, err)
	assert.Equal(t, "arn:x", val)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Get(context.Background(), "/absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "/k", "v1"))
	require.NoError(t, s.Put(ctx, "/k", "v2"))

	val, err := s.Get(ctx, "/k")
	require.NoError(t, err)
	assert.Equal(t, "v2", val)
}
