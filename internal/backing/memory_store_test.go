package backing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "k1", []byte("v1"), 0))
	got, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	// Overwrite wins.
	require.NoError(t, s.Set(ctx, "k1", []byte("v2"), 0))
	got, err = s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestMemoryStoreMultiGetSkipsMisses(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k1", []byte("v1"), 0))
	require.NoError(t, s.Set(ctx, "k3", []byte("v3"), 0))

	out, err := s.MultiGet(ctx, []string{"k1", "k2", "k3"})
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, []byte("v1"), out["k1"])
	assert.Equal(t, []byte("v3"), out["k3"])
	assert.NotContains(t, out, "k2")
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", []byte("v"), 50*time.Millisecond))
	require.NoError(t, s.Set(ctx, "forever", []byte("v"), 0))

	time.Sleep(80 * time.Millisecond)

	_, err := s.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "forever")
	assert.NoError(t, err)
}
