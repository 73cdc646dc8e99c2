package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetSet(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	value := []byte("hello")
	require.NoError(t, store.Set(ctx, "k", value, time.Hour))
	value[0] = 'j'

	got, found, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hello", string(got), "stored values are copied")

	got[0] = 'y'
	again, _, _ := store.Get(ctx, "k")
	assert.Equal(t, "hello", string(again), "returned values are copied")
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "short", []byte("x"), 10*time.Millisecond))
	require.NoError(t, store.Set(ctx, "forever", []byte("y"), 0))
	time.Sleep(20 * time.Millisecond)

	_, found, _ := store.Get(ctx, "short")
	assert.False(t, found)
	_, found, _ = store.Get(ctx, "forever")
	assert.True(t, found)

	store.cleanup()
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, store.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, store.Delete(ctx, "a", "b", "unknown"))
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStore_CloseIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
