package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCache_TTLBoundary(t *testing.T) {
	cache := NewCache(10)
	clock := &fakeClock{at: time.Unix(1700000000, 0)}
	cache.now = clock.Now

	cache.Put("tool", "key", []byte(`{"a":1}`), 10*time.Second)

	clock.Advance(10*time.Second - time.Millisecond)
	payload, ok := cache.Get("tool", "key")
	require.True(t, ok, "hit just before expiry")
	require.Equal(t, `{"a":1}`, string(payload))

	clock.Advance(2 * time.Millisecond)
	_, ok = cache.Get("tool", "key")
	require.False(t, ok, "miss just after expiry")
	require.Zero(t, cache.Len(), "expired entry is dropped")
}

func TestCache_LRUEvictionPerTool(t *testing.T) {
	cache := NewCache(2)

	cache.Put("tool", "a", []byte("1"), time.Minute)
	cache.Put("tool", "b", []byte("2"), time.Minute)

	// Touch "a" so "b" becomes least recently used.
	_, ok := cache.Get("tool", "a")
	require.True(t, ok)

	cache.Put("tool", "c", []byte("3"), time.Minute)
	require.Equal(t, 2, cache.Len())

	_, ok = cache.Get("tool", "b")
	require.False(t, ok, "least recently used entry evicted")
	_, ok = cache.Get("tool", "a")
	require.True(t, ok)
	_, ok = cache.Get("tool", "c")
	require.True(t, ok)
}

func TestCache_CapacityIsPerTool(t *testing.T) {
	cache := NewCache(1)
	cache.Put("alpha", "k", []byte("1"), time.Minute)
	cache.Put("beta", "k", []byte("2"), time.Minute)
	require.Equal(t, 2, cache.Len())
}

func TestCache_LastWriterWins(t *testing.T) {
	cache := NewCache(4)
	cache.Put("tool", "k", []byte("first"), time.Minute)
	cache.Put("tool", "k", []byte("second"), time.Minute)

	payload, ok := cache.Get("tool", "k")
	require.True(t, ok)
	require.Equal(t, "second", string(payload))
	require.Equal(t, 1, cache.Len())
}

func TestCanonicalArgsHash_OrderInsensitive(t *testing.T) {
	first, err := CanonicalArgsHash(map[string]any{
		"limit": 10,
		"tags":  map[string]any{"env": "prod", "team": "net"},
	})
	require.NoError(t, err)

	second, err := CanonicalArgsHash(map[string]any{
		"tags":  map[string]any{"team": "net", "env": "prod"},
		"limit": 10,
	})
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCanonicalArgsHash_DistinguishesValues(t *testing.T) {
	first, err := CanonicalArgsHash(map[string]any{"limit": 10})
	require.NoError(t, err)
	second, err := CanonicalArgsHash(map[string]any{"limit": 11})
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}
