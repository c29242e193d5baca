package chainspec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paritytech/zombienet-go/internal/fsys"
)

func TestContentHash_Deterministic(t *testing.T) {
	assert.Equal(t, ContentHash([]byte("hello")), ContentHash([]byte("hello")))
	assert.NotEqual(t, ContentHash([]byte("hello")), ContentHash([]byte("world")))
}

func TestGenesisCache_GeneratesOnceAndReusesEntry(t *testing.T) {
	fs := fsys.NewMemory()
	cache := NewGenesisCache(fs, "/cache")
	calls := 0

	generate := func(ctx context.Context) ([]byte, error) {
		calls++
		return []byte("payload"), nil
	}

	out1, err := cache.GetOrGenerate(context.Background(), "key1", generate)
	require.NoError(t, err)
	out2, err := cache.GetOrGenerate(context.Background(), "key1", generate)
	require.NoError(t, err)

	assert.Equal(t, []byte("payload"), out1)
	assert.Equal(t, []byte("payload"), out2)
	assert.Equal(t, 1, calls, "generate should only run once per key")
}

func TestGenesisCache_DistinctKeysGenerateIndependently(t *testing.T) {
	fs := fsys.NewMemory()
	cache := NewGenesisCache(fs, "/cache")

	out1, err := cache.GetOrGenerate(context.Background(), "a", func(ctx context.Context) ([]byte, error) {
		return []byte("A"), nil
	})
	require.NoError(t, err)
	out2, err := cache.GetOrGenerate(context.Background(), "b", func(ctx context.Context) ([]byte, error) {
		return []byte("B"), nil
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("A"), out1)
	assert.Equal(t, []byte("B"), out2)
}
