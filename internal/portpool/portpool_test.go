package portpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReserveN_Disjoint(t *testing.T) {
	p := New()
	ports, err := p.ReserveN(4)
	require.NoError(t, err)
	require.Len(t, ports, 4)

	seen := make(map[int]bool)
	for _, port := range ports {
		assert.False(t, seen[port], "duplicate port %d", port)
		seen[port] = true
		assert.NotZero(t, port)
	}
	p.ReleaseAll()
}

func TestRelease_Idempotent(t *testing.T) {
	p := New()
	port, err := p.Reserve()
	require.NoError(t, err)

	p.Release(port)
	p.Release(port) // must not panic
}

func TestReleaseAll_ClearsPool(t *testing.T) {
	p := New()
	_, err := p.ReserveN(3)
	require.NoError(t, err)
	p.ReleaseAll()
	assert.Empty(t, p.parked)
}
