package promtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `# HELP node_roles The roles the node is running as.
# TYPE node_roles gauge
node_roles{} 4
# HELP sync_target Something.
sync_target{chain="rococo-local"} 12345
weird_metric{a="b",c="d\"e"} +Inf
negmetric -Inf
notanumber NaN
`

func TestParse_BasicSamples(t *testing.T) {
	samples, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)
	require.Len(t, samples, 5)

	s, ok := Find(samples, "node_roles", nil)
	require.True(t, ok)
	assert.True(t, s.Value.Finite())
	assert.Equal(t, float64(4), s.Value.Float)

	s, ok = Find(samples, "sync_target", map[string]string{"chain": "rococo-local"})
	require.True(t, ok)
	assert.Equal(t, float64(12345), s.Value.Float)

	s, ok = Find(samples, "weird_metric", nil)
	require.True(t, ok)
	assert.Equal(t, "b", s.Labels["a"])
	assert.Equal(t, `d"e`, s.Labels["c"])
	assert.True(t, s.Value.IsInf)
	assert.Equal(t, 1, s.Value.InfSign)

	s, ok = Find(samples, "negmetric", nil)
	require.True(t, ok)
	assert.True(t, s.Value.IsInf)
	assert.Equal(t, -1, s.Value.InfSign)

	s, ok = Find(samples, "notanumber", nil)
	require.True(t, ok)
	assert.True(t, s.Value.IsNaN)
}

func TestParse_RoundTrip(t *testing.T) {
	// Invariant (spec.md §8): parse -> render -> parse yields an identical sample.
	samples, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	for _, s := range samples {
		rendered := s.Render()
		reparsed, err := Parse([]byte(rendered))
		require.NoError(t, err)
		require.Len(t, reparsed, 1)

		assert.Equal(t, s.Name, reparsed[0].Name)
		assert.Equal(t, s.Labels, reparsed[0].Labels)
		assert.Equal(t, s.Value, reparsed[0].Value)
	}
}

func TestParse_UnterminatedString(t *testing.T) {
	_, err := Parse([]byte(`m{a="unterminated} 1`))
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
}

func TestParse_MalformedLabel(t *testing.T) {
	_, err := Parse([]byte(`m{a} 1`))
	require.Error(t, err)
}

func TestParse_NumericOverflow(t *testing.T) {
	_, err := Parse([]byte(`m 1e99999999999999999999999999`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overflow")
}

func TestParse_SkipsCommentsAndBlankLines(t *testing.T) {
	doc := "\n# just a comment\n\nnode_roles 1\n"
	samples, err := Parse([]byte(doc))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "node_roles", samples[0].Name)
}

func TestParse_NoLabels(t *testing.T) {
	samples, err := Parse([]byte("block_height 99\n"))
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Empty(t, samples[0].Labels)
	assert.Equal(t, float64(99), samples[0].Value.Float)
}
