package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetricExpr_BareName(t *testing.T) {
	expr, err := ParseMetricExpr("node_roles")
	require.NoError(t, err)
	assert.Equal(t, "node_roles", expr.Name)
	assert.Empty(t, expr.Labels)
}

func TestParseMetricExpr_SingleLabel(t *testing.T) {
	expr, err := ParseMetricExpr(`block_height{status="best"}`)
	require.NoError(t, err)
	assert.Equal(t, "block_height", expr.Name)
	assert.Equal(t, map[string]string{"status": "best"}, expr.Labels)
}

func TestParseMetricExpr_MultipleLabels(t *testing.T) {
	expr, err := ParseMetricExpr(`polkadot_peers{role="validator",chain="rococo-local"}`)
	require.NoError(t, err)
	assert.Equal(t, "polkadot_peers", expr.Name)
	assert.Equal(t, map[string]string{"role": "validator", "chain": "rococo-local"}, expr.Labels)
}

func TestParseMetricExpr_MissingClosingBrace(t *testing.T) {
	_, err := ParseMetricExpr(`block_height{status="best"`)
	assert.Error(t, err)
}

func TestParseMetricExpr_EmptyName(t *testing.T) {
	_, err := ParseMetricExpr(`{status="best"}`)
	assert.Error(t, err)
}

func TestParseMetricExpr_EmptyLabelSet(t *testing.T) {
	expr, err := ParseMetricExpr("node_roles{}")
	require.NoError(t, err)
	assert.Equal(t, "node_roles", expr.Name)
	assert.Empty(t, expr.Labels)
}
