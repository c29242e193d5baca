package args

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paritytech/zombienet-go/internal/model"
)

func TestBuildCumulus_SplitsOnDoubleDash(t *testing.T) {
	collator := model.NodeSpec{
		Name:     "col1",
		Role:     model.RoleCollator,
		BasePath: "/tmp/col1",
		Ports:    model.PortSet{RPC: 40001, WS: 40002, Prometheus: 40003, P2P: 40004},
	}
	embedded := EmbeddedRelayOptions{
		ChainSpecPath:  "/tmp/relay.json",
		BasePath:       "/tmp/col1/relay",
		Port:           40005,
		PrometheusPort: 40006,
	}

	out := BuildCumulus(collator, BuildOptions{ChainSpecPath: "/tmp/para.json"}, embedded)

	sepIdx := -1
	for i, tok := range out {
		if tok == "--" {
			sepIdx = i
			break
		}
	}
	require.NotEqual(t, -1, sepIdx, "expected a literal -- separator")

	before := out[:sepIdx]
	after := out[sepIdx+1:]

	assert.Contains(t, before, "--collator")
	assert.Contains(t, before, "--chain=/tmp/para.json")

	assert.Contains(t, after, "--base-path=/tmp/col1/relay")
	assert.Contains(t, after, "--chain=/tmp/relay.json")
	assert.Contains(t, after, "--execution=wasm")
	assert.Contains(t, after, "--port=40005")
	assert.Contains(t, after, "--prometheus-port=40006")
}

func TestBuildCumulus_EmbeddedUserArgsAppendedAfterDefaults(t *testing.T) {
	collator := model.NodeSpec{Name: "col1", Role: model.RoleCollator, Ports: model.PortSet{}}
	embedded := EmbeddedRelayOptions{
		ChainSpecPath: "/tmp/relay.json",
		UserArgs:      []string{"--log=debug"},
	}

	out := BuildCumulus(collator, BuildOptions{}, embedded)
	assert.Contains(t, out, "--log=debug")
}
