package args

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paritytech/zombienet-go/internal/model"
)

func validatorNode(userArgs []string) model.NodeSpec {
	return model.NodeSpec{
		Name:       "bob",
		Role:       model.RoleValidator,
		Args:       userArgs,
		NodeKeyHex: "deadbeef",
		BasePath:   "/tmp/bob",
		Ports: model.PortSet{
			RPC:        30001,
			WS:         30002,
			Prometheus: 30003,
			P2P:        30004,
		},
	}
}

func TestBuild_FrameworkManagedFlagsAlwaysPresent(t *testing.T) {
	l := Build(validatorNode(nil), BuildOptions{ChainSpecPath: "/tmp/chain.json", RelayChain: true})
	rendered := l.Render()

	assert.Contains(t, rendered, "--chain=/tmp/chain.json")
	assert.Contains(t, rendered, "--name=bob")
	assert.Contains(t, rendered, "--rpc-cors=all")
	assert.Contains(t, rendered, "--rpc-methods=unsafe")
	assert.Contains(t, rendered, "--node-key=deadbeef")
}

func TestBuild_ValidatorGetsConditionalFlags(t *testing.T) {
	l := Build(validatorNode(nil), BuildOptions{ChainSpecPath: "x", RelayChain: true, SupportsInsecureValidator: true})
	rendered := l.Render()

	assert.Contains(t, rendered, "--validator")
	assert.Contains(t, rendered, "--insecure-validator-i-know-what-i-do")
	assert.Contains(t, rendered, "--no-telemetry")
}

func TestBuild_PortPathGroup(t *testing.T) {
	l := Build(validatorNode(nil), BuildOptions{ChainSpecPath: "x"})
	rendered := l.Render()

	assert.Contains(t, rendered, "--prometheus-port=30003")
	assert.Contains(t, rendered, "--rpc-port=30001")
	assert.Contains(t, rendered, "--listen-addr=/ip4/0.0.0.0/tcp/30004/ws")
	assert.Contains(t, rendered, "--base-path=/tmp/bob")
}

func TestBuild_RemovalOperatorDropsFrameworkFlag(t *testing.T) {
	// spec.md §8: with ["-:--X"] only, --X is absent.
	l := Build(validatorNode([]string{"-:--insecure-validator-i-know-what-i-do"}),
		BuildOptions{ChainSpecPath: "x", RelayChain: true, SupportsInsecureValidator: true})
	rendered := l.Render()

	assert.NotContains(t, rendered, "--insecure-validator-i-know-what-i-do")
	assert.Contains(t, rendered, "--validator", "unrelated conditional flags are untouched")
}

func TestBuild_RemovalThenReAddWinsOnUserValue(t *testing.T) {
	// spec.md §8: ["-:--X", ..., "--X=v"] -> final line contains --X=v exactly once.
	node := validatorNode([]string{"-:--chain", "--chain=/custom/chain.json"})
	l := Build(node, BuildOptions{ChainSpecPath: "/tmp/chain.json"})
	rendered := l.Render()

	count := 0
	for _, f := range rendered {
		if f == "--chain=/custom/chain.json" {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.NotContains(t, rendered, "--chain=/tmp/chain.json")
}

func TestBuild_PlainUserFlagCannotOverrideFrameworkManagedFlag(t *testing.T) {
	// spec.md §4.F: framework-managed flags filter out any same-named user
	// flag; a bare re-specification (no "-:" first) must not win.
	node := validatorNode([]string{"--chain=/custom/chain.json"})
	l := Build(node, BuildOptions{ChainSpecPath: "/tmp/chain.json"})
	rendered := l.Render()

	assert.Contains(t, rendered, "--chain=/tmp/chain.json")
	assert.NotContains(t, rendered, "--chain=/custom/chain.json")
}

func TestBuild_ContainerizedOnlyAddsExternalFlags(t *testing.T) {
	l := Build(validatorNode(nil), BuildOptions{ChainSpecPath: "x", Containerized: true})
	rendered := l.Render()
	assert.Contains(t, rendered, "--prometheus-external")
	assert.Contains(t, rendered, "--unsafe-rpc-external")

	l2 := Build(validatorNode(nil), BuildOptions{ChainSpecPath: "x", Containerized: false})
	rendered2 := l2.Render()
	assert.NotContains(t, rendered2, "--prometheus-external")
}

func TestBuild_BootnodesJoinedWhenPresent(t *testing.T) {
	node := validatorNode(nil)
	node.Bootnodes = []string{"/ip4/1.2.3.4/tcp/30333/p2p/abc", "/ip4/5.6.7.8/tcp/30333/p2p/def"}
	l := Build(node, BuildOptions{ChainSpecPath: "x"})
	rendered := l.Render()
	assert.Contains(t, rendered, "--bootnodes=/ip4/1.2.3.4/tcp/30333/p2p/abc,/ip4/5.6.7.8/tcp/30333/p2p/def")
}

func TestBuild_CollatorRoleSetsCollatorFlag(t *testing.T) {
	node := validatorNode(nil)
	node.Role = model.RoleCollator
	l := Build(node, BuildOptions{ChainSpecPath: "x"})
	rendered := l.Render()
	assert.Contains(t, rendered, "--collator")
	assert.NotContains(t, rendered, "--validator")
}
