package netconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paritytech/zombienet-go/internal/model"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "network.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_MinimalRelaychainOnly(t *testing.T) {
	path := writeTemp(t, `
[relaychain]
chain_name = "rococo-local"
default_command = "polkadot"

[[relaychain.nodes]]
name = "alice"
bootnode = true

[[relaychain.nodes]]
name = "bob"
bootnodes = ["alice"]
`)

	spec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "rococo-local", spec.Relaychain.ChainName)
	require.Len(t, spec.Relaychain.Nodes, 2)
	assert.Equal(t, model.RoleValidator, spec.Relaychain.Nodes[0].Role)
	assert.True(t, spec.Relaychain.Nodes[0].Bootnode)
	assert.Equal(t, []string{"alice"}, spec.Relaychain.Nodes[1].Bootnodes)
}

func TestLoad_GlobalDefaultsAppliedWhenOmitted(t *testing.T) {
	path := writeTemp(t, `
[relaychain]
chain_name = "rococo-local"

[[relaychain.nodes]]
name = "alice"
`)

	spec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, spec.Global.SpawnConcurrency)
	assert.Equal(t, 600, spec.Global.NodeSpawnTimeoutSecs)
	assert.Equal(t, 3600, spec.Global.NetworkTimeoutSecs)
	assert.True(t, spec.Global.TearDownOnFailure)
	assert.Equal(t, "127.0.0.1", spec.Global.LocalIP)
}

func TestLoad_TearDownOnFailureExplicitFalseIsHonored(t *testing.T) {
	path := writeTemp(t, `
[global]
tear_down_on_failure = false

[relaychain]
chain_name = "rococo-local"

[[relaychain.nodes]]
name = "alice"
`)

	spec, err := Load(path)
	require.NoError(t, err)
	assert.False(t, spec.Global.TearDownOnFailure)
}

func TestLoad_BootnodesAddressesUsedWhenBootnodesAbsent(t *testing.T) {
	path := writeTemp(t, `
[relaychain]
chain_name = "rococo-local"

[[relaychain.nodes]]
name = "alice"

[[relaychain.nodes]]
name = "bob"
bootnodes_addresses = ["/ip4/127.0.0.1/tcp/30333/p2p/12D3KooWAlice"]
`)

	spec, err := Load(path)
	require.NoError(t, err)
	require.Len(t, spec.Relaychain.Nodes, 2)
	assert.Equal(t, []string{"/ip4/127.0.0.1/tcp/30333/p2p/12D3KooWAlice"}, spec.Relaychain.Nodes[1].Bootnodes)
}

func TestLoad_BootnodesTakesPrecedenceOverBootnodesAddresses(t *testing.T) {
	path := writeTemp(t, `
[relaychain]
chain_name = "rococo-local"

[[relaychain.nodes]]
name = "alice"

[[relaychain.nodes]]
name = "bob"
bootnodes = ["alice"]
bootnodes_addresses = ["/ip4/127.0.0.1/tcp/30333/p2p/12D3KooWAlice"]
`)

	spec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, spec.Relaychain.Nodes[1].Bootnodes)
}

func TestLoad_ParachainDefaultsStrategyFromAddToGenesis(t *testing.T) {
	path := writeTemp(t, `
[relaychain]
chain_name = "rococo-local"
[[relaychain.nodes]]
name = "alice"

[[parachains]]
id = 2000
chain_name = "shell"
add_to_genesis = true

[[parachains.collators]]
name = "collator01"
`)

	spec, err := Load(path)
	require.NoError(t, err)
	require.Len(t, spec.Parachains, 1)
	assert.Equal(t, model.InGenesis, spec.Parachains[0].Strategy)
	require.Len(t, spec.Parachains[0].Nodes, 1)
	assert.Equal(t, model.RoleCollator, spec.Parachains[0].Nodes[0].Role)
}

func TestLoad_ParachainDefaultsStrategyToUsingExtrinsic(t *testing.T) {
	path := writeTemp(t, `
[relaychain]
chain_name = "rococo-local"
[[relaychain.nodes]]
name = "alice"

[[parachains]]
id = 2000
chain_name = "shell"

[[parachains.collators]]
name = "collator01"
`)

	spec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.UsingExtrinsic, spec.Parachains[0].Strategy)
}

func TestLoad_AddToGenesisConflictingWithExplicitUsingExtrinsicErrors(t *testing.T) {
	path := writeTemp(t, `
[relaychain]
chain_name = "rococo-local"
[[relaychain.nodes]]
name = "alice"

[[parachains]]
id = 2000
chain_name = "shell"
add_to_genesis = true
strategy = "using_extrinsic"

[[parachains.collators]]
name = "collator01"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_DuplicateNodeNameAcrossRelayAndParachainErrors(t *testing.T) {
	path := writeTemp(t, `
[relaychain]
chain_name = "rococo-local"
[[relaychain.nodes]]
name = "alice"

[[parachains]]
id = 2000
chain_name = "shell"

[[parachains.collators]]
name = "alice"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_HrmpChannelsDecoded(t *testing.T) {
	path := writeTemp(t, `
[relaychain]
chain_name = "rococo-local"
[[relaychain.nodes]]
name = "alice"

[[hrmp_channels]]
sender = 2000
recipient = 2001
max_capacity = 8
max_message_size = 1024
`)

	spec, err := Load(path)
	require.NoError(t, err)
	require.Len(t, spec.HrmpChannels, 1)
	assert.Equal(t, 2000, spec.HrmpChannels[0].Sender)
	assert.Equal(t, 2001, spec.HrmpChannels[0].Recipient)
}

func TestLoad_MissingNodeNameErrors(t *testing.T) {
	path := writeTemp(t, `
[relaychain]
chain_name = "rococo-local"
[[relaychain.nodes]]
role = "validator"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_FileNotFoundErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoad_ChainSpecSourceDefaultsToAuto(t *testing.T) {
	path := writeTemp(t, `
[relaychain]
chain_name = "rococo-local"
[[relaychain.nodes]]
name = "alice"
`)

	spec, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, model.SourceAuto, spec.Relaychain.Source.Kind)
}
