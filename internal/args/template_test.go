package args

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paritytech/zombienet-go/internal/model"
)

func TestExpand_EnvSubstitution(t *testing.T) {
	os.Setenv("ZOMBIENET_TEST_VAR", "hello")
	defer os.Unsetenv("ZOMBIENET_TEST_VAR")

	out, err := Expand("--foo={{ZOMBIENET_TEST_VAR}}", "127.0.0.1", nil)
	require.NoError(t, err)
	assert.Equal(t, "--foo=hello", out)
}

func TestExpand_UnresolvedEnvKeptVerbatim(t *testing.T) {
	out, err := Expand("--foo={{NOT_SET_ANYWHERE_XYZ}}", "127.0.0.1", nil)
	require.NoError(t, err)
	assert.Equal(t, "--foo={{NOT_SET_ANYWHERE_XYZ}}", out)
}

func TestExpand_ZombieTokenMultiaddr(t *testing.T) {
	resolve := func(name string) (model.NodeRuntimeRecord, bool) {
		if name == "alice" {
			return model.NodeRuntimeRecord{Multiaddr: "/ip4/127.0.0.1/tcp/30333/p2p/abc"}, true
		}
		return model.NodeRuntimeRecord{}, false
	}

	out, err := Expand("--bootnodes={{ZOMBIE:alice:multiaddr}}", "127.0.0.1", resolve)
	require.NoError(t, err)
	assert.Equal(t, "--bootnodes=/ip4/127.0.0.1/tcp/30333/p2p/abc", out)
}

func TestExpand_ZombieTokenWsUri(t *testing.T) {
	resolve := func(name string) (model.NodeRuntimeRecord, bool) {
		return model.NodeRuntimeRecord{Endpoints: model.PortSet{WS: 9944}}, true
	}

	out, err := Expand("{{ZOMBIE:alice:ws_uri}}", "127.0.0.1", resolve)
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9944", out)
}

func TestExpand_ZombieTokenUnknownNodeErrors(t *testing.T) {
	resolve := func(name string) (model.NodeRuntimeRecord, bool) {
		return model.NodeRuntimeRecord{}, false
	}

	_, err := Expand("{{ZOMBIE:ghost:multiaddr}}", "127.0.0.1", resolve)
	require.Error(t, err)
}

func TestHasZombieToken(t *testing.T) {
	assert.True(t, HasZombieToken([]string{"--bootnodes={{ZOMBIE:alice:multiaddr}}"}))
	assert.False(t, HasZombieToken([]string{"--foo=bar", "{{ENV_VAR}}"}))
}

func TestExpandAll(t *testing.T) {
	resolve := func(name string) (model.NodeRuntimeRecord, bool) {
		return model.NodeRuntimeRecord{Multiaddr: "/ip4/1.2.3.4/tcp/1/p2p/x"}, true
	}
	out, err := ExpandAll([]string{"--a=1", "--bootnodes={{ZOMBIE:alice:multiaddr}}"}, "127.0.0.1", resolve)
	require.NoError(t, err)
	assert.Equal(t, []string{"--a=1", "--bootnodes=/ip4/1.2.3.4/tcp/1/p2p/x"}, out)
}
