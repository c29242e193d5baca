package zombiejson

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paritytech/zombienet-go/internal/fsys"
)

func sampleDoc() Document {
	return Document{
		NetworkID: NewNetworkID(),
		Provider:  "native",
		BaseDir:   "/tmp/x",
		Nodes: []Node{
			{Name: "alice", Role: "validator", Endpoints: Endpoints{RPC: 9933, WS: 9944, Prometheus: 9615, P2P: 30333}, Multiaddr: "/ip4/127.0.0.1/tcp/30333/p2p/12D3KooWAlice", BasePath: "/tmp/x/alice", Command: "polkadot", Handle: "pid:111"},
			{Name: "bob", Role: "validator", Endpoints: Endpoints{RPC: 9934, WS: 9945, Prometheus: 9616, P2P: 30334}, Multiaddr: "/ip4/127.0.0.1/tcp/30334/p2p/12D3KooWBob", BasePath: "/tmp/x/bob", Command: "polkadot", Handle: "pid:112"},
		},
		Relay: Relay{ChainSpecPath: "/tmp/x/chain.json", Chain: "rococo-local"},
	}
}

func TestNewNetworkID_IsUUIDv4Shaped(t *testing.T) {
	id := NewNetworkID()
	assert.Len(t, id, 36)
	assert.Equal(t, byte('4'), id[14])
}

func TestWriteThenRead_RoundTrips(t *testing.T) {
	ctx := context.Background()
	fs := fsys.NewMemory()
	doc := sampleDoc()

	require.NoError(t, Write(ctx, fs, doc))

	got, err := Read(ctx, fs, doc.BaseDir)
	require.NoError(t, err)
	assert.Equal(t, doc.NetworkID, got.NetworkID)
	assert.Equal(t, doc.Provider, got.Provider)
	require.Len(t, got.Nodes, 2)
	assert.Equal(t, "alice", got.Nodes[0].Name)
	assert.Equal(t, "/ip4/127.0.0.1/tcp/30333/p2p/12D3KooWAlice", got.Nodes[0].Multiaddr)
	assert.Equal(t, doc.Relay, got.Relay)
}

func TestReadPath_ReadsExplicitZombieJSONLocation(t *testing.T) {
	ctx := context.Background()
	fs := fsys.NewMemory()
	doc := sampleDoc()
	require.NoError(t, Write(ctx, fs, doc))

	got, err := ReadPath(ctx, fs, "/tmp/x/zombie.json")
	require.NoError(t, err)
	assert.Equal(t, doc.NetworkID, got.NetworkID)
}

func TestRead_MissingFileErrors(t *testing.T) {
	ctx := context.Background()
	fs := fsys.NewMemory()
	_, err := Read(ctx, fs, "/does/not/exist")
	assert.Error(t, err)
}

func TestParaIDPointer_OmittedForRelayNodes(t *testing.T) {
	ctx := context.Background()
	fs := fsys.NewMemory()
	doc := sampleDoc()
	require.NoError(t, Write(ctx, fs, doc))

	raw, err := fs.Read(ctx, "/tmp/x/zombie.json")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "para_id")
}
