// Package zombiejson persists and rehydrates the state a running network
// needs to be reattached to later (component I, spec.md §4.I): network
// id, provider kind, every node's endpoints and base path, and the chain
// spec paths used to spawn it.
package zombiejson

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/paritytech/zombienet-go/internal/fsys"
)

// Endpoints is a node's four reserved ports, as actually bound (spec.md §3
// invariant 2).
type Endpoints struct {
	RPC        int `json:"rpc"`
	WS         int `json:"ws"`
	Prometheus int `json:"prometheus"`
	P2P        int `json:"p2p"`
}

// Node is one node's persisted state.
type Node struct {
	Name      string    `json:"name"`
	ParaID    *int      `json:"para_id,omitempty"`
	Role      string    `json:"role"`
	Endpoints Endpoints `json:"endpoints"`
	Multiaddr string    `json:"multiaddr"`
	BasePath  string    `json:"base_path"`
	Command   string    `json:"command"`
	LogPath   string    `json:"log_path,omitempty"`
	Handle    string    `json:"handle"`
}

// Parachain is one parachain's persisted state.
type Parachain struct {
	ID            int    `json:"id"`
	Strategy      string `json:"strategy"`
	ChainSpecPath string `json:"chain_spec_path"`
}

// Relay is the relay chain's persisted state.
type Relay struct {
	ChainSpecPath string `json:"chain_spec_path"`
	Chain         string `json:"chain"`
}

// Document is the full schema written to `zombie.json` (spec.md §4.I /
// §6's exact field list).
type Document struct {
	NetworkID  string      `json:"network_id"`
	Provider   string      `json:"provider"`
	BaseDir    string      `json:"base_dir"`
	Nodes      []Node      `json:"nodes"`
	Parachains []Parachain `json:"parachains"`
	Relay      Relay       `json:"relay"`
}

// NewNetworkID mints a UUIDv4, as required by the schema (spec.md §4.I),
// grounded on the teacher's internal/platform/id.go NewID.
func NewNetworkID() string {
	return uuid.New().String()
}

// path is always <base_dir>/zombie.json.
func path(baseDir string) string {
	return baseDir + "/zombie.json"
}

// Write serializes a Document to `<base_dir>/zombie.json`. Per spec.md §5
// ordering guarantee (iii), callers must only invoke this once every node
// in the document has reached Ready.
func Write(ctx context.Context, fs fsys.FS, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal zombie.json: %w", err)
	}
	if err := fs.Write(ctx, path(doc.BaseDir), data, 0o644); err != nil {
		return fmt.Errorf("write zombie.json under %s: %w", doc.BaseDir, err)
	}
	return nil
}

// Read loads and parses `<base_dir>/zombie.json`.
func Read(ctx context.Context, fs fsys.FS, baseDir string) (*Document, error) {
	data, err := fs.Read(ctx, path(baseDir))
	if err != nil {
		return nil, fmt.Errorf("read zombie.json under %s: %w", baseDir, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse zombie.json under %s: %w", baseDir, err)
	}
	return &doc, nil
}

// ReadPath loads and parses a zombie.json file at an explicit path, for
// `attach_native("/tmp/x/zombie.json")`-style callers that don't know the
// base_dir in advance.
func ReadPath(ctx context.Context, fs fsys.FS, zombieJSONPath string) (*Document, error) {
	data, err := fs.Read(ctx, zombieJSONPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", zombieJSONPath, err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", zombieJSONPath, err)
	}
	return &doc, nil
}
