package activity

import (
	"context"

	"github.com/paritytech/zombienet-go/internal/identity"
	"github.com/paritytech/zombienet-go/internal/model"
)

// Identity wraps component D's deterministic key derivation in Temporal
// activities. The derivation itself is pure, but workflow code must not
// call non-workflow-safe stdlib/crypto functions directly, so it is routed
// through activities like every other non-trivial computation here.
type Identity struct{}

// NewIdentity constructs an Identity activity set.
func NewIdentity() *Identity { return &Identity{} }

// DeriveNodeIdentityParams names the node and its requested key types.
type DeriveNodeIdentityParams struct {
	NodeName string   `json:"node_name"`
	KeyTypes []string `json:"key_types"`
	EvmBased bool     `json:"evm_based"`
}

// DeriveNodeIdentityResult carries the full derived identity.
type DeriveNodeIdentityResult struct {
	Account    model.NodeAccount `json:"account"`
	NodeKeyHex string            `json:"node_key_hex"`
	PeerID     string            `json:"peer_id"`
}

// DeriveNodeIdentity derives the node-key/peer-id and account keys for one
// node (spec.md §4.D).
func (a *Identity) DeriveNodeIdentity(ctx context.Context, p DeriveNodeIdentityParams) (*DeriveNodeIdentityResult, error) {
	account, err := identity.DeriveAccount(p.NodeName, p.KeyTypes, p.EvmBased)
	if err != nil {
		return nil, err
	}
	nodeKeyHex, peerID, err := identity.DeriveNodeKey(p.NodeName)
	if err != nil {
		return nil, err
	}
	return &DeriveNodeIdentityResult{Account: account, NodeKeyHex: nodeKeyHex, PeerID: peerID}, nil
}
