package args

import (
	"fmt"

	"github.com/paritytech/zombienet-go/internal/model"
)

// BuildOptions carries the context the assembler needs beyond the
// NodeSpec itself: whether the target binary advertises the
// insecure-validator flag, whether the provider is containerized, and
// (for cumulus relay-side nodes) the parachain id to inject.
type BuildOptions struct {
	ChainSpecPath              string
	SupportsInsecureValidator  bool
	Containerized              bool
	CumulusRelayParachainID    *uint32
	RelayChain                 bool // true for relay-chain and embedded-relay nodes, false for parachain/collator nodes
}

// Build assembles the final flag list for a node: framework-managed,
// then conditional, then the port/path group, then user args applied
// with the removal operator (spec.md §4.F).
func Build(node model.NodeSpec, opts BuildOptions) *List {
	l := &List{}

	// Framework-managed: always set, filters any same-named user flag (only
	// "-:" can dislodge these, not a bare re-specification — spec.md §4.F).
	l.SetProtected("chain", opts.ChainSpecPath)
	l.SetProtected("name", node.Name)
	l.SetProtected("rpc-cors", "all")
	l.SetProtected("rpc-methods", "unsafe")
	if node.NodeKeyHex != "" {
		l.SetProtected("node-key", node.NodeKeyHex)
	}
	if opts.RelayChain && opts.CumulusRelayParachainID != nil {
		l.SetProtected("parachain-id", fmt.Sprintf("%d", *opts.CumulusRelayParachainID))
	}

	// Conditionally added.
	if node.Role == model.RoleValidator {
		l.SetBool("validator")
		if opts.SupportsInsecureValidator {
			l.SetBool("insecure-validator-i-know-what-i-do")
		}
	}
	if opts.Containerized {
		l.SetBool("prometheus-external")
		l.SetBool("unsafe-rpc-external")
	}
	if len(node.Bootnodes) > 0 {
		l.Set("bootnodes", joinComma(node.Bootnodes))
	}
	if opts.RelayChain {
		l.SetBool("no-telemetry")
	}
	if node.Role == model.RoleCollator {
		l.SetBool("collator")
	}

	// Port/path group.
	l.Set("prometheus-port", fmt.Sprintf("%d", node.Ports.Prometheus))
	l.Set("rpc-port", fmt.Sprintf("%d", node.Ports.RPC))
	l.Set("listen-addr", fmt.Sprintf("/ip4/0.0.0.0/tcp/%d/ws", node.Ports.P2P))
	l.Set("base-path", node.BasePath)

	l.ApplyUserArgs(node.Args)

	return l
}

func joinComma(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ","
		}
		out += it
	}
	return out
}
