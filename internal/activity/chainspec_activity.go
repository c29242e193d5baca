package activity

import (
	"context"
	"fmt"

	"github.com/paritytech/zombienet-go/internal/chainspec"
	"github.com/paritytech/zombienet-go/internal/model"
)

// ChainSpec wraps the chain-spec pipeline (component E) in Temporal
// activities, so the workflow can schedule spec generation on the same
// worker pool as node spawns without blocking the workflow goroutine.
type ChainSpec struct {
	Engine *chainspec.Engine
	Cache  *chainspec.GenesisCache
}

// NewChainSpec constructs a ChainSpec activity set.
func NewChainSpec(engine *chainspec.Engine, cache *chainspec.GenesisCache) *ChainSpec {
	return &ChainSpec{Engine: engine, Cache: cache}
}

// ResolveSourceParams identifies a chain and its source.
type ResolveSourceParams struct {
	Source    model.ChainSpecSource `json:"source"`
	ChainName string                `json:"chain_name"`
	Binary    string                `json:"binary"`
	WorkDir   string                `json:"work_dir"`
}

// ResolveSource runs spec.md §4.E step 1 for one chain.
func (a *ChainSpec) ResolveSource(ctx context.Context, p ResolveSourceParams) (string, error) {
	return a.Engine.Resolve(ctx, p.Source, p.ChainName, p.Binary, p.WorkDir)
}

// PatchRelayParams carries everything PatchRelay needs over the wire.
type PatchRelayParams struct {
	PlainPath string                        `json:"plain_path"`
	Relay     model.RelaychainSpec          `json:"relay"`
	Options   chainspec.PatchRelayOptions   `json:"options"`
}

// PatchRelay loads, patches, and re-saves the relay chain's plain spec
// (spec.md §4.E step 2).
func (a *ChainSpec) PatchRelay(ctx context.Context, p PatchRelayParams) error {
	tree, err := a.Engine.LoadTree(ctx, p.PlainPath)
	if err != nil {
		return err
	}
	if err := chainspec.PatchRelay(tree, p.Relay, p.Options); err != nil {
		return fmt.Errorf("patch relay %s: %w", p.Relay.ChainName, err)
	}
	return a.Engine.SaveTree(ctx, p.PlainPath, tree)
}

// PatchParachainParams carries everything PatchParachain needs over the wire.
type PatchParachainParams struct {
	PlainPath      string               `json:"plain_path"`
	Para           model.ParachainSpec  `json:"para"`
	RelayChainName string               `json:"relay_chain_name"`
}

// PatchParachain loads, patches, and re-saves a parachain's plain spec
// (spec.md §4.E step 3).
func (a *ChainSpec) PatchParachain(ctx context.Context, p PatchParachainParams) error {
	tree, err := a.Engine.LoadTree(ctx, p.PlainPath)
	if err != nil {
		return err
	}
	if err := chainspec.PatchParachain(tree, p.Para, p.RelayChainName); err != nil {
		return fmt.Errorf("patch parachain %d: %w", p.Para.ID, err)
	}
	return a.Engine.SaveTree(ctx, p.PlainPath, tree)
}

// ToRawParams carries ToRaw's arguments.
type ToRawParams struct {
	Binary    string `json:"binary"`
	PlainPath string `json:"plain_path"`
	ChainName string `json:"chain_name"`
	WorkDir   string `json:"work_dir"`
}

// ToRaw invokes `build-spec --raw` (spec.md §4.E step 4).
func (a *ChainSpec) ToRaw(ctx context.Context, p ToRawParams) (string, error) {
	return a.Engine.ToRaw(ctx, p.Binary, p.PlainPath, p.ChainName, p.WorkDir)
}

// ApplyOverridesParams carries the post-raw override inputs.
type ApplyOverridesParams struct {
	RawPath         string `json:"raw_path"`
	WasmOverrideHex string `json:"wasm_override_hex,omitempty"`
	RawSpecOverride []byte `json:"raw_spec_override,omitempty"`
}

// ApplyOverrides applies wasm_override and/or raw_spec_override to a raw
// spec (spec.md §4.E step 5).
func (a *ChainSpec) ApplyOverrides(ctx context.Context, p ApplyOverridesParams) error {
	tree, err := a.Engine.LoadTree(ctx, p.RawPath)
	if err != nil {
		return err
	}
	if err := chainspec.ApplyWasmOverride(tree, p.WasmOverrideHex); err != nil {
		return err
	}
	merged, err := chainspec.ApplyRawSpecOverride(tree, p.RawSpecOverride)
	if err != nil {
		return err
	}
	return a.Engine.SaveTree(ctx, p.RawPath, merged)
}
