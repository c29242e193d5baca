package chainspec

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"

	"github.com/paritytech/zombienet-go/internal/model"
)

const (
	zombieAccount   = "//Zombie"
	defaultDecimals = 12
)

// mergeUserOverride applies a JSON merge-patch genesis override on top of t
// (spec.md §4.E step 2a / 3b).
func mergeUserOverride(t Tree, override json.RawMessage) error {
	if len(override) == 0 {
		return nil
	}
	current, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal spec before genesis override: %w", err)
	}
	merged, err := jsonpatch.MergePatch(current, override)
	if err != nil {
		return fmt.Errorf("apply genesis override: %w", err)
	}
	var out Tree
	if err := json.Unmarshal(merged, &out); err != nil {
		return fmt.Errorf("unmarshal merged genesis: %w", err)
	}
	for k := range t {
		delete(t, k)
	}
	for k, v := range out {
		t[k] = v
	}
	return nil
}

// clearAuthorities removes every existing authority/invulnerable set from
// the runtime genesis (spec.md §4.E step 2b).
func clearAuthorities(runtime Tree) {
	clearPath(runtime, "session", "keys")
	clearPath(runtime, "aura", "authorities")
	clearPath(runtime, "grandpa", "authorities")
	clearPath(runtime, "collatorSelection", "invulnerables")
	clearPath(runtime, "staking", "invulnerables")
	clearPath(runtime, "staking", "stakers")
	if _, hasDevStakers := getPath(runtime, "staking", "devStakers").(bool); !hasDevStakers {
		setPath(runtime, 0, "staking", "validatorCount")
	}
}

// genesisBalanceFor returns the floor-applied balance for a node account,
// skipping zero-initial-balance nodes (spec.md §4.E step 2c, SPEC_FULL §12
// "Genesis balance floor").
func genesisBalanceFor(initialBalance, stakingMin int64) (int64, bool) {
	if initialBalance == 0 {
		return 0, false
	}
	floor := stakingMin * 2
	if initialBalance > floor {
		return initialBalance, true
	}
	return floor, true
}

// addBalances appends {account, amount} pairs for every node's sr and
// sr_stash accounts plus the //Zombie account (spec.md §4.E steps 2c/2d).
func addBalances(runtime Tree, nodes []model.NodeSpec, initialBalances map[string]int64, stakingMin int64, decimals int) {
	balances, _ := getPath(runtime, "balances", "balances").([]any)

	for _, n := range nodes {
		initial := initialBalances[n.Name]
		if amount, ok := genesisBalanceFor(initial, stakingMin); ok {
			balances = append(balances, []any{n.Account.Sr25519PublicHex, amount})
			balances = append(balances, []any{n.Account.StashSr25519PublicHex, amount})
		}
	}

	zombieAmount := int64(1000)
	for i := 0; i < decimals; i++ {
		zombieAmount *= 10
	}
	balances = append(balances, []any{zombieAccount, zombieAmount})

	setPath(runtime, balances, "balances", "balances")
}

// addStakingInvulnerables records validator accounts as staking invulnerables
// (spec.md §4.E step 2e).
func addStakingInvulnerables(runtime Tree, validators []model.NodeSpec) {
	var stashes []any
	for _, v := range validators {
		stashes = append(stashes, v.Account.StashSr25519PublicHex)
	}
	setPath(runtime, stashes, "staking", "invulnerables")
}

// addAuthorities installs session keys (preferred) or direct aura/grandpa
// authority lists if the session pallet is absent (spec.md §4.E step 2f).
func addAuthorities(runtime Tree, validators []model.NodeSpec) {
	if _, hasSession := runtime["session"]; hasSession || sessionPalletExpected(runtime) {
		var keys []any
		for _, v := range validators {
			sessionKeys := Tree{
				"grandpa": v.Account.Ed25519PublicHex,
				"aura":    v.Account.Sr25519PublicHex,
			}
			keys = append(keys, []any{v.Account.StashSr25519PublicHex, v.Account.StashSr25519PublicHex, sessionKeys})
		}
		setPath(runtime, keys, "session", "keys")
		return
	}

	var auraAuthorities, grandpaAuthorities []any
	for _, v := range validators {
		auraAuthorities = append(auraAuthorities, v.Account.Sr25519PublicHex)
		grandpaAuthorities = append(grandpaAuthorities, []any{v.Account.Ed25519PublicHex, 1})
	}
	setPath(runtime, auraAuthorities, "aura", "authorities")
	setPath(runtime, grandpaAuthorities, "grandpa", "authorities")
}

func sessionPalletExpected(runtime Tree) bool {
	_, hasAura := runtime["aura"]
	_, hasGrandpa := runtime["grandpa"]
	// Absence of both aura and grandpa top-level keys is taken as a signal
	// the runtime uses the session pallet instead of direct authority lists.
	return !hasAura && !hasGrandpa
}

// addHrmpChannels writes the network's HRMP channel list into the relay
// genesis (spec.md §4.E step 2g).
func addHrmpChannels(runtime Tree, channels []model.HrmpChannelSpec) {
	if len(channels) == 0 {
		return
	}
	var preopen []any
	for _, c := range channels {
		preopen = append(preopen, []any{c.Sender, c.Recipient, c.MaxCapacity, c.MaxMessageSize})
	}
	setPath(runtime, preopen, "hrmp", "preopenHrmpChannels")
}

// ParaGenesisEntry is one InGenesis parachain's head/wasm, produced by the
// parachain's own chain-spec pipeline before the relay chain is patched
// (spec.md §4.E step 2h).
type ParaGenesisEntry struct {
	ParaID   int
	HeadHex  string
	WasmHex  string
}

// addParasGenesis inserts each InGenesis parachain's genesis head+wasm into
// the relay chain's `paras` pallet (spec.md §4.E step 2h).
func addParasGenesis(runtime Tree, entries []ParaGenesisEntry) {
	if len(entries) == 0 {
		return
	}
	var paras []any
	for _, e := range entries {
		paras = append(paras, []any{
			e.ParaID,
			[]any{e.HeadHex, e.WasmHex, true},
		})
	}
	setPath(runtime, paras, "paras", "paras")
}

// PatchRelayOptions bundles everything PatchRelay needs beyond the spec
// model itself.
type PatchRelayOptions struct {
	Nodes           []model.NodeSpec
	InitialBalances map[string]int64
	StakingMin      int64
	Decimals        int
	HrmpChannels    []model.HrmpChannelSpec
	InGenesisParas  []ParaGenesisEntry
}

// PatchRelay runs the full relay-chain plain-patching pipeline (spec.md
// §4.E step 2).
func PatchRelay(t Tree, relay model.RelaychainSpec, opts PatchRelayOptions) error {
	if err := mergeUserOverride(t, relay.GenesisOverride); err != nil {
		return fmt.Errorf("patch relay %q: %w", relay.ChainName, err)
	}

	runtime := genesisRuntime(t)
	clearAuthorities(runtime)

	decimals := opts.Decimals
	if decimals == 0 {
		decimals = defaultDecimals
	}
	addBalances(runtime, opts.Nodes, opts.InitialBalances, opts.StakingMin, decimals)

	var validators []model.NodeSpec
	for _, n := range opts.Nodes {
		if n.Role == model.RoleValidator {
			validators = append(validators, n)
		}
	}
	addStakingInvulnerables(runtime, validators)
	addAuthorities(runtime, validators)
	addHrmpChannels(runtime, opts.HrmpChannels)
	addParasGenesis(runtime, opts.InGenesisParas)

	return nil
}

// PatchParachain runs the full parachain plain-patching pipeline (spec.md
// §4.E step 3).
func PatchParachain(t Tree, para model.ParachainSpec, relayChainName string) error {
	setPath(t, para.ID, "para_id")
	setPath(t, para.ID, "paraId")
	setPath(t, relayChainName, "relay_chain")

	if err := mergeUserOverride(t, para.GenesisOverride); err != nil {
		return fmt.Errorf("patch parachain %d: %w", para.ID, err)
	}

	runtime := genesisRuntime(t)
	clearAuthorities(runtime)

	var invulnerables []any
	var collatorAuthorities []any
	for _, c := range para.Nodes {
		invulnerables = append(invulnerables, c.Account.Sr25519PublicHex)
		if para.EvmBased {
			collatorAuthorities = append(collatorAuthorities, c.Account.EthAddressHex)
		} else {
			collatorAuthorities = append(collatorAuthorities, c.Account.Sr25519PublicHex)
		}
	}
	setPath(runtime, invulnerables, "collatorSelection", "invulnerables")
	setPath(runtime, collatorAuthorities, "aura", "authorities")
	setPath(runtime, para.ID, "parachainInfo", "parachainId")

	var balances []any
	for _, c := range para.Nodes {
		balances = append(balances, []any{c.Account.Sr25519PublicHex, 1 << 60})
	}
	setPath(runtime, balances, "balances", "balances")

	return nil
}
