package chainspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paritytech/zombienet-go/internal/model"
)

func validator(name string) model.NodeSpec {
	return model.NodeSpec{
		Name: name,
		Role: model.RoleValidator,
		Account: model.NodeAccount{
			Sr25519PublicHex:      "sr-" + name,
			StashSr25519PublicHex: "stash-" + name,
			Ed25519PublicHex:      "ed-" + name,
		},
	}
}

func TestPatchRelay_ClearsExistingAuthorities(t *testing.T) {
	tree := Tree{
		"genesis": Tree{
			"runtime": Tree{
				"aura":    Tree{"authorities": []any{"stale"}},
				"grandpa": Tree{"authorities": []any{"stale"}},
			},
		},
	}
	err := PatchRelay(tree, model.RelaychainSpec{ChainName: "rococo-local"}, PatchRelayOptions{
		Nodes: []model.NodeSpec{validator("alice"), validator("bob")},
	})
	require.NoError(t, err)

	runtime := genesisRuntime(tree)
	aura, _ := getPath(runtime, "aura", "authorities").([]any)
	assert.Len(t, aura, 2)
	assert.NotContains(t, aura, "stale")
}

func TestPatchRelay_ValidatorCountZeroWithoutDevStakers(t *testing.T) {
	tree := Tree{}
	err := PatchRelay(tree, model.RelaychainSpec{}, PatchRelayOptions{})
	require.NoError(t, err)

	runtime := genesisRuntime(tree)
	assert.Equal(t, 0, getPath(runtime, "staking", "validatorCount"))
}

func TestPatchRelay_ZombieAccountFunded(t *testing.T) {
	tree := Tree{}
	err := PatchRelay(tree, model.RelaychainSpec{}, PatchRelayOptions{Decimals: 12})
	require.NoError(t, err)

	runtime := genesisRuntime(tree)
	balances, _ := getPath(runtime, "balances", "balances").([]any)
	require.NotEmpty(t, balances)
	last := balances[len(balances)-1].([]any)
	assert.Equal(t, zombieAccount, last[0])
	assert.Equal(t, int64(1000_000000000000), last[1])
}

func TestGenesisBalanceFor_SkipsZeroInitialBalance(t *testing.T) {
	_, ok := genesisBalanceFor(0, 100)
	assert.False(t, ok)
}

func TestGenesisBalanceFor_FloorAppliesWhenBelowStakingMinTimesTwo(t *testing.T) {
	amount, ok := genesisBalanceFor(50, 100)
	assert.True(t, ok)
	assert.Equal(t, int64(200), amount)
}

func TestGenesisBalanceFor_InitialBalanceWinsWhenAboveFloor(t *testing.T) {
	amount, ok := genesisBalanceFor(1000, 100)
	assert.True(t, ok)
	assert.Equal(t, int64(1000), amount)
}

func TestPatchParachain_SetsParaIDBothCasesAndRelayChain(t *testing.T) {
	tree := Tree{}
	para := model.ParachainSpec{ID: 2000, Nodes: []model.NodeSpec{validator("col1")}}
	err := PatchParachain(tree, para, "rococo-local")
	require.NoError(t, err)

	assert.Equal(t, 2000, tree["para_id"])
	assert.Equal(t, 2000, tree["paraId"])
	assert.Equal(t, "rococo-local", tree["relay_chain"])
}

func TestPatchParachain_EvmBasedUsesEthAddressForAuthorities(t *testing.T) {
	tree := Tree{}
	collator := validator("col1")
	collator.Account.EthAddressHex = "0xabc"
	para := model.ParachainSpec{ID: 2000, EvmBased: true, Nodes: []model.NodeSpec{collator}}
	err := PatchParachain(tree, para, "rococo-local")
	require.NoError(t, err)

	runtime := genesisRuntime(tree)
	aura, _ := getPath(runtime, "aura", "authorities").([]any)
	assert.Contains(t, aura, "0xabc")
}

func TestAddHrmpChannels_WritesPreopenList(t *testing.T) {
	runtime := Tree{}
	addHrmpChannels(runtime, []model.HrmpChannelSpec{{Sender: 1000, Recipient: 2000, MaxCapacity: 8, MaxMessageSize: 1024}})
	preopen, _ := getPath(runtime, "hrmp", "preopenHrmpChannels").([]any)
	require.Len(t, preopen, 1)
}

func TestAddParasGenesis_InsertsHeadAndWasm(t *testing.T) {
	runtime := Tree{}
	addParasGenesis(runtime, []ParaGenesisEntry{{ParaID: 1000, HeadHex: "aa", WasmHex: "bb"}})
	paras, _ := getPath(runtime, "paras", "paras").([]any)
	require.Len(t, paras, 1)
}
