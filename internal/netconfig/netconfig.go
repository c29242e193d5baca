// Package netconfig is the thin decode boundary between a TOML network
// definition file and the orchestrator's model.NetworkSpec. The
// TOML/builder configuration front end itself is out of scope (spec.md
// §1); this package only exists so the CLI can turn a file path into the
// struct the rest of the orchestrator consumes.
package netconfig

import (
	"github.com/BurntSushi/toml"

	"github.com/paritytech/zombienet-go/internal/model"
	"github.com/paritytech/zombienet-go/internal/zerr"
)

// nodeDoc mirrors one [[relaychain.nodes]] or [[parachains.collators]]
// table. bootnodes and bootnodes_addresses are both accepted: bootnodes is
// used when non-empty, otherwise bootnodes_addresses, and the chosen list
// becomes the canonical model.NodeSpec.Bootnodes field (SPEC_FULL.md §13).
type nodeDoc struct {
	Name               string            `toml:"name"`
	Role               string            `toml:"role"`
	Command            string            `toml:"command"`
	Image              string            `toml:"image"`
	Args               []string          `toml:"args"`
	Env                map[string]string `toml:"env"`
	KeyTypes           []string          `toml:"key_types"`
	Bootnodes          []string          `toml:"bootnodes"`
	BootnodesAddresses []string          `toml:"bootnodes_addresses"`
	Bootnode           bool              `toml:"bootnode"`
	DBSnapshot         string            `toml:"db_snapshot"`
	RequestsCPU        string            `toml:"requests_cpu"`
	RequestsMemory     string            `toml:"requests_memory"`
	LimitsCPU          string            `toml:"limits_cpu"`
	LimitsMemory       string            `toml:"limits_memory"`
}

type sourceDoc struct {
	Kind            string `toml:"kind"`
	Path            string `toml:"path"`
	URL             string `toml:"url"`
	CommandTemplate string `toml:"command_template"`
	WasmRef         string `toml:"wasm_ref"`
	Preset          string `toml:"preset"`
}

type relaychainDoc struct {
	ChainName      string    `toml:"chain_name"`
	Source         sourceDoc `toml:"source"`
	DefaultCommand string    `toml:"default_command"`
	DefaultImage   string    `toml:"default_image"`
	DefaultArgs    []string  `toml:"default_args"`
	Nodes          []nodeDoc `toml:"nodes"`
}

type parachainDoc struct {
	ID                 int       `toml:"id"`
	ChainName          string    `toml:"chain_name"`
	Source             sourceDoc `toml:"source"`
	DefaultCommand     string    `toml:"default_command"`
	DefaultImage       string    `toml:"default_image"`
	DefaultArgs        []string  `toml:"default_args"`
	Collators          []nodeDoc `toml:"collators"`
	CumulusBased       bool      `toml:"cumulus_based"`
	EvmBased           bool      `toml:"evm_based"`
	OnboardAsParachain bool      `toml:"onboard_as_parachain"`
	AddToGenesis       bool      `toml:"add_to_genesis"`
	Strategy           string    `toml:"strategy"`
}

type hrmpChannelDoc struct {
	Sender         int `toml:"sender"`
	Recipient      int `toml:"recipient"`
	MaxCapacity    int `toml:"max_capacity"`
	MaxMessageSize int `toml:"max_message_size"`
}

type globalDoc struct {
	Network              string `toml:"network"`
	SpawnConcurrency     int    `toml:"spawn_concurrency"`
	NodeSpawnTimeoutSecs int    `toml:"node_spawn_timeout_secs"`
	NetworkTimeoutSecs   int    `toml:"network_timeout_secs"`
	TearDownOnFailure    *bool  `toml:"tear_down_on_failure"`
	LocalIP              string `toml:"local_ip"`
}

// document is the root of a network definition TOML file.
type document struct {
	Global       globalDoc        `toml:"global"`
	Relaychain   relaychainDoc    `toml:"relaychain"`
	Parachains   []parachainDoc   `toml:"parachains"`
	HrmpChannels []hrmpChannelDoc `toml:"hrmp_channels"`
}

// Load decodes a TOML network definition file into a model.NetworkSpec.
func Load(path string) (*model.NetworkSpec, error) {
	var doc document
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, zerr.New(zerr.ConfigInvalid, path, "decode network definition", err)
	}
	return toNetworkSpec(doc)
}

func toNetworkSpec(doc document) (*model.NetworkSpec, error) {
	spec := &model.NetworkSpec{
		Global: model.GlobalSettings{
			Network:              doc.Global.Network,
			SpawnConcurrency:     orDefault(doc.Global.SpawnConcurrency, 100),
			NodeSpawnTimeoutSecs: orDefault(doc.Global.NodeSpawnTimeoutSecs, 600),
			NetworkTimeoutSecs:   orDefault(doc.Global.NetworkTimeoutSecs, 3600),
			TearDownOnFailure:    doc.Global.TearDownOnFailure == nil || *doc.Global.TearDownOnFailure,
			LocalIP:              orDefaultStr(doc.Global.LocalIP, "127.0.0.1"),
		},
	}

	relayNodes, err := toNodeSpecs(doc.Relaychain.Nodes, model.RoleValidator, doc.Relaychain.DefaultCommand, doc.Relaychain.DefaultImage)
	if err != nil {
		return nil, err
	}
	spec.Relaychain = model.RelaychainSpec{
		ChainName:      doc.Relaychain.ChainName,
		Source:         toSource(doc.Relaychain.Source),
		DefaultCommand: doc.Relaychain.DefaultCommand,
		DefaultImage:   doc.Relaychain.DefaultImage,
		DefaultArgs:    doc.Relaychain.DefaultArgs,
		Nodes:          relayNodes,
	}

	seen := map[string]bool{}
	for _, n := range relayNodes {
		if seen[n.Name] {
			return nil, zerr.New(zerr.ConfigInvalid, n.Name, "duplicate node name", nil)
		}
		seen[n.Name] = true
	}

	for _, pd := range doc.Parachains {
		collators, err := toNodeSpecs(pd.Collators, model.RoleCollator, pd.DefaultCommand, pd.DefaultImage)
		if err != nil {
			return nil, err
		}
		for _, c := range collators {
			if seen[c.Name] {
				return nil, zerr.New(zerr.ConfigInvalid, c.Name, "duplicate node name", nil)
			}
			seen[c.Name] = true
		}

		strategy := model.RegistrationStrategy(pd.Strategy)
		if strategy == "" {
			if pd.AddToGenesis {
				strategy = model.InGenesis
			} else {
				strategy = model.UsingExtrinsic
			}
		}
		if pd.AddToGenesis && strategy == model.UsingExtrinsic {
			return nil, zerr.New(zerr.ConfigInvalid, pd.ChainName, "add_to_genesis and strategy=using_extrinsic are mutually exclusive", nil)
		}

		spec.Parachains = append(spec.Parachains, model.ParachainSpec{
			ID:                 pd.ID,
			ChainName:          pd.ChainName,
			Source:             toSource(pd.Source),
			DefaultCommand:     pd.DefaultCommand,
			DefaultImage:       pd.DefaultImage,
			DefaultArgs:        pd.DefaultArgs,
			Nodes:              collators,
			CumulusBased:       pd.CumulusBased,
			EvmBased:           pd.EvmBased,
			OnboardAsParachain: pd.OnboardAsParachain,
			AddToGenesis:       pd.AddToGenesis,
			Strategy:           strategy,
		})
	}

	for _, h := range doc.HrmpChannels {
		spec.HrmpChannels = append(spec.HrmpChannels, model.HrmpChannelSpec{
			Sender:         h.Sender,
			Recipient:      h.Recipient,
			MaxCapacity:    h.MaxCapacity,
			MaxMessageSize: h.MaxMessageSize,
		})
	}

	return spec, nil
}

func toNodeSpecs(docs []nodeDoc, defaultRole model.NodeRole, defaultCommand, defaultImage string) ([]model.NodeSpec, error) {
	nodes := make([]model.NodeSpec, 0, len(docs))
	for _, d := range docs {
		if d.Name == "" {
			return nil, zerr.New(zerr.ConfigInvalid, "", "node is missing a name", nil)
		}
		role := model.NodeRole(d.Role)
		if role == "" {
			role = defaultRole
		}
		nodes = append(nodes, model.NodeSpec{
			Name:       d.Name,
			Role:       role,
			Command:    orDefaultStr(d.Command, defaultCommand),
			Image:      orDefaultStr(d.Image, defaultImage),
			Args:       d.Args,
			Env:        d.Env,
			KeyTypes:   d.KeyTypes,
			Bootnode:   d.Bootnode,
			Bootnodes:  mergeBootnodes(d.Bootnodes, d.BootnodesAddresses),
			DBSnapshot: d.DBSnapshot,
			Resources: model.ResourceProfile{
				RequestsCPU:    d.RequestsCPU,
				RequestsMemory: d.RequestsMemory,
				LimitsCPU:      d.LimitsCPU,
				LimitsMemory:   d.LimitsMemory,
			},
		})
	}
	return nodes, nil
}

func mergeBootnodes(primary, alternate []string) []string {
	if len(primary) > 0 {
		return primary
	}
	return alternate
}

func toSource(d sourceDoc) model.ChainSpecSource {
	kind := model.ChainSourceKind(d.Kind)
	if kind == "" {
		kind = model.SourceAuto
	}
	return model.ChainSpecSource{
		Kind:            kind,
		Path:            d.Path,
		URL:             d.URL,
		CommandTemplate: d.CommandTemplate,
		WasmRef:         d.WasmRef,
		Preset:          d.Preset,
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
