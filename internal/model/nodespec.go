package model

// NodeRole is the role a node plays within its chain (spec.md §3).
type NodeRole string

const (
	RoleValidator NodeRole = "validator"
	RoleFullNode  NodeRole = "full_node"
	RoleCollator  NodeRole = "collator"
)

// PortSet is the four ports every node reserves (spec.md §3 invariant 2).
type PortSet struct {
	RPC        int
	WS         int
	Prometheus int
	P2P        int
}

// NodeAccount holds the derived key material for a single node (spec.md
// §4.D). EthKey is only populated for EVM-based collators.
type NodeAccount struct {
	Sr25519PublicHex      string
	Sr25519SeedHex        string
	StashSr25519PublicHex string
	StashSr25519SeedHex   string
	Ed25519PublicHex      string
	Ed25519SeedHex        string
	EcdsaPublicHex        string
	EcdsaSeedHex          string
	EthAddressHex         string
	EthPrivateKeyHex      string
}

// NodeSpec is one node in a RelaychainSpec or ParachainSpec (spec.md §3).
type NodeSpec struct {
	Name       string
	Role       NodeRole
	Command    string
	Image      string
	Args       []string // user-supplied args, including "-:" removal tokens
	Env        map[string]string
	KeyTypes   []string // e.g. {"sr25519", "ed25519", "ecdsa"}
	Resources  ResourceProfile

	DBSnapshot string // optional reference to a pre-populated db snapshot

	Ports PortSet

	Account    NodeAccount
	NodeKeyHex string // libp2p identity seed, derived from Name
	PeerID     string // derived from NodeKeyHex, base58-rendered

	Bootnode  bool
	Bootnodes []string // names of other nodes whose multiaddress this node depends on

	BasePath string // assigned working directory, disjoint per node (invariant 5)
}
