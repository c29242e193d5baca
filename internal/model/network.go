package model

// NetworkSpec is the orchestrator's fully-resolved, immutable form of a
// network definition (spec.md §3). It is built once by the out-of-scope
// configuration front end and never mutated after spawn; dynamic changes
// go through the Network handle instead.
type NetworkSpec struct {
	Relaychain   RelaychainSpec
	Parachains   []ParachainSpec
	Global       GlobalSettings
	HrmpChannels []HrmpChannelSpec
	CustomNodes  []CustomProcessSpec
}

// GlobalSettings holds network-wide knobs that apply across every chain.
type GlobalSettings struct {
	Network              string // network id / name, used to namespace docker/k8s objects
	SpawnConcurrency     int    // default 100, env ZOMBIE_SPAWN_CONCURRENCY
	NodeSpawnTimeoutSecs int    // default 600, env ZOMBIE_NODE_SPAWN_TIMEOUT_SECONDS
	NetworkTimeoutSecs   int    // default 3600
	TearDownOnFailure    bool   // default true
	LocalIP              string // bind address for native provider endpoints, default 127.0.0.1
}

// HrmpChannelSpec describes a single HRMP channel to be inserted into
// the relay chain's genesis.
type HrmpChannelSpec struct {
	Sender            int
	Recipient         int
	MaxCapacity       int
	MaxMessageSize    int
}

// CustomProcessSpec describes an auxiliary process that isn't a relay or
// parachain node (e.g. a block explorer, a bridge relayer) but still
// participates in the spawn/readiness/teardown lifecycle.
type CustomProcessSpec struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
}
