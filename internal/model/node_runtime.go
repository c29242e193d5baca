package model

import "time"

// NodeStatus is the lifecycle state of a spawned node (spec.md §3).
type NodeStatus string

const (
	StatusSpawning NodeStatus = "spawning"
	StatusReady    NodeStatus = "ready"
	StatusPaused   NodeStatus = "paused"
	StatusStopped  NodeStatus = "stopped"
	StatusFailed   NodeStatus = "failed"
)

// NodeRuntimeRecord is the live-network view of a single node, held by the
// Network handle (component H) and serialized into zombie.json (component I).
type NodeRuntimeRecord struct {
	Name      string
	ChainName string
	ParaID    int // 0 for relay chain nodes
	Role      NodeRole
	Status    NodeStatus
	Handle    string // provider-specific reference: pid, container id, or pod name
	Endpoints PortSet
	Multiaddr string
	BasePath  string
	Command   string // full assembled command line, for zombie.json and debugging
	LogPath   string
	StartedAt time.Time
}
