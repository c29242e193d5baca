// Package provider implements the polymorphic backend contract over which
// nodes are spawned — native child processes, Docker containers, or k8s
// pods (spec.md §4.C).
package provider

import (
	"context"

	"github.com/paritytech/zombienet-go/internal/model"
)

// NodeHandle is an opaque, provider-specific reference to a running node:
// a PID for native, a container id for docker, a pod name for k8s.
type NodeHandle string

// Capabilities advertises what a provider backend can and cannot do, so the
// scheduler and network handle can adapt (spec.md §4.C).
type Capabilities struct {
	RequiresImage            bool
	SupportsResourceLimits   bool
	HasStableIntraNetworkDNS bool
}

// SpawnOptions is everything a provider needs to start one node.
type SpawnOptions struct {
	Name      string
	Command   string
	Args      []string
	Env       map[string]string
	Image     string // ignored by native
	BasePath  string
	Ports     model.PortSet
	Resources model.ResourceProfile
	LogPath   string // native only; docker/k8s stream logs via their own API
}

// ExecResult is the outcome of running a command inside a node's
// container/process/pod.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Provider is the backend contract every node lifecycle operation goes
// through (spec.md §4.C).
type Provider interface {
	CreateNamespace(ctx context.Context) error
	SpawnNode(ctx context.Context, opts SpawnOptions) (NodeHandle, error)
	CopyToNode(ctx context.Context, handle NodeHandle, src, dst string) error
	CopyFromNode(ctx context.Context, handle NodeHandle, src, dst string) error
	Exec(ctx context.Context, handle NodeHandle, cmd []string) (ExecResult, error)
	Pause(ctx context.Context, handle NodeHandle) error
	Resume(ctx context.Context, handle NodeHandle) error
	Restart(ctx context.Context, handle NodeHandle, afterSeconds int) error
	Destroy(ctx context.Context, handle NodeHandle) error
	DestroyNamespace(ctx context.Context) error
	Capabilities() Capabilities
}
