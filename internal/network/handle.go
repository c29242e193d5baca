// Package network implements the live Network handle (component H,
// spec.md §4.H): the API a driver holds onto after spawn to add/remove
// nodes, pause/resume/restart them, register parachains, submit runtime
// upgrades, and assert on metrics. Per-node operations here are direct
// provider/ecosystem calls rather than new Temporal workflow executions —
// the same locally-reconciling shape as internal/agent/reconciler.go,
// which acts without going through Temporal for its own per-resource work.
package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/paritytech/zombienet-go/internal/activity"
	"github.com/paritytech/zombienet-go/internal/args"
	"github.com/paritytech/zombienet-go/internal/chainspec"
	"github.com/paritytech/zombienet-go/internal/ecosystem"
	"github.com/paritytech/zombienet-go/internal/fsys"
	"github.com/paritytech/zombienet-go/internal/identity"
	"github.com/paritytech/zombienet-go/internal/model"
	"github.com/paritytech/zombienet-go/internal/promtext"
	"github.com/paritytech/zombienet-go/internal/provider"
	"github.com/paritytech/zombienet-go/internal/zerr"
	"github.com/paritytech/zombienet-go/internal/zombiejson"
)

// NodeRecord is the handle's live view of one node, refreshed on every
// add/remove and read concurrently by get_node/assert/reports (spec.md §5
// "the node runtime table inside the handle (guarded; reads are
// concurrent, writes serialized)").
type NodeRecord struct {
	Name      string
	ParaID    *int
	Role      model.NodeRole
	Handle    provider.NodeHandle
	Ports     model.PortSet
	Multiaddr string
	BasePath  string
	Command   string
	LogPath   string
}

// Network is the live handle over a spawned (or attached-to) network.
type Network struct {
	Provider  provider.Provider
	FS        fsys.FS
	Spawn     *activity.Spawn
	ChainSpec *chainspec.Engine
	Logger    zerolog.Logger
	HTTP      *http.Client

	NetworkID    string
	ProviderKind string
	BaseDir      string
	LocalIP      string
	RelayChain   string

	mu         sync.RWMutex
	nodes      map[string]*NodeRecord
	parachains map[int]registeredParachain
}

type registeredParachain struct {
	strategy       model.RegistrationStrategy
	chainSpecPath  string
	registeredOnce bool
}

// New constructs an empty handle for a network about to be spawned.
func New(p provider.Provider, fs fsys.FS, chainSpecEngine *chainspec.Engine, logger zerolog.Logger) *Network {
	return &Network{
		Provider:   p,
		FS:         fs,
		Spawn:      activity.NewSpawn(p, fs),
		ChainSpec:  chainSpecEngine,
		Logger:     logger,
		HTTP:       &http.Client{Timeout: 10 * time.Second},
		nodes:      map[string]*NodeRecord{},
		parachains: map[int]registeredParachain{},
	}
}

// GetNode returns the live record for a node by name.
func (n *Network) GetNode(name string) (*NodeRecord, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	rec, ok := n.nodes[name]
	if !ok {
		return nil, zerr.New(zerr.NetworkInconsistent, name, "node not found in this network", nil)
	}
	return rec, nil
}

// AddNodeOptions carries everything AddNode needs to spawn a single new
// node outside the initial spawn workflow, reusing D (identity), E (chain
// spec, already built), F (args), and G's per-node steps directly
// (spec.md §4.H: "add_node reuses D/E/F/G for a single node").
type AddNodeOptions struct {
	Spec          model.NodeSpec
	BuildOptions  args.BuildOptions
	ChainSpecPath string
}

// AddNode spawns one additional node and waits for it to become Ready.
func (n *Network) AddNode(ctx context.Context, opts AddNodeOptions) (*NodeRecord, error) {
	n.mu.RLock()
	if _, exists := n.nodes[opts.Spec.Name]; exists {
		n.mu.RUnlock()
		return nil, zerr.New(zerr.ConfigInvalid, opts.Spec.Name, "node name already in use", nil)
	}
	n.mu.RUnlock()

	spec := opts.Spec
	if spec.NodeKeyHex == "" {
		nodeKeyHex, peerID, err := identity.DeriveNodeKey(spec.Name)
		if err != nil {
			return nil, zerr.New(zerr.SpawnFailed, spec.Name, "derive node key", err)
		}
		spec.NodeKeyHex = nodeKeyHex
		spec.PeerID = peerID
	}
	if spec.Account == (model.NodeAccount{}) {
		account, err := identity.DeriveAccount(spec.Name, spec.KeyTypes, false)
		if err != nil {
			return nil, zerr.New(zerr.SpawnFailed, spec.Name, "derive account keys", err)
		}
		spec.Account = account
	}

	cmdline := args.Build(spec, opts.BuildOptions)

	logPath := spec.BasePath + "/node.log"
	if err := n.Spawn.MaterializeNodeFiles(ctx, activity.MaterializeNodeFilesParams{
		BasePath:     spec.BasePath,
		ChainSpecSrc: opts.ChainSpecPath,
		ChainSpecDst: spec.BasePath + "/chain.json",
	}); err != nil {
		return nil, zerr.New(zerr.SpawnFailed, spec.Name, "materialize node files", err)
	}

	spawnResult, err := n.Spawn.SpawnNode(ctx, provider.SpawnOptions{
		Name:      spec.Name,
		Command:   spec.Command,
		Args:      cmdline.Render(),
		Image:     spec.Image,
		BasePath:  spec.BasePath,
		Ports:     spec.Ports,
		Resources: spec.Resources,
		LogPath:   logPath,
	})
	if err != nil {
		return nil, zerr.New(zerr.SpawnFailed, spec.Name, "spawn node", err)
	}

	metricsURL := fmt.Sprintf("http://%s:%d/metrics", n.LocalIP, spec.Ports.Prometheus)
	if err := n.Spawn.WaitNodeReady(ctx, activity.WaitNodeReadyParams{MetricsURL: metricsURL, TimeoutSeconds: 600}); err != nil {
		return nil, zerr.New(zerr.ReadinessTimeout, spec.Name, "node did not report node_roles in time", err)
	}

	multiaddr, err := n.Spawn.CaptureMultiaddress(ctx, activity.CaptureMultiaddressParams{LogPath: logPath})
	if err != nil {
		return nil, zerr.New(zerr.ParseFailed, spec.Name, "capture multiaddress from log", err)
	}

	rec := &NodeRecord{
		Name:      spec.Name,
		Role:      spec.Role,
		Handle:    provider.NodeHandle(spawnResult.Handle),
		Ports:     spec.Ports,
		Multiaddr: multiaddr,
		BasePath:  spec.BasePath,
		Command:   spec.Command,
		LogPath:   logPath,
	}

	n.mu.Lock()
	n.nodes[spec.Name] = rec
	n.mu.Unlock()

	return rec, nil
}

// AddCollator spawns a new collator attached to an already-registered
// parachain.
func (n *Network) AddCollator(ctx context.Context, opts AddNodeOptions, paraID int) (*NodeRecord, error) {
	opts.Spec.Role = model.RoleCollator
	rec, err := n.AddNode(ctx, opts)
	if err != nil {
		return nil, err
	}
	n.mu.Lock()
	rec.ParaID = &paraID
	n.mu.Unlock()
	return rec, nil
}

// AddParachain registers bookkeeping for a new parachain (its chain spec
// must already have been built via the chain-spec engine) and, if it
// carries collators in opts, spawns them via AddCollator.
func (n *Network) AddParachain(ctx context.Context, para model.ParachainSpec, chainSpecPath string, collatorOpts []AddNodeOptions) error {
	n.mu.Lock()
	if _, exists := n.parachains[para.ID]; exists {
		n.mu.Unlock()
		return zerr.New(zerr.NetworkInconsistent, fmt.Sprintf("para %d", para.ID), "parachain id already registered in this handle", nil)
	}
	n.parachains[para.ID] = registeredParachain{strategy: para.Strategy, chainSpecPath: chainSpecPath}
	n.mu.Unlock()

	for _, c := range collatorOpts {
		if _, err := n.AddCollator(ctx, c, para.ID); err != nil {
			return err
		}
	}
	return nil
}

// RemoveNode destroys a node and drops it from the live table.
func (n *Network) RemoveNode(ctx context.Context, name string) error {
	n.mu.Lock()
	rec, ok := n.nodes[name]
	if !ok {
		n.mu.Unlock()
		return zerr.New(zerr.NetworkInconsistent, name, "node not found", nil)
	}
	delete(n.nodes, name)
	n.mu.Unlock()

	if err := n.Provider.Destroy(ctx, rec.Handle); err != nil {
		return zerr.New(zerr.ProviderUnavailable, name, "destroy node", err)
	}
	return nil
}

// Pause pauses a running node.
func (n *Network) Pause(ctx context.Context, name string) error {
	rec, err := n.GetNode(name)
	if err != nil {
		return err
	}
	return n.Provider.Pause(ctx, rec.Handle)
}

// Resume resumes a paused node.
func (n *Network) Resume(ctx context.Context, name string) error {
	rec, err := n.GetNode(name)
	if err != nil {
		return err
	}
	return n.Provider.Resume(ctx, rec.Handle)
}

// Restart restarts a node, optionally after a delay.
func (n *Network) Restart(ctx context.Context, name string, afterSeconds int) error {
	rec, err := n.GetNode(name)
	if err != nil {
		return err
	}
	return n.Provider.Restart(ctx, rec.Handle, afterSeconds)
}

// RunScript executes a script inside a node's process/container/pod.
func (n *Network) RunScript(ctx context.Context, name, script string, scriptArgs []string, env map[string]string) (provider.ExecResult, error) {
	rec, err := n.GetNode(name)
	if err != nil {
		return provider.ExecResult{}, err
	}
	cmd := append([]string{script}, scriptArgs...)
	_ = env // providers exec within the node's already-running environment
	return n.Provider.Exec(ctx, rec.Handle, cmd)
}

// RegisterParachain submits the register_parachain extrinsic for a
// manually/extrinsic-strategy parachain, refusing a second submission for
// the same id (spec.md §8 scenario 4: "double-invocation returns
// NetworkInconsistent").
func (n *Network) RegisterParachain(ctx context.Context, client *ecosystem.Client, paraID int, extrinsicHex string) error {
	n.mu.Lock()
	para, ok := n.parachains[paraID]
	if !ok {
		n.mu.Unlock()
		return zerr.New(zerr.NetworkInconsistent, fmt.Sprintf("para %d", paraID), "unknown parachain id", nil)
	}
	if para.registeredOnce {
		n.mu.Unlock()
		return zerr.New(zerr.NetworkInconsistent, fmt.Sprintf("para %d", paraID), "register_parachain already applied", nil)
	}
	para.registeredOnce = true
	n.parachains[paraID] = para
	n.mu.Unlock()

	if _, err := client.RegisterParachain(ctx, paraID, extrinsicHex); err != nil {
		return zerr.New(zerr.NetworkInconsistent, fmt.Sprintf("para %d", paraID), "register_parachain extrinsic rejected", err)
	}
	return nil
}

// RuntimeUpgrade submits the authorize_upgrade+enact_authorized_upgrade
// pair in order (spec.md §4.H / §8 scenario 5).
func (n *Network) RuntimeUpgrade(ctx context.Context, client *ecosystem.Client, paraID int, authorizeHex, enactHex string) error {
	if _, err := client.AuthorizeUpgrade(ctx, authorizeHex); err != nil {
		return zerr.New(zerr.NetworkInconsistent, fmt.Sprintf("para %d", paraID), "authorize_upgrade rejected", err)
	}
	if _, err := client.EnactAuthorizedUpgrade(ctx, enactHex); err != nil {
		return zerr.New(zerr.NetworkInconsistent, fmt.Sprintf("para %d", paraID), "enact_authorized_upgrade rejected", err)
	}
	return nil
}

// Reports scrapes a node's Prometheus endpoint and returns the named
// metric's current value (spec.md §4.H `reports(metric_name) -> number`).
func (n *Network) Reports(ctx context.Context, nodeName, metricExpr string) (float64, error) {
	rec, err := n.GetNode(nodeName)
	if err != nil {
		return 0, err
	}
	expr, err := ParseMetricExpr(metricExpr)
	if err != nil {
		return 0, zerr.New(zerr.ParseFailed, nodeName, "parse metric expression", err)
	}
	sample, err := n.scrape(ctx, rec, expr)
	if err != nil {
		return 0, err
	}
	if !sample.Value.Finite() {
		return 0, zerr.New(zerr.ParseFailed, nodeName, "metric value is not finite", nil)
	}
	return sample.Value.Float, nil
}

// Assert scrapes a node's metrics once and reports whether the expression
// matches a sample whose value equals want.
func (n *Network) Assert(ctx context.Context, nodeName, metricExpr string, want float64) (bool, error) {
	got, err := n.Reports(ctx, nodeName, metricExpr)
	if err != nil {
		return false, err
	}
	return got == want, nil
}

// WaitMetric polls a node's metrics until predicate(value) holds or
// timeout elapses (spec.md §4.H `wait_metric(expr, pred, timeout?)`).
func (n *Network) WaitMetric(ctx context.Context, nodeName, metricExpr string, predicate func(float64) bool, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		value, err := n.Reports(ctx, nodeName, metricExpr)
		if err == nil && predicate(value) {
			return nil
		}
		if time.Now().After(deadline) {
			return zerr.New(zerr.ReadinessTimeout, nodeName, fmt.Sprintf("metric %s did not satisfy predicate within %s", metricExpr, timeout), err)
		}
		select {
		case <-ctx.Done():
			return zerr.New(zerr.OperationCancelled, nodeName, "wait_metric cancelled", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (n *Network) scrape(ctx context.Context, rec *NodeRecord, expr MetricExpr) (promtext.Sample, error) {
	url := fmt.Sprintf("http://%s:%d/metrics", n.LocalIP, rec.Ports.Prometheus)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return promtext.Sample{}, err
	}
	resp, err := n.HTTP.Do(req)
	if err != nil {
		return promtext.Sample{}, zerr.New(zerr.ProviderUnavailable, rec.Name, "scrape metrics endpoint", err)
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return promtext.Sample{}, zerr.New(zerr.ParseFailed, rec.Name, "read metrics scrape body", err)
	}
	samples, err := promtext.Parse(buf)
	if err != nil {
		return promtext.Sample{}, zerr.New(zerr.ParseFailed, rec.Name, "parse metrics scrape", err)
	}
	sample, ok := promtext.Find(samples, expr.Name, expr.Labels)
	if !ok {
		return promtext.Sample{}, zerr.New(zerr.ParseFailed, rec.Name, fmt.Sprintf("metric %s not found in scrape", expr.Name), nil)
	}
	return sample, nil
}

// ToDocument snapshots the handle into the zombie.json schema (component
// I), to be written once every node has reached Ready (spec.md §5
// ordering guarantee iii).
func (n *Network) ToDocument() zombiejson.Document {
	n.mu.RLock()
	defer n.mu.RUnlock()

	doc := zombiejson.Document{
		NetworkID: n.NetworkID,
		Provider:  n.ProviderKind,
		BaseDir:   n.BaseDir,
		Relay:     zombiejson.Relay{Chain: n.RelayChain},
	}
	for _, rec := range n.nodes {
		node := zombiejson.Node{
			Name: rec.Name,
			Role: string(rec.Role),
			Endpoints: zombiejson.Endpoints{
				RPC:        rec.Ports.RPC,
				WS:         rec.Ports.WS,
				Prometheus: rec.Ports.Prometheus,
				P2P:        rec.Ports.P2P,
			},
			Multiaddr: rec.Multiaddr,
			BasePath:  rec.BasePath,
			Command:   rec.Command,
			LogPath:   rec.LogPath,
			Handle:    string(rec.Handle),
		}
		if rec.ParaID != nil {
			paraID := *rec.ParaID
			node.ParaID = &paraID
		}
		doc.Nodes = append(doc.Nodes, node)
	}
	for id, para := range n.parachains {
		doc.Parachains = append(doc.Parachains, zombiejson.Parachain{
			ID:            id,
			Strategy:      string(para.strategy),
			ChainSpecPath: para.chainSpecPath,
		})
	}
	return doc
}

// AttachToLive rehydrates a handle from a previously-written zombie.json,
// reading each node's live endpoints but not re-validating identities
// (spec.md §4.I).
func AttachToLive(ctx context.Context, p provider.Provider, fs fsys.FS, chainSpecEngine *chainspec.Engine, logger zerolog.Logger, zombieJSONPath string) (*Network, error) {
	doc, err := zombiejson.ReadPath(ctx, fs, zombieJSONPath)
	if err != nil {
		return nil, zerr.New(zerr.NetworkInconsistent, "", "read zombie.json", err)
	}

	n := New(p, fs, chainSpecEngine, logger)
	n.NetworkID = doc.NetworkID
	n.ProviderKind = doc.Provider
	n.BaseDir = doc.BaseDir
	n.RelayChain = doc.Relay.Chain

	for _, node := range doc.Nodes {
		rec := &NodeRecord{
			Name:      node.Name,
			Role:      model.NodeRole(node.Role),
			Handle:    provider.NodeHandle(node.Handle),
			Ports:     model.PortSet(node.Endpoints),
			Multiaddr: node.Multiaddr,
			BasePath:  node.BasePath,
			Command:   node.Command,
			LogPath:   node.LogPath,
		}
		if node.ParaID != nil {
			paraID := *node.ParaID
			rec.ParaID = &paraID
		}
		n.nodes[node.Name] = rec
	}
	for _, para := range doc.Parachains {
		n.parachains[para.ID] = registeredParachain{
			strategy:       model.RegistrationStrategy(para.Strategy),
			chainSpecPath:  para.ChainSpecPath,
			registeredOnce: para.Strategy != string(model.Manual),
		}
	}

	return n, nil
}
