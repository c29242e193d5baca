// Package workflow holds the Temporal workflows that realize the spawn
// engine (component G): a bounded-concurrency fan-out over every node in
// a NetworkSpec, honoring the partial order from spec.md §4.G.
package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/paritytech/zombienet-go/internal/activity"
	"github.com/paritytech/zombienet-go/internal/args"
	"github.com/paritytech/zombienet-go/internal/model"
	"github.com/paritytech/zombienet-go/internal/provider"
)

// nodeTask is one node's flattened spawn work item, independent of whether
// it came from the relay chain or a parachain.
type nodeTask struct {
	Name          string
	ChainName     string
	ParaID        int
	Role          model.NodeRole
	Command       string
	Image         string
	RawArgs       []string
	KeyTypes      []string
	EvmBased      bool
	BasePath      string
	Ports         model.PortSet
	Resources     model.ResourceProfile
	ChainSpecPath string
	DependsOn     []string // node names this task's spawn must wait on
	Containerized bool     // true for docker/k8s: stage files in after SpawnNode, before WaitNodeReady
}

// SpawnNetworkParams is the workflow's input: the populated NetworkSpec
// plus the chain-spec artifact paths produced by the pipeline stage that
// runs ahead of node spawn (component E, sequenced before this workflow
// per spec.md §5 "chain-spec generation for a chain happens-before any of
// its nodes starts").
type SpawnNetworkParams struct {
	Network            model.NetworkSpec
	RelayChainSpecPath string
	ParaChainSpecPaths map[int]string // para id -> plain/raw spec path
	LocalIP            string
	Containerized      bool // true for docker/k8s providers
}

// nodeOutcome is what a node's goroutine reports once it finishes (ready
// or failed).
type nodeOutcome struct {
	Name      string
	Handle    string
	Multiaddr string
	LogPath   string
	Err       error
}

// SpawnResult is the workflow's output: every node's outcome (ready or
// failed), keyed by name, plus the names of the nodes that failed.
type SpawnResult struct {
	Nodes    map[string]nodeOutcome
	Failures []string
}

// NetworkSpawnWorkflow fans out a bounded-concurrency spawn over every
// node, gated by the dependencies listed in each node's Bootnodes; any
// ZOMBIE token clamps concurrency to 1 (spec.md §4.G), modeled on the teacher's
// semaphore+waitgroup+workflow.Go fan-out
// (internal/workflow/incident_agent.go ProcessIncidentQueueWorkflow).
func NetworkSpawnWorkflow(ctx workflow.Context, p SpawnNetworkParams) (*SpawnResult, error) {
	logger := workflow.GetLogger(ctx)

	tasks := buildTasks(p)

	concurrency := p.Network.Global.SpawnConcurrency
	if concurrency <= 0 {
		concurrency = 100
	}
	for _, t := range tasks {
		if args.HasZombieToken(t.RawArgs) {
			logger.Info("ZOMBIE token present, clamping spawn concurrency to 1")
			concurrency = 1
			break
		}
	}

	nodeTimeout := time.Duration(p.Network.Global.NodeSpawnTimeoutSecs) * time.Second
	if nodeTimeout <= 0 {
		nodeTimeout = 600 * time.Second
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: nodeTimeout + 30*time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	futures := make(map[string]workflow.Future, len(tasks))
	settables := make(map[string]workflow.Settable, len(tasks))
	for _, t := range tasks {
		f, s := workflow.NewFuture(ctx)
		futures[t.Name] = f
		settables[t.Name] = s
	}

	sem := workflow.NewSemaphore(ctx, int64(concurrency))
	wg := workflow.NewWaitGroup(ctx)

	outcomes := make(map[string]nodeOutcome, len(tasks))

	for _, t := range tasks {
		t := t
		wg.Add(1)
		workflow.Go(ctx, func(gctx workflow.Context) {
			defer wg.Done()

			for _, dep := range t.DependsOn {
				var addr string
				if err := futures[dep].Get(gctx, &addr); err != nil {
					outcome := nodeOutcome{Name: t.Name, Err: fmt.Errorf("dependency %s failed: %w", dep, err)}
					outcomes[t.Name] = outcome
					settables[t.Name].Set("", outcome.Err)
					return
				}
			}

			if err := sem.Acquire(gctx, 1); err != nil {
				outcome := nodeOutcome{Name: t.Name, Err: err}
				outcomes[t.Name] = outcome
				settables[t.Name].Set("", err)
				return
			}
			defer sem.Release(1)

			outcome := spawnOneNode(gctx, t, p.LocalIP, nodeTimeout)
			outcomes[t.Name] = outcome
			settables[t.Name].Set(outcome.Multiaddr, outcome.Err)
		})
	}

	wg.Wait(ctx)

	result := &SpawnResult{Nodes: outcomes}
	for name, o := range outcomes {
		if o.Err != nil {
			result.Failures = append(result.Failures, name)
			logger.Error("node failed to spawn", "node", name, "error", o.Err)
		}
	}

	if len(result.Failures) > 0 && p.Network.Global.TearDownOnFailure {
		tearDown(ctx, outcomes)
		return result, fmt.Errorf("network spawn failed, %d node(s) did not become ready: %v", len(result.Failures), result.Failures)
	}

	return result, nil
}

func spawnOneNode(ctx workflow.Context, t nodeTask, localIP string, nodeTimeout time.Duration) nodeOutcome {
	logPath := t.BasePath + "/node.log"

	err := workflow.ExecuteActivity(ctx, "MaterializeNodeFiles", activity.MaterializeNodeFilesParams{
		BasePath:     t.BasePath,
		ChainSpecSrc: t.ChainSpecPath,
		ChainSpecDst: t.BasePath + "/chain.json",
	}).Get(ctx, nil)
	if err != nil {
		return nodeOutcome{Name: t.Name, Err: fmt.Errorf("materialize files for %s: %w", t.Name, err)}
	}

	var spawnResult activity.SpawnNodeResult
	err = workflow.ExecuteActivity(ctx, "SpawnNode", provider.SpawnOptions{
		Name:      t.Name,
		Command:   t.Command,
		Args:      t.RawArgs,
		Image:     t.Image,
		BasePath:  t.BasePath,
		Ports:     t.Ports,
		Resources: t.Resources,
		LogPath:   logPath,
	}).Get(ctx, &spawnResult)
	if err != nil {
		return nodeOutcome{Name: t.Name, Err: fmt.Errorf("spawn node %s: %w", t.Name, err)}
	}

	if t.Containerized {
		err = workflow.ExecuteActivity(ctx, "StageContainerFiles", activity.StageContainerFilesParams{
			Handle:   spawnResult.Handle,
			BasePath: t.BasePath,
		}).Get(ctx, nil)
		if err != nil {
			return nodeOutcome{Name: t.Name, Handle: spawnResult.Handle, Err: fmt.Errorf("stage files for %s: %w", t.Name, err)}
		}
	}

	metricsURL := fmt.Sprintf("http://%s:%d/metrics", localIP, t.Ports.Prometheus)
	err = workflow.ExecuteActivity(ctx, "WaitNodeReady", activity.WaitNodeReadyParams{
		MetricsURL:     metricsURL,
		TimeoutSeconds: int(nodeTimeout.Seconds()),
	}).Get(ctx, nil)
	if err != nil {
		return nodeOutcome{Name: t.Name, Handle: spawnResult.Handle, Err: fmt.Errorf("node %s did not become ready: %w", t.Name, err)}
	}

	var multiaddr string
	err = workflow.ExecuteActivity(ctx, "CaptureMultiaddress", activity.CaptureMultiaddressParams{
		LogPath: logPath,
	}).Get(ctx, &multiaddr)
	if err != nil {
		return nodeOutcome{Name: t.Name, Handle: spawnResult.Handle, Err: fmt.Errorf("capture multiaddress for %s: %w", t.Name, err)}
	}

	return nodeOutcome{Name: t.Name, Handle: spawnResult.Handle, Multiaddr: multiaddr, LogPath: logPath}
}

// tearDown issues best-effort destroy for every node that did reach a
// handle, honoring tear_down_on_failure (spec.md §4.G "Failure semantics").
func tearDown(ctx workflow.Context, outcomes map[string]nodeOutcome) {
	logger := workflow.GetLogger(ctx)
	for name, o := range outcomes {
		if o.Handle == "" {
			continue
		}
		err := workflow.ExecuteActivity(ctx, "DestroyNode", activity.DestroyNodeParams{Handle: o.Handle}).Get(ctx, nil)
		if err != nil {
			logger.Warn("failed to tear down node after spawn failure", "node", name, "error", err)
		}
	}
}

// buildTasks flattens a NetworkSpec's relay and parachain nodes into a
// dependency-annotated task list (spec.md §4.G constraints 1-2).
func buildTasks(p SpawnNetworkParams) []nodeTask {
	var tasks []nodeTask

	for _, n := range p.Network.Relaychain.Nodes {
		tasks = append(tasks, nodeTask{
			Name:          n.Name,
			ChainName:     p.Network.Relaychain.ChainName,
			Role:          n.Role,
			Command:       n.Command,
			Image:         n.Image,
			RawArgs:       n.Args,
			KeyTypes:      n.KeyTypes,
			BasePath:      n.BasePath,
			Ports:         n.Ports,
			Resources:     p.Network.Relaychain.Resources,
			ChainSpecPath: p.RelayChainSpecPath,
			DependsOn:     n.Bootnodes,
			Containerized: p.Containerized,
		})
	}

	for _, para := range p.Network.Parachains {
		chainSpecPath := p.ParaChainSpecPaths[para.ID]
		for _, n := range para.Nodes {
			tasks = append(tasks, nodeTask{
				Name:          n.Name,
				ChainName:     para.ChainName,
				ParaID:        para.ID,
				Role:          n.Role,
				Command:       n.Command,
				Image:         n.Image,
				RawArgs:       n.Args,
				KeyTypes:      n.KeyTypes,
				EvmBased:      para.EvmBased,
				BasePath:      n.BasePath,
				Ports:         n.Ports,
				Resources:     para.Resources,
				ChainSpecPath: chainSpecPath,
				DependsOn:     n.Bootnodes,
				Containerized: p.Containerized,
			})
		}
	}

	return tasks
}
