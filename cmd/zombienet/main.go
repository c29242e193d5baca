package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/paritytech/zombienet-go/internal/args"
	"github.com/paritytech/zombienet-go/internal/chainspec"
	"github.com/paritytech/zombienet-go/internal/config"
	"github.com/paritytech/zombienet-go/internal/fsys"
	"github.com/paritytech/zombienet-go/internal/identity"
	"github.com/paritytech/zombienet-go/internal/logging"
	"github.com/paritytech/zombienet-go/internal/model"
	"github.com/paritytech/zombienet-go/internal/netconfig"
	"github.com/paritytech/zombienet-go/internal/portpool"
	"github.com/paritytech/zombienet-go/internal/provider"
	"github.com/paritytech/zombienet-go/internal/workflow"
	"github.com/paritytech/zombienet-go/internal/zerr"
	"github.com/paritytech/zombienet-go/internal/zombiejson"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] != "spawn" {
		fmt.Fprintln(os.Stderr, "usage: zombienet spawn <CONFIG> [--provider native|docker|k8s] [--dir <path>] [--spawn-concurrency <N>] [--node-verifier metric|none]")
		os.Exit(1)
	}

	fs := flag.NewFlagSet("spawn", flag.ExitOnError)
	providerFlag := fs.String("provider", "", "override ZOMBIE_PROVIDER: native|docker|k8s")
	dirFlag := fs.String("dir", "", "override ZOMBIE_BASE_DIR")
	concurrencyFlag := fs.Int("spawn-concurrency", 0, "override ZOMBIE_SPAWN_CONCURRENCY")
	nodeVerifierFlag := fs.String("node-verifier", "metric", "readiness verifier: metric|none")
	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "missing CONFIG argument")
		os.Exit(1)
	}
	configPath := fs.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *providerFlag != "" {
		cfg.Provider = *providerFlag
	}
	if *dirFlag != "" {
		cfg.BaseDir = *dirFlag
	}
	if *concurrencyFlag > 0 {
		cfg.SpawnConcurrency = *concurrencyFlag
	}
	if err := cfg.Validate("spawner"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	exitCode := run(ctx, cfg, logger, configPath, *nodeVerifierFlag)
	os.Exit(exitCode)
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, configPath, nodeVerifier string) int {
	if nodeVerifier == "none" {
		logger.Warn().Msg("--node-verifier none is not supported, readiness is always metric-based")
	}

	spec, err := netconfig.Load(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("failed to decode network definition")
		return zerr.ExitCode(err)
	}
	if spec.Global.SpawnConcurrency == 0 {
		spec.Global.SpawnConcurrency = cfg.SpawnConcurrency
	}
	if spec.Global.LocalIP == "" {
		spec.Global.LocalIP = "127.0.0.1"
	}

	networkID := zombiejson.NewNetworkID()
	baseDir := filepath.Join(cfg.BaseDir, networkID)

	realFS := fsys.NewReal()
	if err := realFS.CreateDir(ctx, baseDir, 0o755); err != nil {
		wrapped := zerr.New(zerr.ConfigInvalid, baseDir, "create network base directory", err)
		logger.Error().Err(wrapped).Msg("failed to prepare base directory")
		return zerr.ExitCode(wrapped)
	}

	p, err := newProvider(cfg, realFS, baseDir, networkID)
	if err != nil {
		wrapped := zerr.New(zerr.ProviderUnavailable, cfg.Provider, "construct provider", err)
		logger.Error().Err(wrapped).Msg("failed to construct provider")
		return zerr.ExitCode(wrapped)
	}
	if err := p.CreateNamespace(ctx); err != nil {
		wrapped := zerr.New(zerr.ProviderUnavailable, cfg.Provider, "create namespace", err)
		logger.Error().Err(wrapped).Msg("failed to create provider namespace")
		return zerr.ExitCode(wrapped)
	}

	chainSpecEngine := chainspec.New(realFS)
	genesisCache := chainspec.NewGenesisCache(realFS, filepath.Join(baseDir, "genesis-cache"))
	containerized := cfg.Provider != "native"
	ports := portpool.New()

	if err := materializeNodeSpecs(&spec.Relaychain.Nodes, baseDir, ports, containerized, true, nil, false); err != nil {
		logger.Error().Err(err).Msg("failed to prepare relay chain node specs")
		return zerr.ExitCode(err)
	}

	relaySpecPath, err := chainSpecEngine.Resolve(ctx, spec.Relaychain.Source, spec.Relaychain.ChainName, spec.Relaychain.DefaultCommand, baseDir)
	if err != nil {
		wrapped := zerr.New(zerr.GeneratorFailed, spec.Relaychain.ChainName, "resolve relay chain spec source", err)
		logger.Error().Err(wrapped).Msg("failed to resolve relay chain spec")
		return zerr.ExitCode(wrapped)
	}

	// Every InGenesis parachain's own chain spec must be fully built and its
	// genesis head/wasm exported before the relay chain is patched, so the
	// relay's `paras` pallet can embed them (spec.md invariant 4, §4.E step
	// 2h). Parachain specs are therefore resolved/patched/raw-converted here,
	// ahead of the relay patch, rather than in the loop below.
	paraSpecPaths := map[int]string{}
	paraRawPaths := map[int]string{}
	for i := range spec.Parachains {
		para := &spec.Parachains[i]
		if err := materializeNodeSpecs(&para.Nodes, baseDir, ports, containerized, false, &para.ID, para.EvmBased); err != nil {
			logger.Error().Err(err).Msg("failed to prepare parachain node specs")
			return zerr.ExitCode(err)
		}

		paraPath, err := chainSpecEngine.Resolve(ctx, para.Source, para.ChainName, para.DefaultCommand, baseDir)
		if err != nil {
			wrapped := zerr.New(zerr.GeneratorFailed, para.ChainName, "resolve parachain spec source", err)
			logger.Error().Err(wrapped).Msg("failed to resolve parachain spec")
			return zerr.ExitCode(wrapped)
		}
		paraCopy := *para
		rawPath, err := patchAndFinalize(ctx, chainSpecEngine, paraPath, para.ChainName, para.DefaultCommand, baseDir,
			func(tree chainspec.Tree) error {
				return chainspec.PatchParachain(tree, paraCopy, spec.Relaychain.ChainName)
			})
		if err != nil {
			logger.Error().Err(err).Msg("failed to patch parachain spec")
			return zerr.ExitCode(err)
		}
		paraSpecPaths[para.ID] = paraPath
		paraRawPaths[para.ID] = rawPath
	}

	var inGenesisParas []chainspec.ParaGenesisEntry
	for i := range spec.Parachains {
		para := &spec.Parachains[i]
		if para.Strategy != model.InGenesis && !para.AddToGenesis {
			continue
		}
		entry, err := chainspec.ExportGenesis(ctx, chainSpecEngine, genesisCache, para.ID, para.DefaultCommand, paraRawPaths[para.ID])
		if err != nil {
			wrapped := zerr.New(zerr.GeneratorFailed, para.ChainName, "export genesis head/wasm", err)
			logger.Error().Err(wrapped).Msg("failed to export parachain genesis state")
			return zerr.ExitCode(wrapped)
		}
		para.GenesisHeadHex = entry.HeadHex
		para.GenesisWasmHex = entry.WasmHex
		inGenesisParas = append(inGenesisParas, entry)
	}

	if _, err := patchAndFinalize(ctx, chainSpecEngine, relaySpecPath, spec.Relaychain.ChainName, spec.Relaychain.DefaultCommand, baseDir,
		func(tree chainspec.Tree) error {
			return chainspec.PatchRelay(tree, spec.Relaychain, chainspec.PatchRelayOptions{
				Nodes:          spec.Relaychain.Nodes,
				HrmpChannels:   spec.HrmpChannels,
				InGenesisParas: inGenesisParas,
			})
		}); err != nil {
		logger.Error().Err(err).Msg("failed to patch relay chain spec")
		return zerr.ExitCode(err)
	}

	tlsConfig, err := cfg.TemporalTLS()
	if err != nil {
		wrapped := zerr.New(zerr.ConfigInvalid, "", "configure temporal TLS", err)
		logger.Error().Err(wrapped).Msg("failed to configure temporal TLS")
		return zerr.ExitCode(wrapped)
	}
	dialOpts := temporalclient.Options{HostPort: cfg.TemporalAddress}
	if tlsConfig != nil {
		dialOpts.ConnectionOptions = temporalclient.ConnectionOptions{TLS: tlsConfig}
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		wrapped := zerr.New(zerr.ProviderUnavailable, cfg.TemporalAddress, "connect to temporal", err)
		logger.Error().Err(wrapped).Msg("failed to connect to temporal")
		return zerr.ExitCode(wrapped)
	}
	defer tc.Close()

	nodeTimeout := time.Duration(cfg.NodeSpawnTimeoutS) * time.Second
	networkTimeout := time.Duration(cfg.NetworkTimeoutS) * time.Second
	spec.Global.NodeSpawnTimeoutSecs = int(nodeTimeout.Seconds())
	spec.Global.NetworkTimeoutSecs = int(networkTimeout.Seconds())

	runCtx, runCancel := context.WithTimeout(ctx, networkTimeout+30*time.Second)
	defer runCancel()

	run, err := tc.ExecuteWorkflow(runCtx, temporalclient.StartWorkflowOptions{
		ID:        "spawn-" + networkID,
		TaskQueue: cfg.TemporalTaskQueue,
	}, workflow.NetworkSpawnWorkflow, workflow.SpawnNetworkParams{
		Network:            *spec,
		RelayChainSpecPath: relaySpecPath,
		ParaChainSpecPaths: paraSpecPaths,
		LocalIP:            spec.Global.LocalIP,
		Containerized:      containerized,
	})
	if err != nil {
		wrapped := zerr.New(zerr.ProviderUnavailable, networkID, "start spawn workflow", err)
		logger.Error().Err(wrapped).Msg("failed to start spawn workflow")
		return zerr.ExitCode(wrapped)
	}

	var result workflow.SpawnResult
	workflowErr := run.Get(runCtx, &result)

	doc := buildDocument(networkID, cfg.Provider, baseDir, relaySpecPath, spec, paraSpecPaths, &result)
	if docErr := zombiejson.Write(ctx, realFS, doc); docErr != nil {
		logger.Error().Err(docErr).Msg("failed to write zombie.json")
	}

	if workflowErr != nil {
		wrapped := zerr.New(zerr.SpawnFailed, networkID, "network spawn did not complete", workflowErr)
		logger.Error().Err(wrapped).Msg("network spawn failed")
		return zerr.ExitCode(wrapped)
	}

	fmt.Println(filepath.Join(baseDir, "zombie.json"))
	logger.Info().Str("network_id", networkID).Str("base_dir", baseDir).Msg("network spawned")
	return 0
}

func newProvider(cfg *config.Config, fs fsys.FS, baseDir, networkID string) (provider.Provider, error) {
	switch cfg.Provider {
	case "native":
		return provider.NewNative(fs, baseDir), nil
	case "docker":
		return provider.NewDocker("zombienet-" + networkID)
	case "k8s":
		return newKubernetesProvider(networkID)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}

// newKubernetesProvider loads a kubeconfig the same way any client-go
// consumer does: respect $KUBECONFIG / ~/.kube/config via the client
// loading rules, and namespace the test network under its network id.
func newKubernetesProvider(networkID string) (provider.Provider, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	return provider.NewKubernetes(restConfig, "zombienet-"+networkID)
}

// materializeNodeSpecs assigns base paths, reserves ports, derives identity
// material, and builds the final command line for every node in nodes,
// mirroring the per-node steps internal/network.Network.AddNode performs
// for nodes added after the initial spawn.
func materializeNodeSpecs(nodes *[]model.NodeSpec, baseDir string, ports *portpool.Pool, containerized, relayChain bool, paraID *int, evmBased bool) error {
	for i := range *nodes {
		n := &(*nodes)[i]
		n.BasePath = filepath.Join(baseDir, n.Name)

		reserved, err := ports.ReserveN(4)
		if err != nil {
			return zerr.New(zerr.SpawnFailed, n.Name, "reserve ports", err)
		}
		n.Ports = model.PortSet{RPC: reserved[0], WS: reserved[1], Prometheus: reserved[2], P2P: reserved[3]}
		for _, port := range reserved {
			ports.Release(port)
		}

		nodeKeyHex, peerID, err := identity.DeriveNodeKey(n.Name)
		if err != nil {
			return zerr.New(zerr.SpawnFailed, n.Name, "derive node key", err)
		}
		n.NodeKeyHex = nodeKeyHex
		n.PeerID = peerID

		account, err := identity.DeriveAccount(n.Name, n.KeyTypes, evmBased)
		if err != nil {
			return zerr.New(zerr.SpawnFailed, n.Name, "derive account keys", err)
		}
		n.Account = account

		var cumulusParaID *uint32
		if paraID != nil {
			id := uint32(*paraID)
			cumulusParaID = &id
		}
		cmdline := args.Build(*n, args.BuildOptions{
			ChainSpecPath:             n.BasePath + "/chain.json",
			SupportsInsecureValidator: true,
			Containerized:             containerized,
			RelayChain:                relayChain,
			CumulusRelayParachainID:   cumulusParaID,
		})
		n.Args = cmdline.Render()
	}
	return nil
}

// patchAndFinalize loads a plain chain spec, applies patch, saves it, and
// raw-converts it, returning the raw spec's path.
func patchAndFinalize(ctx context.Context, engine *chainspec.Engine, plainPath, chainName, binary, workDir string, patch func(chainspec.Tree) error) (string, error) {
	tree, err := engine.LoadTree(ctx, plainPath)
	if err != nil {
		return "", zerr.New(zerr.PatchFailed, chainName, "load plain chain spec", err)
	}
	if err := patch(tree); err != nil {
		return "", zerr.New(zerr.PatchFailed, chainName, "apply genesis patch", err)
	}
	if err := engine.SaveTree(ctx, plainPath, tree); err != nil {
		return "", zerr.New(zerr.PatchFailed, chainName, "save patched chain spec", err)
	}
	rawPath, err := engine.ToRaw(ctx, binary, plainPath, chainName, workDir)
	if err != nil {
		return "", zerr.New(zerr.GeneratorFailed, chainName, "build-spec --raw", err)
	}
	return rawPath, nil
}

// buildDocument assembles the zombie.json schema (component I) from the
// network definition and the spawn workflow's outcome, keyed the same way
// internal/network.Network.ToDocument does for nodes added after the
// initial spawn.
func buildDocument(networkID, providerKind, baseDir, relaySpecPath string, spec *model.NetworkSpec, paraSpecPaths map[int]string, result *workflow.SpawnResult) zombiejson.Document {
	doc := zombiejson.Document{
		NetworkID: networkID,
		Provider:  providerKind,
		BaseDir:   baseDir,
		Relay:     zombiejson.Relay{Chain: spec.Relaychain.ChainName, ChainSpecPath: relaySpecPath},
	}

	appendNode := func(n model.NodeSpec, paraID *int) {
		outcome := result.Nodes[n.Name]
		node := zombiejson.Node{
			Name:      n.Name,
			Role:      string(n.Role),
			Endpoints: zombiejson.Endpoints(n.Ports),
			Multiaddr: outcome.Multiaddr,
			BasePath:  n.BasePath,
			Command:   n.Command,
			LogPath:   outcome.LogPath,
			Handle:    outcome.Handle,
		}
		if paraID != nil {
			id := *paraID
			node.ParaID = &id
		}
		doc.Nodes = append(doc.Nodes, node)
	}

	for _, n := range spec.Relaychain.Nodes {
		appendNode(n, nil)
	}
	for _, para := range spec.Parachains {
		id := para.ID
		for _, n := range para.Nodes {
			appendNode(n, &id)
		}
		doc.Parachains = append(doc.Parachains, zombiejson.Parachain{
			ID:            para.ID,
			Strategy:      string(para.Strategy),
			ChainSpecPath: paraSpecPaths[para.ID],
		})
	}

	return doc
}
