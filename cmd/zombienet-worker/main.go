package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/paritytech/zombienet-go/internal/activity"
	"github.com/paritytech/zombienet-go/internal/chainspec"
	"github.com/paritytech/zombienet-go/internal/config"
	"github.com/paritytech/zombienet-go/internal/fsys"
	"github.com/paritytech/zombienet-go/internal/logging"
	"github.com/paritytech/zombienet-go/internal/metrics"
	"github.com/paritytech/zombienet-go/internal/provider"
	"github.com/paritytech/zombienet-go/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	realFS := fsys.NewReal()
	p, err := newProvider(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct provider")
	}

	tlsConfig, err := cfg.TemporalTLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure temporal TLS")
	}
	dialOpts := temporalclient.Options{HostPort: cfg.TemporalAddress}
	if tlsConfig != nil {
		dialOpts.ConnectionOptions = temporalclient.ConnectionOptions{TLS: tlsConfig}
		logger.Info().Msg("temporal mTLS enabled")
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, cfg.TemporalTaskQueue, worker.Options{})

	chainSpecEngine := chainspec.New(realFS)
	genesisCache := chainspec.NewGenesisCache(realFS, filepath.Join(cfg.BaseDir, "genesis-cache"))

	w.RegisterActivity(activity.NewSpawn(p, realFS))
	w.RegisterActivity(activity.NewChainSpec(chainSpecEngine, genesisCache))
	w.RegisterActivity(activity.NewIdentity())

	w.RegisterWorkflow(workflow.NetworkSpawnWorkflow)

	if cfg.MetricsListenAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsListenAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", cfg.TemporalTaskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

// newProvider builds the single backend this worker spawns nodes against
// for its whole lifetime. Unlike the spawner CLI (which creates one
// short-lived provider per invocation), a zombienet-worker process is
// deployed per running test network, so ZOMBIE_NETWORK_ID names the
// namespace/network for docker and k8s backends.
func newProvider(cfg *config.Config) (provider.Provider, error) {
	networkID := os.Getenv("ZOMBIE_NETWORK_ID")
	if networkID == "" {
		networkID = "default"
	}

	switch cfg.Provider {
	case "native":
		return provider.NewNative(fsys.NewReal(), cfg.BaseDir), nil
	case "docker":
		return provider.NewDocker("zombienet-" + networkID)
	case "k8s":
		loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
		restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, &clientcmd.ConfigOverrides{}).ClientConfig()
		if err != nil {
			return nil, fmt.Errorf("load kubeconfig: %w", err)
		}
		return provider.NewKubernetes(restConfig, "zombienet-"+networkID)
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}
