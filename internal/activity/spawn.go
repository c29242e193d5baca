// Package activity contains the Temporal activities the spawn workflow
// (component G) executes: one provider call, one readiness poll, or one
// filesystem operation per activity, mirroring the teacher's
// activity-wraps-a-narrow-op shape (internal/activity/deploy.go).
package activity

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/paritytech/zombienet-go/internal/fsys"
	"github.com/paritytech/zombienet-go/internal/promtext"
	"github.com/paritytech/zombienet-go/internal/provider"
)

// Spawn bundles the dependencies every spawn-related activity needs.
type Spawn struct {
	Provider provider.Provider
	FS       fsys.FS
	HTTP     *http.Client
}

// NewSpawn constructs a Spawn activity set.
func NewSpawn(p provider.Provider, fs fsys.FS) *Spawn {
	return &Spawn{Provider: p, FS: fs, HTTP: &http.Client{Timeout: 10 * time.Second}}
}

// MaterializeNodeFilesParams describes the per-node files to stage before
// spawn (spec.md §4.G step a): the chain spec copy, plus any keystore
// entries produced by identity derivation + chain-spec injection.
type MaterializeNodeFilesParams struct {
	BasePath        string            `json:"base_path"`
	ChainSpecSrc    string            `json:"chain_spec_src"`
	ChainSpecDst    string            `json:"chain_spec_dst"`
	KeystoreEntries map[string]string `json:"keystore_entries"` // filename (key type + public) -> seed phrase/hex
	DBSnapshotSrc   string            `json:"db_snapshot_src,omitempty"`
	DBSnapshotDst   string            `json:"db_snapshot_dst,omitempty"`
}

// MaterializeNodeFiles stages a node's base_path directory before the
// provider spawns it.
func (a *Spawn) MaterializeNodeFiles(ctx context.Context, p MaterializeNodeFilesParams) error {
	if err := a.FS.CreateDir(ctx, p.BasePath, 0o755); err != nil {
		return fmt.Errorf("create base path %s: %w", p.BasePath, err)
	}
	if err := a.FS.Copy(ctx, p.ChainSpecSrc, p.ChainSpecDst); err != nil {
		return fmt.Errorf("copy chain spec into %s: %w", p.BasePath, err)
	}

	keystoreDir := p.BasePath + "/keystore"
	if len(p.KeystoreEntries) > 0 {
		if err := a.FS.CreateDir(ctx, keystoreDir, 0o700); err != nil {
			return fmt.Errorf("create keystore dir %s: %w", keystoreDir, err)
		}
		for filename, seed := range p.KeystoreEntries {
			if err := a.FS.Write(ctx, keystoreDir+"/"+filename, []byte(seed), 0o600); err != nil {
				return fmt.Errorf("write keystore entry %s: %w", filename, err)
			}
		}
	}

	if p.DBSnapshotSrc != "" {
		if err := a.FS.Copy(ctx, p.DBSnapshotSrc, p.DBSnapshotDst); err != nil {
			return fmt.Errorf("copy db snapshot into %s: %w", p.BasePath, err)
		}
	}
	return nil
}

// StageContainerFilesParams identifies an already-spawned containerized
// node whose staged base path must be pushed into its container/pod.
type StageContainerFilesParams struct {
	Handle   string `json:"handle"`
	BasePath string `json:"base_path"`
}

// StageContainerFiles copies a node's staged base_path (chain spec,
// keystore) into its container/pod via the provider's CopyToNode, then
// signals the supervisor script's start gate so the node binary launches
// only once its files are in place (spec.md §4.C; docker/k8s only — native
// nodes read base_path directly and never call this).
func (a *Spawn) StageContainerFiles(ctx context.Context, p StageContainerFilesParams) error {
	handle := provider.NodeHandle(p.Handle)
	if err := a.Provider.CopyToNode(ctx, handle, p.BasePath, p.BasePath); err != nil {
		return fmt.Errorf("stage files into %s: %w", p.Handle, err)
	}
	marker := provider.FilesReadyMarker(p.BasePath)
	if _, err := a.Provider.Exec(ctx, handle, []string{"sh", "-c", "touch " + marker}); err != nil {
		return fmt.Errorf("signal files ready for %s: %w", p.Handle, err)
	}
	return nil
}

// SpawnNodeResult reports the provider-assigned handle.
type SpawnNodeResult struct {
	Handle string `json:"handle"`
}

// SpawnNode asks the provider to start the node process/container/pod
// (spec.md §4.G step b).
func (a *Spawn) SpawnNode(ctx context.Context, opts provider.SpawnOptions) (*SpawnNodeResult, error) {
	handle, err := a.Provider.SpawnNode(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("spawn node %s: %w", opts.Name, err)
	}
	return &SpawnNodeResult{Handle: string(handle)}, nil
}

// WaitNodeReadyParams configures the readiness poll.
type WaitNodeReadyParams struct {
	MetricsURL     string `json:"metrics_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// WaitNodeReady polls the node's Prometheus endpoint until `node_roles` is
// observed with a finite value, or the timeout elapses (spec.md §4.G step
// c), modeled on the teacher's WaitForHealthy poll-loop
// (internal/activity/deploy.go).
func (a *Spawn) WaitNodeReady(ctx context.Context, p WaitNodeReadyParams) error {
	timeout := time.Duration(p.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if ready, _ := a.scrapeReady(ctx, p.MetricsURL); ready {
				return nil
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("node at %s did not become ready within %s", p.MetricsURL, timeout)
			}
		}
	}
}

func (a *Spawn) scrapeReady(ctx context.Context, metricsURL string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metricsURL, nil)
	if err != nil {
		return false, err
	}
	resp, err := a.HTTP.Do(req)
	if err != nil {
		return false, nil // transient: node not listening yet
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}
	samples, err := promtext.Parse(data)
	if err != nil {
		return false, fmt.Errorf("parse metrics from %s: %w", metricsURL, err)
	}
	sample, ok := promtext.Find(samples, "node_roles", nil)
	return ok && sample.Value.Finite(), nil
}

// multiaddrPattern matches a libp2p multiaddress: /ip4/<addr>/tcp/<port>/ws/p2p/<peer-id>
// or the same without /ws, which is what node log lines emit.
var multiaddrPattern = regexp.MustCompile(`/ip4/[0-9.]+/tcp/[0-9]+(?:/ws)?/p2p/[1-9A-HJ-NP-Za-km-z]+`)

// CaptureMultiaddressParams locates the log file to scan.
type CaptureMultiaddressParams struct {
	LogPath string `json:"log_path"`
}

// CaptureMultiaddress scans a node's log for the first line matching a
// multiaddress pattern (spec.md §4.G step d).
func (a *Spawn) CaptureMultiaddress(ctx context.Context, p CaptureMultiaddressParams) (string, error) {
	f, err := os.Open(p.LogPath)
	if err != nil {
		return "", fmt.Errorf("open log %s: %w", p.LogPath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if m := multiaddrPattern.FindString(scanner.Text()); m != "" {
			return m, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scan log %s: %w", p.LogPath, err)
	}
	return "", fmt.Errorf("no multiaddress found in log %s", p.LogPath)
}

// DestroyNodeParams identifies the node to tear down.
type DestroyNodeParams struct {
	Handle string `json:"handle"`
}

// DestroyNode asks the provider to destroy a previously-spawned node,
// used both for explicit remove_node and for tear_down_on_failure unwind.
func (a *Spawn) DestroyNode(ctx context.Context, p DestroyNodeParams) error {
	if err := a.Provider.Destroy(ctx, provider.NodeHandle(p.Handle)); err != nil {
		return fmt.Errorf("destroy node %s: %w", p.Handle, err)
	}
	return nil
}
