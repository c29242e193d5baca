package chainspec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/paritytech/zombienet-go/internal/fsys"
	"github.com/paritytech/zombienet-go/internal/model"
	"github.com/paritytech/zombienet-go/internal/procrunner"
)

// Engine resolves chain-spec sources and runs the patch/raw pipeline,
// using the filesystem and process-spawning capabilities from component A
// so it can run against the in-memory fsys during tests.
type Engine struct {
	FS     fsys.FS
	Runner *procrunner.Runner
	Client *http.Client
}

// New builds an Engine with production dependencies.
func New(fs fsys.FS) *Engine {
	return &Engine{
		FS:     fs,
		Runner: procrunner.New(),
		Client: &http.Client{Timeout: 60 * time.Second},
	}
}

// Resolve materializes the plain chain spec for source into workDir/<chainName>.json
// and returns its path (spec.md §4.E step 1).
func (e *Engine) Resolve(ctx context.Context, source model.ChainSpecSource, chainName, binary, workDir string) (string, error) {
	dest := filepath.Join(workDir, chainName+".json")

	switch source.Kind {
	case model.SourcePreExisting:
		data, err := e.readPreExisting(ctx, source)
		if err != nil {
			return "", fmt.Errorf("resolve pre-existing chain spec for %q: %w", chainName, err)
		}
		if err := e.FS.Write(ctx, dest, data, 0o644); err != nil {
			return "", fmt.Errorf("write chain spec for %q: %w", chainName, err)
		}
		return dest, nil

	case model.SourceCommand:
		cmd := strings.ReplaceAll(source.CommandTemplate, "{chain}", chainName)
		out, err := e.runCapture(ctx, cmd)
		if err != nil {
			return "", fmt.Errorf("generate chain spec for %q via command template: %w", chainName, err)
		}
		if err := e.FS.Write(ctx, dest, out, 0o644); err != nil {
			return "", fmt.Errorf("write chain spec for %q: %w", chainName, err)
		}
		return dest, nil

	case model.SourceRuntime:
		args := []string{"build-spec", "--runtime", source.WasmRef, "--chain", chainName}
		if source.Preset != "" {
			args = append(args, "--preset", source.Preset)
		}
		out, err := e.runBinary(ctx, binary, args)
		if err != nil {
			return "", fmt.Errorf("build runtime-sourced chain spec for %q: %w", chainName, err)
		}
		if err := e.FS.Write(ctx, dest, out, 0o644); err != nil {
			return "", fmt.Errorf("write chain spec for %q: %w", chainName, err)
		}
		return dest, nil

	case model.SourceAuto:
		out, err := e.runBinary(ctx, binary, []string{"build-spec", "--chain", chainName})
		if err != nil {
			return "", fmt.Errorf("auto-build chain spec for %q: %w", chainName, err)
		}
		if err := e.FS.Write(ctx, dest, out, 0o644); err != nil {
			return "", fmt.Errorf("write chain spec for %q: %w", chainName, err)
		}
		return dest, nil

	default:
		return "", fmt.Errorf("unknown chain spec source kind %q for %q", source.Kind, chainName)
	}
}

func (e *Engine) readPreExisting(ctx context.Context, source model.ChainSpecSource) ([]byte, error) {
	if source.URL != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := e.Client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("fetch %s: status %d", source.URL, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	}
	return e.FS.Read(ctx, source.Path)
}

func (e *Engine) runCapture(ctx context.Context, shellCmd string) ([]byte, error) {
	var buf bytes.Buffer
	h, err := e.Runner.Spawn(ctx, "sh", []string{"-c", shellCmd}, nil, "", &buf)
	if err != nil {
		return nil, err
	}
	if code, err := h.Wait(); err != nil || code != 0 {
		return nil, fmt.Errorf("command %q exited %d: %w", shellCmd, code, err)
	}
	return buf.Bytes(), nil
}

func (e *Engine) runBinary(ctx context.Context, binary string, args []string) ([]byte, error) {
	var buf bytes.Buffer
	h, err := e.Runner.Spawn(ctx, binary, args, nil, "", &buf)
	if err != nil {
		return nil, err
	}
	if code, err := h.Wait(); err != nil || code != 0 {
		return nil, fmt.Errorf("%s %v exited %d: %w", binary, args, code, err)
	}
	return buf.Bytes(), nil
}

// LoadTree reads and unmarshals a chain spec file into a Tree.
func (e *Engine) LoadTree(ctx context.Context, path string) (Tree, error) {
	data, err := e.FS.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load chain spec %q: %w", path, err)
	}
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse chain spec %q: %w", path, err)
	}
	return t, nil
}

// SaveTree marshals and writes a Tree back to path.
func (e *Engine) SaveTree(ctx context.Context, path string, t Tree) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal chain spec %q: %w", path, err)
	}
	if err := e.FS.Write(ctx, path, data, 0o644); err != nil {
		return fmt.Errorf("write chain spec %q: %w", path, err)
	}
	return nil
}

// ToRaw invokes the node binary's `build-spec --raw` on the patched plain
// spec and writes the result to workDir/<chainName>.raw.json (spec.md §4.E
// step 4).
func (e *Engine) ToRaw(ctx context.Context, binary, plainPath, chainName, workDir string) (string, error) {
	args := []string{"build-spec", "--chain", plainPath, "--raw"}
	out, err := e.runBinary(ctx, binary, args)
	if err != nil {
		return "", fmt.Errorf("convert %q to raw: %w", chainName, err)
	}
	dest := filepath.Join(workDir, chainName+".raw.json")
	if err := e.FS.Write(ctx, dest, out, 0o644); err != nil {
		return "", fmt.Errorf("write raw chain spec for %q: %w", chainName, err)
	}
	return dest, nil
}

// ExportGenesisState runs a cumulus-style parachain binary's
// `export-genesis-state` subcommand against its raw chain spec, returning
// the hex-encoded genesis head (spec.md §4.E "Tie-breaks and edge cases":
// "genesis head/wasm are produced by ... the parachain binary's built-in
// export subcommands").
func (e *Engine) ExportGenesisState(ctx context.Context, binary, rawSpecPath string) (string, error) {
	out, err := e.runBinary(ctx, binary, []string{"export-genesis-state", "--chain", rawSpecPath})
	if err != nil {
		return "", fmt.Errorf("export genesis state from %q: %w", rawSpecPath, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// ExportGenesisWasm runs a cumulus-style parachain binary's
// `export-genesis-wasm` subcommand against its raw chain spec, returning
// the hex-encoded genesis wasm.
func (e *Engine) ExportGenesisWasm(ctx context.Context, binary, rawSpecPath string) (string, error) {
	out, err := e.runBinary(ctx, binary, []string{"export-genesis-wasm", "--chain", rawSpecPath})
	if err != nil {
		return "", fmt.Errorf("export genesis wasm from %q: %w", rawSpecPath, err)
	}
	return strings.TrimSpace(string(out)), nil
}
