package chainspec

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/paritytech/zombienet-go/internal/fsys"
)

// ContentHash returns the hex-encoded SHA-256 digest of data, used to key
// the genesis head/wasm cache (spec.md §4.E "Tie-breaks and edge cases":
// results are cached by content hash).
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GenesisCache memoizes generated genesis head/wasm payloads under a
// caller-chosen key (ExportGenesis uses the raw chain spec's content hash),
// so re-spawning the same network doesn't regenerate unchanged artifacts.
type GenesisCache struct {
	mu      sync.Mutex
	fs      fsys.FS
	dir     string
	inFlight map[string][]byte
}

// NewGenesisCache creates a cache rooted at dir.
func NewGenesisCache(fs fsys.FS, dir string) *GenesisCache {
	return &GenesisCache{fs: fs, dir: dir, inFlight: map[string][]byte{}}
}

// GetOrGenerate returns the cached payload for key, generating and storing
// it via generate if absent.
func (c *GenesisCache) GetOrGenerate(ctx context.Context, key string, generate func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	c.mu.Lock()
	if cached, ok := c.inFlight[key]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	path := filepath.Join(c.dir, key)
	if exists, err := c.fs.Exists(ctx, path); err == nil && exists {
		data, err := c.fs.Read(ctx, path)
		if err == nil {
			c.mu.Lock()
			c.inFlight[key] = data
			c.mu.Unlock()
			return data, nil
		}
	}

	data, err := generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate genesis artifact %q: %w", key, err)
	}
	if err := c.fs.CreateDir(ctx, c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create genesis cache dir: %w", err)
	}
	if err := c.fs.Write(ctx, path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write genesis cache entry %q: %w", key, err)
	}

	c.mu.Lock()
	c.inFlight[key] = data
	c.mu.Unlock()
	return data, nil
}

// ExportGenesis produces the ParaGenesisEntry for an InGenesis parachain by
// running its binary's export-genesis-state/-wasm subcommands against its
// already-raw chain spec, memoizing both outputs under the raw spec's
// content hash so re-spawning the same network doesn't regenerate them
// (spec.md §4.E step 2h + "Tie-breaks and edge cases").
func ExportGenesis(ctx context.Context, engine *Engine, cache *GenesisCache, paraID int, binary, rawSpecPath string) (ParaGenesisEntry, error) {
	rawBytes, err := engine.FS.Read(ctx, rawSpecPath)
	if err != nil {
		return ParaGenesisEntry{}, fmt.Errorf("read raw chain spec %q for genesis export: %w", rawSpecPath, err)
	}
	hash := ContentHash(rawBytes)

	head, err := cache.GetOrGenerate(ctx, hash+".head", func(ctx context.Context) ([]byte, error) {
		head, err := engine.ExportGenesisState(ctx, binary, rawSpecPath)
		return []byte(head), err
	})
	if err != nil {
		return ParaGenesisEntry{}, fmt.Errorf("export genesis head for para %d: %w", paraID, err)
	}

	wasm, err := cache.GetOrGenerate(ctx, hash+".wasm", func(ctx context.Context) ([]byte, error) {
		wasm, err := engine.ExportGenesisWasm(ctx, binary, rawSpecPath)
		return []byte(wasm), err
	})
	if err != nil {
		return ParaGenesisEntry{}, fmt.Errorf("export genesis wasm for para %d: %w", paraID, err)
	}

	return ParaGenesisEntry{ParaID: paraID, HeadHex: string(head), WasmHex: string(wasm)}, nil
}
