package chainspec

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
)

// ApplyWasmOverride replaces the ":code" storage key in a raw chain spec's
// top/genesis storage with wasmHex (spec.md §4.E step 5).
func ApplyWasmOverride(raw Tree, wasmHex string) error {
	if wasmHex == "" {
		return nil
	}
	top, ok := getPath(raw, "genesis", "raw", "top").(Tree)
	if !ok {
		return fmt.Errorf("apply wasm override: raw spec has no genesis.raw.top storage map")
	}
	top["0x3a636f6465"] = "0x" + wasmHex // ":code" in hex
	return nil
}

// ApplyRawSpecOverride applies an inline JSON-merge-patch on top of the raw
// spec tree (spec.md §4.E step 5).
func ApplyRawSpecOverride(raw Tree, patch json.RawMessage) (Tree, error) {
	if len(patch) == 0 {
		return raw, nil
	}
	current, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("marshal raw spec before override: %w", err)
	}
	merged, err := jsonpatch.MergePatch(current, patch)
	if err != nil {
		return nil, fmt.Errorf("apply raw spec override: %w", err)
	}
	var out Tree
	if err := json.Unmarshal(merged, &out); err != nil {
		return nil, fmt.Errorf("unmarshal merged raw spec: %w", err)
	}
	return out, nil
}

// DecodeHexPayload is a small helper around encoding/hex used by callers
// assembling genesis head/wasm payloads before they reach the tree.
func DecodeHexPayload(s string) ([]byte, error) {
	return hex.DecodeString(stripHexPrefix(s))
}

func stripHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
