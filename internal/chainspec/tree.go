// Package chainspec implements the chain-spec pipeline: source resolution,
// plain-spec patching for the relay chain and parachains, raw conversion,
// post-raw overrides, and per-node key injection (spec.md §4.E).
package chainspec

// Tree is a parsed chain-spec document, kept as a generic JSON tree because
// the genesis shape varies by runtime and is not known ahead of time
// (unlike the strongly-typed NetworkSpec/NodeSpec models).
type Tree = map[string]any

// getPath walks a dotted path of map keys, returning nil if any segment
// is missing or not itself a map.
func getPath(t Tree, path ...string) any {
	var cur any = t
	for _, seg := range path {
		m, ok := cur.(Tree)
		if !ok {
			return nil
		}
		cur = m[seg]
	}
	return cur
}

// setPath writes value at the dotted path, creating intermediate maps as
// needed.
func setPath(t Tree, value any, path ...string) {
	cur := t
	for i, seg := range path {
		if i == len(path)-1 {
			cur[seg] = value
			return
		}
		next, ok := cur[seg].(Tree)
		if !ok {
			next = Tree{}
			cur[seg] = next
		}
		cur = next
	}
}

// clearPath removes whatever is at path if present, leaving parents intact.
func clearPath(t Tree, path ...string) {
	if len(path) == 0 {
		return
	}
	parent := getPath(t, path[:len(path)-1]...)
	m, ok := parent.(Tree)
	if !ok {
		if len(path) == 1 {
			delete(t, path[0])
		}
		return
	}
	delete(m, path[len(path)-1])
}

// genesisRuntime returns the "genesis.runtime" (or "genesis.runtimeGenesis.patch",
// the newer layout) subtree that pallet overrides are written into, whichever
// is present, defaulting to the classic "genesis.runtime" shape for a fresh spec.
func genesisRuntime(t Tree) Tree {
	if rt, ok := getPath(t, "genesis", "runtimeGenesis", "patch").(Tree); ok {
		return rt
	}
	genesis, ok := t["genesis"].(Tree)
	if !ok {
		genesis = Tree{}
		t["genesis"] = genesis
	}
	runtime, ok := genesis["runtime"].(Tree)
	if !ok {
		runtime = Tree{}
		genesis["runtime"] = runtime
	}
	return runtime
}
