package args

import (
	"fmt"

	"github.com/paritytech/zombienet-go/internal/model"
)

// EmbeddedRelayOptions describes the relay-chain full node embedded inside
// a cumulus collator process, reached after the "--" separator.
type EmbeddedRelayOptions struct {
	ChainSpecPath string
	BasePath      string
	Port          int
	PrometheusPort int
	UserArgs      []string
}

// BuildCumulus assembles a collator's full command line: collator flags,
// a literal "--" separator, then the embedded relay-chain full node's own
// flags (spec.md §4.F "Cumulus split").
func BuildCumulus(collator model.NodeSpec, collatorOpts BuildOptions, embedded EmbeddedRelayOptions) []string {
	collatorFlags := Build(collator, collatorOpts)

	embeddedList := &List{}
	embeddedList.Set("base-path", embedded.BasePath)
	embeddedList.Set("chain", embedded.ChainSpecPath)
	embeddedList.Set("execution", "wasm")
	embeddedList.Set("port", fmt.Sprintf("%d", embedded.Port))
	embeddedList.Set("prometheus-port", fmt.Sprintf("%d", embedded.PrometheusPort))
	embeddedList.ApplyUserArgs(embedded.UserArgs)

	out := collatorFlags.Render()
	out = append(out, "--")
	out = append(out, embeddedList.Render()...)
	return out
}
