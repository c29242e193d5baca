package args

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/paritytech/zombienet-go/internal/model"
)

// tokenPattern matches both "{{ENV_NAME}}" and "{{ZOMBIE:<node>:<field>}}".
var tokenPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// NodeResolver looks up a previously-spawned node's runtime record by name.
type NodeResolver func(nodeName string) (model.NodeRuntimeRecord, bool)

// HasZombieToken reports whether any arg contains a "{{ZOMBIE:...}}" token,
// which forces the scheduler's concurrency to 1 for the containing node
// (spec.md §4.F, §8 "ZOMBIE-token serialization").
func HasZombieToken(rawArgs []string) bool {
	for _, a := range rawArgs {
		if strings.Contains(a, "{{ZOMBIE:") {
			return true
		}
	}
	return false
}

// Expand substitutes "{{ENV_NAME}}" tokens from the environment and
// "{{ZOMBIE:<node>:<field>}}" tokens from resolve, for field in
// {multiaddr, ws_uri, prometheus_uri}. Unresolved env tokens are left
// verbatim (spec.md §4.F "Templating").
func Expand(s string, localIP string, resolve NodeResolver) (string, error) {
	var outerErr error
	out := tokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		inner := strings.TrimSuffix(strings.TrimPrefix(tok, "{{"), "}}")

		if strings.HasPrefix(inner, "ZOMBIE:") {
			parts := strings.SplitN(strings.TrimPrefix(inner, "ZOMBIE:"), ":", 2)
			if len(parts) != 2 {
				outerErr = fmt.Errorf("malformed ZOMBIE token %q", tok)
				return tok
			}
			nodeName, field := parts[0], parts[1]
			record, ok := resolve(nodeName)
			if !ok {
				outerErr = fmt.Errorf("ZOMBIE token references unknown node %q", nodeName)
				return tok
			}
			value, err := resolveField(record, field, localIP)
			if err != nil {
				outerErr = err
				return tok
			}
			return value
		}

		if v, ok := os.LookupEnv(inner); ok {
			return v
		}
		return tok // unresolved env tokens are kept verbatim
	})
	return out, outerErr
}

func resolveField(record model.NodeRuntimeRecord, field, localIP string) (string, error) {
	switch field {
	case "multiaddr":
		return record.Multiaddr, nil
	case "ws_uri", "wsUri":
		return fmt.Sprintf("ws://%s:%d", localIP, record.Endpoints.WS), nil
	case "prometheus_uri", "prometheusUri":
		return fmt.Sprintf("http://%s:%d", localIP, record.Endpoints.Prometheus), nil
	default:
		return "", fmt.Errorf("unknown ZOMBIE field %q", field)
	}
}

// ExpandAll expands every arg and returns the expanded copy, stopping at
// the first expansion error.
func ExpandAll(rawArgs []string, localIP string, resolve NodeResolver) ([]string, error) {
	out := make([]string, len(rawArgs))
	for i, a := range rawArgs {
		expanded, err := Expand(a, localIP, resolve)
		if err != nil {
			return nil, err
		}
		out[i] = expanded
	}
	return out, nil
}
