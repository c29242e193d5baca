package network

import (
	"fmt"
	"strings"
)

// MetricExpr is a compiled `name{label="v",...}` expression (spec.md §4.H:
// "compile a metric expression ... and evaluate against B's parse of a
// fresh scrape").
type MetricExpr struct {
	Name   string
	Labels map[string]string
}

// ParseMetricExpr parses a metric expression of the form
// `name{label="v",label2="v2"}` or a bare `name` with no label set.
func ParseMetricExpr(expr string) (MetricExpr, error) {
	expr = strings.TrimSpace(expr)
	braceIdx := strings.IndexByte(expr, '{')
	if braceIdx == -1 {
		if expr == "" {
			return MetricExpr{}, fmt.Errorf("empty metric expression")
		}
		return MetricExpr{Name: expr}, nil
	}

	name := expr[:braceIdx]
	if name == "" {
		return MetricExpr{}, fmt.Errorf("metric expression %q has no name", expr)
	}
	if !strings.HasSuffix(expr, "}") {
		return MetricExpr{}, fmt.Errorf("metric expression %q missing closing '}'", expr)
	}

	body := expr[braceIdx+1 : len(expr)-1]
	labels := map[string]string{}
	if strings.TrimSpace(body) != "" {
		for _, pair := range strings.Split(body, ",") {
			pair = strings.TrimSpace(pair)
			eqIdx := strings.IndexByte(pair, '=')
			if eqIdx == -1 {
				return MetricExpr{}, fmt.Errorf("metric expression %q: malformed label %q", expr, pair)
			}
			key := strings.TrimSpace(pair[:eqIdx])
			value := strings.Trim(strings.TrimSpace(pair[eqIdx+1:]), `"`)
			labels[key] = value
		}
	}
	return MetricExpr{Name: name, Labels: labels}, nil
}
