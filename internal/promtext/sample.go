// Package promtext parses the Prometheus textual exposition format into
// typed samples (spec.md §4.B). It is the readiness-detection primitive
// used by the scheduler and the Network handle's metric assertions.
package promtext

import "fmt"

// Value is a sample's numeric value, which may be a finite float or one
// of the three special IEEE 754 forms the exposition format allows.
type Value struct {
	Float    float64
	IsInf    bool
	InfSign  int // +1 or -1, only meaningful when IsInf
	IsNaN    bool
}

// Finite reports whether the value is an ordinary finite number.
func (v Value) Finite() bool { return !v.IsInf && !v.IsNaN }

// String renders the value back in exposition format, used by the
// parse->render->parse round-trip property (spec.md §8).
func (v Value) String() string {
	switch {
	case v.IsNaN:
		return "NaN"
	case v.IsInf && v.InfSign > 0:
		return "+Inf"
	case v.IsInf && v.InfSign < 0:
		return "-Inf"
	default:
		return formatFloat(v.Float)
	}
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}

// Sample is one parsed metric line: a name, its label set, and a value.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  Value
}

// Render writes the sample back in exposition-line format.
func (s Sample) Render() string {
	if len(s.Labels) == 0 {
		return fmt.Sprintf("%s %s", s.Name, s.Value.String())
	}
	out := s.Name + "{"
	first := true
	for _, k := range sortedKeys(s.Labels) {
		if !first {
			out += ","
		}
		first = false
		out += fmt.Sprintf("%s=%q", k, s.Labels[k])
	}
	out += "} " + s.Value.String()
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// small n, insertion sort avoids importing sort for a single call site
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
