// Package args assembles the final command line for a node process from
// the framework-managed flag set, conditionally-added flags, the
// port/path group, and user-supplied args — applying the removal
// operator and env/ZOMBIE templating (spec.md §4.F).
package args

import "strings"

// Flag is one command-line flag, with or without a value.
type Flag struct {
	Name      string // without leading dashes, e.g. "chain"
	Value     string
	HasValue  bool
	Raw       bool // token passed through verbatim, e.g. a bare positional arg
	Protected bool // framework-managed; only the "-:" removal operator may dislodge it
}

func (f Flag) render() []string {
	if f.Raw {
		return []string{f.Name}
	}
	if !f.HasValue {
		return []string{"--" + f.Name}
	}
	return []string{"--" + f.Name + "=" + f.Value}
}

// List is an ordered, name-addressable sequence of flags.
type List struct {
	flags []Flag
}

func (l *List) Set(name, value string) {
	l.remove(name)
	l.flags = append(l.flags, Flag{Name: name, Value: value, HasValue: true})
}

func (l *List) SetBool(name string) {
	l.remove(name)
	l.flags = append(l.flags, Flag{Name: name})
}

// SetProtected sets a framework-managed flag that a plain same-named user
// token cannot override; only the "-:" removal operator can dislodge it
// (spec.md §4.F "Framework-managed": "always set … filtering out any
// user-supplied same-named flag").
func (l *List) SetProtected(name, value string) {
	l.remove(name)
	l.flags = append(l.flags, Flag{Name: name, Value: value, HasValue: true, Protected: true})
}

func (l *List) remove(name string) {
	out := l.flags[:0]
	for _, f := range l.flags {
		if f.Name != name {
			out = append(out, f)
		}
	}
	l.flags = out
}

// Has reports whether a flag with this name is present.
func (l *List) Has(name string) bool {
	for _, f := range l.flags {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (l *List) protected(name string) bool {
	for _, f := range l.flags {
		if f.Name == name {
			return f.Protected
		}
	}
	return false
}

// ApplyUserArgs merges raw user-supplied tokens into the list, honoring
// the removal operator: a token "-:--foo" (normalized to "--foo") drops
// the flag named "foo", protected or not. Any other "--foo" or "--foo=v"
// token overrides (re-adds) a non-protected flag's value, but is ignored
// for a protected (framework-managed) flag of the same name — only "-:"
// can dislodge those (spec.md §4.F, §8 "Removal operator" testable
// property).
func (l *List) ApplyUserArgs(userArgs []string) {
	for i := 0; i < len(userArgs); i++ {
		tok := userArgs[i]

		if strings.HasPrefix(tok, "-:") {
			normalized := "--" + strings.TrimLeft(strings.TrimPrefix(tok, "-:"), "-")
			name, _, _ := splitFlag(normalized)
			l.remove(name)
			continue
		}

		if !strings.HasPrefix(tok, "--") {
			// Bare positional arg (rare); append inline, no name to key on.
			l.flags = append(l.flags, Flag{Name: tok, Raw: true})
			continue
		}

		name, value, hasValue := splitFlag(tok)
		if l.protected(name) {
			// Framework-managed flag: a bare re-specification doesn't win
			// over it, only "-:" does (spec.md §4.F).
			continue
		}
		l.remove(name)
		l.flags = append(l.flags, Flag{Name: name, Value: value, HasValue: hasValue})
	}
}

func splitFlag(tok string) (name, value string, hasValue bool) {
	body := strings.TrimPrefix(tok, "--")
	if idx := strings.IndexByte(body, '='); idx >= 0 {
		return body[:idx], body[idx+1:], true
	}
	return body, "", false
}

// Render produces the final argv slice in insertion order.
func (l *List) Render() []string {
	out := make([]string, 0, len(l.flags))
	for _, f := range l.flags {
		out = append(out, f.render()...)
	}
	return out
}
