package tokenize

import "strings"

// Selector tests a scope-name stack (innermost last) for a match. Matching
// itself is an external collaborator; this package only ships the default
// dotted-scope predicate used when nothing else is configured.
type Selector func(scopes []string) bool

// ParseSelector builds the default Selector implementation: a selector of the
// form ".a.b.c" matches any scope in the stack whose dotted components are a
// superset of {a, b, c}.
func ParseSelector(pattern string) Selector {
	parts := strings.Split(strings.TrimPrefix(pattern, "."), ".")
	want := make(map[string]bool, len(parts))
	for _, p := range parts {
		if p != "" {
			want[p] = true
		}
	}
	return func(scopes []string) bool {
		for _, scope := range scopes {
			have := strings.Split(scope, ".")
			haveSet := make(map[string]bool, len(have))
			for _, h := range have {
				haveSet[h] = true
			}
			matched := true
			for p := range want {
				if !haveSet[p] {
					matched = false
					break
				}
			}
			if matched {
				return true
			}
		}
		return false
	}
}
