package files

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Matcher filters file names by user supplied glob patterns.
// Only '*' (any run of characters) and '?' (exactly one character) are wildcards;
// every other character is matched literally and case-insensitively.
type Matcher struct {
	patterns []string
	globs    []glob.Glob
}

// NewMatcher compiles patterns. An empty list matches nothing.
func NewMatcher(patterns []string) (*Matcher, error) {
	m := &Matcher{patterns: patterns, globs: make([]glob.Glob, 0, len(patterns))}
	for _, p := range patterns {
		g, err := glob.Compile(sanitizePattern(p))
		if err != nil {
			return nil, fmt.Errorf("invalid file pattern %q: %w", p, err)
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether the lower-cased name matches at least one pattern.
func (m *Matcher) Match(name string) bool {
	name = strings.ToLower(name)
	for _, g := range m.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns.
func (m *Matcher) Patterns() []string {
	return m.patterns
}

// sanitizePattern quotes all glob syntax except '*' and '?'.
func sanitizePattern(pattern string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(pattern) {
		switch r {
		case '*', '?':
			b.WriteRune(r)
		default:
			b.WriteString(glob.QuoteMeta(string(r)))
		}
	}
	return b.String()
}
