package pathtree

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against relative path; false = match against basename only
}

// IgnoreMatcher checks relative paths against a set of ignore patterns.
// Patterns without '/' match against the entry's basename only.
// Patterns with '/' match against the full slash-separated path from the walk root.
// Matching follows the flavour's case rule.
type IgnoreMatcher struct {
	fl       Flavour
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped; a malformed pattern
// is reported as ErrBadPattern.
func NewIgnoreMatcher(fl Flavour, rawPatterns []string) (*IgnoreMatcher, error) {
	if fl == nil {
		fl = Native
	}
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		folded := matchFold(fl, raw)
		if !doublestar.ValidatePattern(folded) {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, raw)
		}
		patterns = append(patterns, ignorePattern{
			pattern:   folded,
			matchPath: strings.Contains(folded, "/"),
		})
	}
	return &IgnoreMatcher{fl: fl, patterns: patterns}, nil
}

// Match reports whether the given slash-separated relative path should be ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	if m == nil || len(m.patterns) == 0 || relativePath == "" {
		return false
	}

	normalized := matchFold(m.fl, relativePath)
	basename := path.Base(normalized)

	for _, p := range m.patterns {
		target := basename
		if p.matchPath {
			target = normalized
		}
		if doublestar.MatchUnvalidated(p.pattern, target) {
			return true
		}
	}
	return false
}

// globMatcher matches the slash-separated path of an entry relative to the
// walk root, so "d*/*.py" sees intermediate directory names.
type globMatcher struct {
	fl      Flavour
	pattern string
}

func newGlobMatcher(fl Flavour, pattern string) (*globMatcher, error) {
	if pattern == "" {
		return nil, nil
	}
	folded := matchFold(fl, pattern)
	if !doublestar.ValidatePattern(folded) {
		return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}
	return &globMatcher{fl: fl, pattern: folded}, nil
}

func (g *globMatcher) Match(relativePath string) bool {
	if g == nil {
		return true
	}
	return doublestar.MatchUnvalidated(g.pattern, matchFold(g.fl, relativePath))
}

// matchFold applies the flavour's case rule and rewrites its separators to
// '/'. Backslash is only a separator on Windows; elsewhere it stays an
// escape character for patterns.
func matchFold(fl Flavour, s string) string {
	return toSlash(fl, fl.Fold(s))
}

func toSlash(fl Flavour, s string) string {
	if fl.Separator() == '/' {
		return s
	}
	return strings.ReplaceAll(s, string(fl.Separator()), "/")
}
