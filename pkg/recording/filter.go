package recording

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FilterConfig defines include/exclude patterns for selective recording.
//
// Patterns use doublestar syntax: "*" matches within one path segment and
// "**" matches across segments, so "/api/**" covers everything under /api.
// Host patterns are matched case-insensitively.
type FilterConfig struct {
	IncludePaths []string // Record only if path matches (empty = all)
	ExcludePaths []string // Never record if path matches
	IncludeHosts []string // Record only from these hosts (empty = all)
	ExcludeHosts []string // Never record from these hosts
}

// Validate reports the first malformed pattern.
func (f *FilterConfig) Validate() error {
	if f == nil {
		return nil
	}
	groups := [][]string{f.IncludePaths, f.ExcludePaths, f.IncludeHosts, f.ExcludeHosts}
	for _, patterns := range groups {
		for _, p := range patterns {
			if !doublestar.ValidatePattern(p) {
				return fmt.Errorf("invalid filter pattern %q", p)
			}
		}
	}
	return nil
}

// ShouldRecord determines if a request should be recorded.
// Precedence:
// 1. If matches ANY exclude pattern → NOT recorded
// 2. If include patterns exist AND matches NONE → NOT recorded
// 3. Otherwise → recorded
//
// A nil filter records everything.
func (f *FilterConfig) ShouldRecord(host, path string) bool {
	if f == nil {
		return true
	}
	host = strings.ToLower(host)

	if matchAny(f.ExcludeHosts, host, true) || matchAny(f.ExcludePaths, path, false) {
		return false
	}
	if len(f.IncludeHosts) > 0 && !matchAny(f.IncludeHosts, host, true) {
		return false
	}
	if len(f.IncludePaths) > 0 && !matchAny(f.IncludePaths, path, false) {
		return false
	}
	return true
}

// IsEmpty reports whether the filter has no patterns at all.
func (f *FilterConfig) IsEmpty() bool {
	return f == nil || len(f.IncludePaths)+len(f.ExcludePaths)+len(f.IncludeHosts)+len(f.ExcludeHosts) == 0
}

func matchAny(patterns []string, s string, fold bool) bool {
	for _, p := range patterns {
		if fold {
			p = strings.ToLower(p)
		}
		// Invalid patterns are rejected by Validate; here they never match.
		if ok, err := doublestar.Match(p, s); err == nil && ok {
			return true
		}
	}
	return false
}
