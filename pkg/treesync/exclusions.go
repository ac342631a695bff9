package treesync

import (
	"strings"
)

// defaultExclusions are the platform-metadata names that are never synced:
// marker files, resource-fork directories, trash and indexing directories.
// Matching is by exact component name, not pattern.
var defaultExclusions = []string{
	".DS_Store",
	"__MACOSX",
	".AppleDouble",
	".LSOverride",
	".Spotlight-V100",
	".Trashes",
	".fseventsd",
}

// ExclusionSet holds the literal names excluded from synchronization.
// It is immutable after construction and safe for concurrent reads.
type ExclusionSet struct {
	names map[string]struct{}
}

// NewExclusionSet builds an ExclusionSet from the built-in platform-junk
// names plus any extra user-supplied literals.
func NewExclusionSet(extra ...string) ExclusionSet {
	set := ExclusionSet{names: make(map[string]struct{}, len(defaultExclusions)+len(extra))}
	for _, n := range defaultExclusions {
		set.names[n] = struct{}{}
	}
	for _, n := range extra {
		if n = strings.TrimSpace(n); n != "" {
			set.names[n] = struct{}{}
		}
	}
	return set
}

// Contains reports whether a single path component (a file or directory
// name) is excluded.
func (es ExclusionSet) Contains(name string) bool {
	_, ok := es.names[name]
	return ok
}

// MatchesPath reports whether any component of the slash-separated relative
// path is excluded.
func (es ExclusionSet) MatchesPath(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if es.Contains(part) {
			return true
		}
	}
	return false
}

// Len returns the number of excluded names.
func (es ExclusionSet) Len() int {
	return len(es.names)
}
