package lockmgr

import "github.com/bmatcuk/doublestar/v4"

// Overlaps reports whether two file-pattern sets semantically overlap:
// an empty set denotes "whole repo" and overlaps everything (including
// another empty set); otherwise any pairwise match via exact equality,
// directory-prefix containment, or glob intersection counts as overlap.
// Symmetric: Overlaps(a, b) == Overlaps(b, a).
func Overlaps(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, x := range a {
		for _, y := range b {
			if patternsOverlap(x, y) {
				return true
			}
		}
	}
	return false
}

func patternsOverlap(a, b string) bool {
	if a == b {
		return true
	}
	if dirPrefixCovers(a, b) || dirPrefixCovers(b, a) {
		return true
	}
	if globOverlap(a, b) {
		return true
	}
	return false
}

// dirPrefixCovers reports whether pattern (ending in "/") covers entry
// as a directory prefix.
func dirPrefixCovers(pattern, entry string) bool {
	if len(pattern) == 0 || pattern[len(pattern)-1] != '/' {
		return false
	}
	return len(entry) >= len(pattern) && entry[:len(pattern)] == pattern
}

// globOverlap uses doublestar's glob matching to decide whether either
// pattern, treated as a glob, matches the other treated as a literal
// path — covering simple single-star globs and extending to
// doublestar (`**`) semantics.
func globOverlap(a, b string) bool {
	if ok, err := doublestar.Match(a, b); err == nil && ok {
		return true
	}
	if ok, err := doublestar.Match(b, a); err == nil && ok {
		return true
	}
	return false
}
