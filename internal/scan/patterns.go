// Package scan provides pattern matching utilities for file filtering.
package scan

import (
	"path"
	"strings"
)

// PatternMatcher handles include/exclude pattern matching for scanned files.
type PatternMatcher struct{}

// NewPatternMatcher creates a new pattern matcher.
func NewPatternMatcher() *PatternMatcher {
	return &PatternMatcher{}
}

// ShouldIncludeFile determines if a file should be included based on patterns.
// Exclude patterns take precedence; when include patterns exist a file must
// match at least one. Patterns match against slash-separated relative paths.
func (pm *PatternMatcher) ShouldIncludeFile(
	relPath string,
	includePatterns []string,
	excludePatterns []string,
) bool {
	for _, pattern := range excludePatterns {
		if pm.matchesPattern(relPath, pattern) {
			return false
		}
	}

	if len(includePatterns) > 0 {
		for _, pattern := range includePatterns {
			if pm.matchesPattern(relPath, pattern) {
				return true
			}
		}
		return false
	}

	return true
}

// matchesPattern checks if a path matches a glob pattern.
// Supports *, ?, ** and trailing-slash directory patterns.
func (pm *PatternMatcher) matchesPattern(p, pattern string) bool {
	// A trailing slash means "everything under this directory".
	if strings.HasSuffix(pattern, "/") {
		dir := strings.TrimSuffix(pattern, "/")
		return p == dir || strings.HasPrefix(p, dir+"/")
	}

	if strings.Contains(pattern, "**") {
		return pm.matchesRecursive(p, pattern)
	}

	// Bare filename patterns like "*.tmp" apply at any depth.
	if !strings.Contains(pattern, "/") {
		match, err := path.Match(pattern, path.Base(p))
		return err == nil && match
	}

	match, err := path.Match(pattern, p)
	return err == nil && match
}

// matchesRecursive handles patterns containing ** (match across separators).
func (pm *PatternMatcher) matchesRecursive(p, pattern string) bool {
	parts := strings.SplitN(pattern, "**", 2)
	if len(parts) != 2 {
		match, _ := path.Match(pattern, p)
		return match
	}

	prefix, suffix := parts[0], parts[1]
	if !strings.HasPrefix(p, prefix) {
		return false
	}
	if suffix == "" {
		return true
	}

	rest := strings.TrimPrefix(p, prefix)
	suffix = strings.TrimPrefix(suffix, "/")
	if strings.Contains(suffix, "*") {
		// Match the suffix glob against the tail components.
		segs := strings.Split(rest, "/")
		for i := range segs {
			candidate := strings.Join(segs[i:], "/")
			if match, err := path.Match(suffix, candidate); err == nil && match {
				return true
			}
		}
		return false
	}
	return strings.HasSuffix(rest, suffix)
}
