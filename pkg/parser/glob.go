package parser

import (
	"fmt"
	"os"
	"path/filepath"
)

// ExpandGlobs expands a list of file paths and glob patterns into a
// deduplicated list of paths. Argument order is kept; matches of one pattern
// are sorted. Patterns that don't match any files are returned as-is, and
// "-" is always kept.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}

	for _, pattern := range patterns {
		if pattern == StdinName {
			add(pattern)
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}

		if len(matches) == 0 {
			// Pattern didn't match anything - include it as literal path
			// This allows for explicit file paths and better error messages later
			add(pattern)
			continue
		}

		for _, match := range matches {
			add(match)
		}
	}

	return result, nil
}

// SplitExisting separates paths that can be read from paths that do not
// exist. "-" always counts as existing.
func SplitExisting(paths []string) (found, missing []string) {
	for _, p := range paths {
		if p == StdinName {
			found = append(found, p)
			continue
		}
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			missing = append(missing, p)
			continue
		}
		found = append(found, p)
	}
	return found, missing
}
