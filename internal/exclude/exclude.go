// Package exclude parses per-profile exclude pattern files and expands
// them into concrete path sets against a sync tree, using shell-glob
// semantics with support for the recursive "**" wildcard.
package exclude

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	mapset "github.com/deckarep/golang-set/v2"
)

// ParseFile reads an exclude pattern file: blank lines and lines starting
// with '#' are ignored; every other line is trimmed and kept verbatim.
func ParseFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("exclude: open %s: %w", path, err)
	}
	defer f.Close()

	var patterns []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("exclude: read %s: %w", path, err)
	}

	return patterns, nil
}

// Engine evaluates a fixed set of exclude patterns against a sync root.
type Engine struct {
	patterns []string
}

// New returns an Engine over the given raw pattern lines.
func New(patterns []string) *Engine {
	return &Engine{patterns: patterns}
}

// Glob expands every pattern against startPath and returns the matched
// absolute paths and their paths relative to startPath. A leading '/' in
// a pattern anchors it to startPath; otherwise the pattern is matched
// anywhere in the tree by interposing "**/". Patterns that match nothing
// are silently ignored.
func (e *Engine) Glob(startPath string) (abs mapset.Set[string], rel mapset.Set[string], err error) {
	abs = mapset.NewSet[string]()
	rel = mapset.NewSet[string]()

	for _, pattern := range e.patterns {
		globPattern, joinErr := e.joinPattern(startPath, pattern)
		if joinErr != nil {
			return nil, nil, joinErr
		}

		matches, globErr := doublestar.FilepathGlob(globPattern)
		if globErr != nil {
			return nil, nil, fmt.Errorf("exclude: glob %q: %w", pattern, globErr)
		}

		for _, m := range matches {
			abs.Add(m)

			r, relErr := filepath.Rel(startPath, m)
			if relErr != nil {
				continue
			}
			rel.Add(filepath.ToSlash(r))
		}
	}

	return abs, rel, nil
}

func (e *Engine) joinPattern(startPath, pattern string) (string, error) {
	if strings.HasPrefix(pattern, "/") {
		return filepath.ToSlash(filepath.Join(startPath, strings.TrimPrefix(pattern, "/"))), nil
	}

	return filepath.ToSlash(filepath.Join(startPath, "**", pattern)), nil
}
