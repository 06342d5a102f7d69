// Package walk traverses a repository working tree, honoring VCS ignore
// rules and a small set of unconditionally-skipped directories.
package walk

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ferg-cod3s/pointerindex/internal/security"
	"github.com/ferg-cod3s/pointerindex/internal/validation"
)

// alwaysSkipDirs are path components skipped regardless of ignore rules.
var alwaysSkipDirs = map[string]bool{
	"target":       true,
	"node_modules": true,
	".git":         true,
}

// FileWalker walks a directory tree, applying .gitignore-style patterns on
// top of the unconditional skip list.
type FileWalker struct {
	maxFileSize int64 // Skip files larger than this (0 = no limit)
}

// NewFileWalker creates a new FileWalker with an optional size limit.
func NewFileWalker(maxFileSize int64) *FileWalker {
	return &FileWalker{maxFileSize: maxFileSize}
}

// Walk traverses the directory tree starting at root, calling fn for every
// regular file that is not ignored.
func (w *FileWalker) Walk(ctx context.Context, root string, ignorePatterns []string, fn func(path string, info fs.FileInfo) error) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve root path: %w", err)
	}

	matcher := newPatternMatcher(ignorePatterns)

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}
		relPath = filepath.ToSlash(relPath)

		if relPath == "." {
			return nil
		}

		if err := validation.IsPathSafe(relPath); err != nil {
			return fmt.Errorf("path validation failed for %s: %w", relPath, err)
		}

		if hasAlwaysSkippedComponent(relPath) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if matcher.match(relPath, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("file info for %s: %w", path, err)
		}

		if w.maxFileSize > 0 && info.Size() > w.maxFileSize {
			return nil
		}

		return fn(path, info)
	})
}

func hasAlwaysSkippedComponent(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if alwaysSkipDirs[part] {
			return true
		}
	}
	return false
}

// patternMatcher handles .gitignore-style pattern matching.
type patternMatcher struct {
	patterns []pattern
}

type pattern struct {
	raw      string
	negate   bool // Pattern starts with !
	dirOnly  bool // Pattern ends with /
	anchored bool // Pattern starts with /
	glob     string
}

func newPatternMatcher(patterns []string) *patternMatcher {
	m := &patternMatcher{patterns: make([]pattern, 0, len(patterns))}

	for _, p := range patterns {
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}

		pat := pattern{raw: p}

		if strings.HasPrefix(p, "!") {
			pat.negate = true
			p = p[1:]
		}
		if strings.HasSuffix(p, "/") {
			pat.dirOnly = true
			p = strings.TrimSuffix(p, "/")
		}
		if strings.HasPrefix(p, "/") {
			pat.anchored = true
			p = strings.TrimPrefix(p, "/")
		}

		pat.glob = p
		m.patterns = append(m.patterns, pat)
	}

	return m
}

// match reports whether relPath should be ignored; the last matching
// pattern wins, matching gitignore semantics.
func (m *patternMatcher) match(relPath string, isDir bool) bool {
	ignored := false

	for _, pat := range m.patterns {
		if pat.dirOnly {
			if relPath == pat.glob && isDir {
				ignored = !pat.negate
				continue
			}
			if strings.HasPrefix(relPath, pat.glob+"/") {
				ignored = !pat.negate
				continue
			}
			if !pat.anchored {
				parts := strings.Split(relPath, "/")
				for i := 0; i < len(parts); i++ {
					if parts[i] != pat.glob {
						continue
					}
					if i == len(parts)-1 && isDir {
						ignored = !pat.negate
						break
					}
					if i < len(parts)-1 {
						ignored = !pat.negate
						break
					}
				}
			}
			continue
		}

		if m.matchPattern(pat, relPath, isDir) {
			ignored = !pat.negate
		}
	}

	return ignored
}

func (m *patternMatcher) matchPattern(pat pattern, relPath string, isDir bool) bool {
	if pat.anchored {
		if matched, _ := filepath.Match(pat.glob, relPath); matched {
			return true
		}
		if isDir {
			matched, _ := filepath.Match(pat.glob, relPath+"/")
			return matched
		}
		return false
	}

	if matched, _ := filepath.Match(pat.glob, filepath.Base(relPath)); matched {
		return true
	}

	if strings.Contains(pat.glob, "/") {
		if matched, _ := filepath.Match(pat.glob, relPath); matched {
			return true
		}
	}

	parts := strings.Split(relPath, "/")
	for i := 0; i < len(parts); i++ {
		suffix := strings.Join(parts[i:], "/")
		if matched, _ := filepath.Match(pat.glob, suffix); matched {
			return true
		}
	}

	return false
}

// DefaultIgnorePatterns returns common patterns to ignore in codebases, on
// top of the unconditional target/node_modules/.git skip.
func DefaultIgnorePatterns() []string {
	return []string{
		".svn/",
		".hg/",
		"vendor/",
		"build/",
		"dist/",
		"*.pyc",
		"*.pyo",
		"*.class",
		"*.o",
		"*.so",
		"*.dylib",
		"*.dll",
		"*.exe",
		".DS_Store",
		"Thumbs.db",
	}
}

// LoadGitignore reads a .gitignore file and returns its patterns.
func LoadGitignore(path string, basePath string) ([]string, error) {
	if _, err := security.ValidatePathWithinBase(path, basePath); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- validated above
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read .gitignore: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	patterns := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}

	return patterns, nil
}
