// Package walker discovers indexable files under a workspace root.
package walker

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFile is the per-project ignore list, one pattern per line.
const IgnoreFile = ".vybeignore"

// DefaultMaxFileSize is the largest file considered when Options leaves it unset.
const DefaultMaxFileSize = 1 << 20

// FileInfo holds metadata about a discovered source file.
type FileInfo struct {
	Path    string
	RelPath string
	Size    int64
}

// Options control a walk.
type Options struct {
	// Ignore patterns matched against names and slash-separated relative
	// paths. Patterns from IgnoreFile are added to these.
	Ignore []string
	// MaxFileSize skips larger files. Zero selects DefaultMaxFileSize.
	MaxFileSize int64
	// Extensions, without the dot, restricts which files are emitted.
	Extensions map[string]bool
}

// Walk traverses the directory tree rooted at root and sends discovered
// files on the returned channel. Walking stops early when ctx is done.
func Walk(ctx context.Context, root string, opts Options) (<-chan FileInfo, <-chan error) {
	files := make(chan FileInfo, 64)
	errs := make(chan error, 1)

	go func() {
		defer close(files)
		defer close(errs)

		absRoot, err := filepath.Abs(root)
		if err != nil {
			errs <- err
			return
		}

		ignores := append(append([]string(nil), opts.Ignore...), LoadIgnoreFile(absRoot)...)
		maxSize := opts.MaxFileSize
		if maxSize <= 0 {
			maxSize = DefaultMaxFileSize
		}

		err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // skip errors, keep walking
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if path == absRoot {
				return nil
			}

			rel, _ := filepath.Rel(absRoot, path)
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				if Matches(d.Name(), rel, ignores) {
					return filepath.SkipDir
				}
				return nil
			}

			// Skip symlinks and special files.
			if !d.Type().IsRegular() {
				return nil
			}
			if Matches(d.Name(), rel, ignores) {
				return nil
			}

			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
			if opts.Extensions != nil && !opts.Extensions[ext] {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return nil
			}
			if info.Size() > maxSize || info.Size() == 0 {
				return nil
			}

			select {
			case files <- FileInfo{Path: path, RelPath: rel, Size: info.Size()}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
		if err != nil {
			errs <- err
		}
	}()

	return files, errs
}

// LoadIgnoreFile reads IgnoreFile from root. A missing file yields nil.
func LoadIgnoreFile(root string) []string {
	f, err := os.Open(filepath.Join(root, IgnoreFile))
	if err != nil {
		return nil
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, strings.TrimSuffix(line, "/"))
	}
	return patterns
}

// WriteIgnoreFile creates IgnoreFile in root with patterns unless one exists.
func WriteIgnoreFile(root string, patterns []string) (bool, error) {
	path := filepath.Join(root, IgnoreFile)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	var b strings.Builder
	b.WriteString("# Paths to exclude from indexing.\n")
	b.WriteString("# One pattern per line. Supports exact names, path prefixes and globs.\n\n")
	for _, p := range patterns {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// Matches reports whether a name or relative path matches any pattern.
func Matches(name, relPath string, patterns []string) bool {
	for _, p := range patterns {
		// Exact name match (e.g. "node_modules", ".git").
		if name == p {
			return true
		}
		// Path prefix match at a segment boundary (e.g. "third_party/vendor").
		if relPath == p || strings.HasPrefix(relPath, p+"/") {
			return true
		}
		if matched, _ := filepath.Match(p, relPath); matched {
			return true
		}
		if matched, _ := filepath.Match(p, name); matched {
			return true
		}
	}
	return false
}
