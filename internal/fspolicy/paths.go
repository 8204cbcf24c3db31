package fspolicy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideAllowedPaths is returned when a post-processing target resolves
// outside every directory named in FsPolicy.AllowPaths.
var ErrOutsideAllowedPaths = errors.New("path escapes allowed roots")

// withinBase reports whether candidate (already absolute and cleaned) is
// base itself or a descendant of it. Adapted from the delete-torrent
// use case's own base-dir-prefix check, generalized from a single base
// directory to a set of allowed roots.
func withinBase(base, candidate string) bool {
	if candidate == base {
		return true
	}
	return strings.HasPrefix(candidate, base+string(os.PathSeparator))
}

// ensureAllowed resolves path to an absolute, cleaned form and verifies it
// sits inside one of roots. An empty roots list means no restriction is
// configured, matching FsPolicy.AllowPaths' documented "empty = no
// allowlist" shape.
func ensureAllowed(path string, roots []string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	abs = filepath.Clean(abs)
	if len(roots) == 0 {
		return abs, nil
	}
	for _, root := range roots {
		rootAbs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if withinBase(filepath.Clean(rootAbs), abs) {
			return abs, nil
		}
	}
	return "", ErrOutsideAllowedPaths
}

// removeEmptyParents removes now-empty directories between leaf and base
// (exclusive of base), stopping at the first non-empty one. Mirrors the
// delete-torrent use case's own cleanup-after-removal pass.
func removeEmptyParents(base, leaf string) {
	dir := filepath.Dir(leaf)
	for dir != base && withinBase(base, dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		next := filepath.Dir(dir)
		if next == dir {
			return
		}
		dir = next
	}
}
