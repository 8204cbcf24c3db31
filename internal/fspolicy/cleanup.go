package fspolicy

import (
	"os"
	"path/filepath"
)

// applyCleanup removes files under root matching any cleanup_drop glob,
// then — if cleanup_keep is non-empty — removes any remaining file that
// matches none of the keep globs. Directories left empty by either pass
// are pruned. Patterns match the file's base name, the same granularity
// FsPolicy.CleanupKeep/CleanupDrop document.
func applyCleanup(root string, keep, drop []string) error {
	if len(drop) > 0 {
		if err := removeMatching(root, func(name string) bool {
			return matchesAny(drop, name)
		}); err != nil {
			return err
		}
	}
	if len(keep) > 0 {
		if err := removeMatching(root, func(name string) bool {
			return !matchesAny(keep, name)
		}); err != nil {
			return err
		}
	}
	return nil
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

func removeMatching(root string, shouldRemove func(name string) bool) error {
	var toRemove []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if shouldRemove(d.Name()) {
			toRemove = append(toRemove, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, path := range toRemove {
		if err := os.Remove(path); err != nil {
			return err
		}
		removeEmptyParents(root, path)
	}
	return nil
}

// applyChmod walks root applying fileMode to files and dirMode to
// directories, when set. Umask is applied by the caller's process-wide
// os.Umask at startup, not here — FsPolicy.Umask only affects files this
// applier itself creates, not ones already on disk.
func applyChmod(root string, fileMode, dirMode *uint32) error {
	if fileMode == nil && dirMode == nil {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if dirMode != nil {
				return os.Chmod(path, os.FileMode(*dirMode))
			}
			return nil
		}
		if fileMode != nil {
			return os.Chmod(path, os.FileMode(*fileMode))
		}
		return nil
	})
}
