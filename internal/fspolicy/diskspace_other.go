//go:build !linux && !darwin

package fspolicy

import "errors"

// diskFreeBytes is a stub for platforms without a Statfs-style syscall; the
// production deployment runs on Linux where diskspace_linux.go applies.
func diskFreeBytes(path string) (int64, error) {
	return 0, errors.New("disk space check not supported on this platform")
}
