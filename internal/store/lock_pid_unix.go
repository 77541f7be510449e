//go:build !windows

package store

import "golang.org/x/sys/unix"

// processAlive reports whether pid is still running, by sending signal 0
// (no-op delivery, existence check only).
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err != unix.ESRCH
}
