//go:build !windows
// +build !windows

package installer

import "golang.org/x/sys/unix"

// checkExecutable verifies the current user may execute path.
func checkExecutable(path string) error {
	return unix.Access(path, unix.X_OK)
}
