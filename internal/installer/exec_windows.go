//go:build windows
// +build windows

package installer

import "os"

// checkExecutable only checks existence: Windows has no execute bit.
func checkExecutable(path string) error {
	_, err := os.Stat(path)
	return err
}
