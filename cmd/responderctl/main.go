// Command responderctl installs the auto-responder worker as a per-user
// LaunchAgent and inspects it once installed.
package main

import (
	"os"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		// cobra has already printed the error
		os.Exit(1)
	}
}
