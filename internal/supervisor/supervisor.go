// Package supervisor talks to the per-user OS service supervisor.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Supervisor registers and unregisters service descriptors.
type Supervisor interface {
	// Register loads the descriptor at path and starts the service.
	Register(ctx context.Context, descriptorPath string) error

	// Unregister stops the service and removes its registration. It returns
	// ErrNotFound when nothing is registered for the descriptor.
	Unregister(ctx context.Context, descriptorPath string) error

	// Lookup returns the current registration for label, or ErrNotFound.
	Lookup(ctx context.Context, label string) (Registration, error)
}

// Registration describes a service known to the supervisor.
type Registration struct {
	Label          string
	PID            int // 0 when not running
	LastExitStatus int
}

// Running reports whether the supervisor currently has a live process.
func (r Registration) Running() bool {
	return r.PID > 0
}

var (
	// ErrNotFound is returned when the supervisor has no such registration.
	ErrNotFound = errors.New("service not registered")

	// ErrUnresponsive is returned when a supervisor call exceeds its timeout.
	ErrUnresponsive = errors.New("supervisor unresponsive")
)

// CommandError is a genuine supervisor failure: the command ran and
// reported an error that is not "not found".
type CommandError struct {
	Args     []string
	ExitCode int
	Output   string
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Output)
	if msg == "" {
		msg = "no output"
	}
	return fmt.Sprintf("%s exited with status %d: %s", strings.Join(e.Args, " "), e.ExitCode, msg)
}
