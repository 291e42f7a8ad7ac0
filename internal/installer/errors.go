package installer

import (
	"errors"
	"fmt"
)

// ErrMissingEnvironment reports that the dependency environment produced by
// the setup step is absent. Match it with errors.Is.
var ErrMissingEnvironment = errors.New("dependency environment missing")

// EnvironmentError carries the path that failed the precheck.
type EnvironmentError struct {
	Path string
	Err  error
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("%v at %s: %v (run the setup step first)", ErrMissingEnvironment, e.Path, e.Err)
}

// Is makes errors.Is(err, ErrMissingEnvironment) true.
func (e *EnvironmentError) Is(target error) bool {
	return target == ErrMissingEnvironment
}

func (e *EnvironmentError) Unwrap() error {
	return e.Err
}

// RegistrationError reports that the supervisor rejected the new
// descriptor. The descriptor is left on disk for inspection.
type RegistrationError struct {
	Label          string
	DescriptorPath string
	Err            error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("failed to register %s (descriptor kept at %s): %v", e.Label, e.DescriptorPath, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// UninstallResult distinguishes a real removal from the "nothing to do" case.
type UninstallResult int

const (
	// NotInstalled means no descriptor existed; nothing was changed.
	NotInstalled UninstallResult = iota
	// Removed means the registration and descriptor were removed.
	Removed
)

func (r UninstallResult) String() string {
	switch r {
	case Removed:
		return "removed"
	default:
		return "not installed"
	}
}
