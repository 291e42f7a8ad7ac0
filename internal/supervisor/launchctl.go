package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"autoresponder/internal/descriptor"
	"autoresponder/internal/logger"
)

// Runner executes a supervisor command and returns its combined output and
// exit code. A non-nil error means the command could not be run at all.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (output []byte, exitCode int, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = time.Second
	out, err := cmd.CombinedOutput()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, exitErr.ExitCode(), nil
	}
	if err != nil {
		return out, -1, err
	}
	return out, 0, nil
}

// Launchctl drives launchd's per-user domain through the launchctl tool.
type Launchctl struct {
	Path    string
	Timeout time.Duration
	Runner  Runner
}

// DefaultTimeout bounds each launchctl invocation when none is configured.
const DefaultTimeout = 30 * time.Second

// NewLaunchctl returns a Launchctl supervisor using the system launchctl.
func NewLaunchctl(timeout time.Duration) *Launchctl {
	return &Launchctl{
		Path:    "launchctl",
		Timeout: timeout,
		Runner:  ExecRunner{},
	}
}

// launchctl exit codes meaning "no such job".
const (
	exitNoSuchProcess   = 3
	exitServiceNotFound = 113
)

var notFoundMarkers = []string{
	"could not find specified service",
	"could not find service",
	"no such process",
	"not loaded",
}

// launchctl load/unload frequently report failures on stderr with status 0.
var failureMarkers = []string{
	"load failed",
	"unload failed",
	"already loaded",
	"invalid property list",
	"dubious ownership",
	"path had bad ownership",
}

func containsAny(output string, markers []string) bool {
	lower := strings.ToLower(output)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func (l *Launchctl) run(ctx context.Context, args ...string) (string, int, error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	path := l.Path
	if path == "" {
		path = "launchctl"
	}
	runner := l.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	log := logger.WithComponent("supervisor")
	log.Debug().Strs("args", args).Msg("Running launchctl")

	out, code, err := runner.Run(ctx, path, args...)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", 0, fmt.Errorf("%w: launchctl %s did not return within %s", ErrUnresponsive, args[0], timeout)
	}
	if err != nil {
		return "", 0, fmt.Errorf("failed to run launchctl: %w", err)
	}
	return string(out), code, nil
}

func (l *Launchctl) commandError(args []string, code int, output string) *CommandError {
	return &CommandError{
		Args:     append([]string{"launchctl"}, args...),
		ExitCode: code,
		Output:   output,
	}
}

// Register implements Supervisor.
func (l *Launchctl) Register(ctx context.Context, descriptorPath string) error {
	args := []string{"load", "-w", descriptorPath}
	out, code, err := l.run(ctx, args...)
	if err != nil {
		return err
	}
	if code != 0 || containsAny(out, failureMarkers) {
		return l.commandError(args, code, out)
	}
	return nil
}

// Unregister implements Supervisor. launchctl cannot reliably tell "not
// loaded" from other unload failures, so the registration is looked up by
// label first.
func (l *Launchctl) Unregister(ctx context.Context, descriptorPath string) error {
	if _, err := l.Lookup(ctx, labelFor(descriptorPath)); err != nil {
		return err
	}

	args := []string{"unload", "-w", descriptorPath}
	out, code, err := l.run(ctx, args...)
	if err != nil {
		return err
	}
	if code == exitNoSuchProcess || code == exitServiceNotFound || containsAny(out, notFoundMarkers) {
		return ErrNotFound
	}
	if code != 0 || containsAny(out, failureMarkers) {
		return l.commandError(args, code, out)
	}
	return nil
}

var (
	pidPattern        = regexp.MustCompile(`"PID"\s*=\s*(\d+);`)
	lastStatusPattern = regexp.MustCompile(`"LastExitStatus"\s*=\s*(-?\d+);`)
)

// Lookup implements Supervisor using "launchctl list <label>".
func (l *Launchctl) Lookup(ctx context.Context, label string) (Registration, error) {
	args := []string{"list", label}
	out, code, err := l.run(ctx, args...)
	if err != nil {
		return Registration{}, err
	}
	if code != 0 {
		if code == exitServiceNotFound || code == exitNoSuchProcess || containsAny(out, notFoundMarkers) {
			return Registration{}, ErrNotFound
		}
		return Registration{}, l.commandError(args, code, out)
	}
	return parseList(label, out), nil
}

func parseList(label, out string) Registration {
	reg := Registration{Label: label}
	if m := pidPattern.FindStringSubmatch(out); m != nil {
		reg.PID, _ = strconv.Atoi(m[1])
	}
	if m := lastStatusPattern.FindStringSubmatch(out); m != nil {
		reg.LastExitStatus, _ = strconv.Atoi(m[1])
	}
	return reg
}

// labelFor returns the Label inside the descriptor, falling back to the
// LaunchAgents naming convention of <label>.plist.
func labelFor(descriptorPath string) string {
	if d, err := descriptor.ReadFile(descriptorPath); err == nil && d.Label != "" {
		return d.Label
	}
	return strings.TrimSuffix(filepath.Base(descriptorPath), ".plist")
}
