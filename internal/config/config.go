// Package config provides the explicit installer configuration.
//
// Every path the installer touches is derived from a Config rather than from
// the location of the running binary, so an Installer can be constructed
// against any directory tree (including a test's temp dir).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"autoresponder/internal/logger"
)

// Config is the root configuration structure.
type Config struct {
	BaseDir           string            `json:"BaseDir"`
	Label             string            `json:"Label"`
	EnvDir            string            `json:"EnvDir"`
	Interpreter       string            `json:"Interpreter"` // relative to EnvDir
	EntryPoint        string            `json:"EntryPoint"`
	Args              []string          `json:"Args"`
	WorkingDirectory  string            `json:"WorkingDirectory"`
	LogsDir           string            `json:"LogsDir"`
	StdoutLog         string            `json:"StdoutLog"`
	StderrLog         string            `json:"StderrLog"`
	KeepAlive         bool              `json:"KeepAlive"`
	RunAtLoad         bool              `json:"RunAtLoad"`
	Environment       map[string]string `json:"Environment"`
	AgentsDir         string            `json:"AgentsDir"`
	SupervisorTimeout time.Duration     `json:"SupervisorTimeout"`
	PreservedPaths    []string          `json:"PreservedPaths"`
	Logging           logger.Config     `json:"Logging"`
}

// DefaultLabel is the launchd identity of the auto-responder worker.
const DefaultLabel = "com.thumbtack.autoresponder"

// systemPath is appended after the environment's bin directory. launchd
// agents do not inherit the login shell PATH.
const systemPath = "/usr/local/bin:/opt/homebrew/bin:/usr/bin:/bin:/usr/sbin:/sbin"

// DefaultConfig returns the layout produced by the setup step: a virtualenv
// in venv/, the worker at main.py and captured output under logs/.
func DefaultConfig(baseDir string) *Config {
	return &Config{
		BaseDir:     baseDir,
		Label:       DefaultLabel,
		EnvDir:      "venv",
		Interpreter: filepath.Join("bin", "python3"),
		EntryPoint:  "main.py",
		LogsDir:     "logs",
		StdoutLog:   "stdout.log",
		StderrLog:   "stderr.log",
		KeepAlive:   true,
		RunAtLoad:   true,
		Environment: map[string]string{
			"PYTHONUNBUFFERED": "1",
		},
		AgentsDir:         filepath.Join("~", "Library", "LaunchAgents"),
		SupervisorTimeout: 30 * time.Second,
		PreservedPaths:    []string{"chrome_profile", "logs", ".env"},
		Logging:           logger.DefaultConfig(),
	}
}

// Merge applies non-zero values from other to this config. Booleans are
// handled by the loader, which knows whether a key was present.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.BaseDir != "" {
		c.BaseDir = other.BaseDir
	}
	if other.Label != "" {
		c.Label = other.Label
	}
	if other.EnvDir != "" {
		c.EnvDir = other.EnvDir
	}
	if other.Interpreter != "" {
		c.Interpreter = other.Interpreter
	}
	if other.EntryPoint != "" {
		c.EntryPoint = other.EntryPoint
	}
	if len(other.Args) > 0 {
		c.Args = other.Args
	}
	if other.WorkingDirectory != "" {
		c.WorkingDirectory = other.WorkingDirectory
	}
	if other.LogsDir != "" {
		c.LogsDir = other.LogsDir
	}
	if other.StdoutLog != "" {
		c.StdoutLog = other.StdoutLog
	}
	if other.StderrLog != "" {
		c.StderrLog = other.StderrLog
	}
	for k, v := range other.Environment {
		if c.Environment == nil {
			c.Environment = make(map[string]string)
		}
		c.Environment[k] = v
	}
	if other.AgentsDir != "" {
		c.AgentsDir = other.AgentsDir
	}
	if other.SupervisorTimeout != 0 {
		c.SupervisorTimeout = other.SupervisorTimeout
	}
	if len(other.PreservedPaths) > 0 {
		c.PreservedPaths = other.PreservedPaths
	}
}

var labelPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]*(\.[A-Za-z0-9][A-Za-z0-9-]*)+$`)

// Validate checks that the configuration can produce a usable descriptor.
func (c *Config) Validate() error {
	if !labelPattern.MatchString(c.Label) {
		return fmt.Errorf("invalid Label %q: expected reverse-domain form such as %s", c.Label, DefaultLabel)
	}
	if c.BaseDir == "" {
		return fmt.Errorf("BaseDir must be set")
	}
	if c.EnvDir == "" || c.Interpreter == "" {
		return fmt.Errorf("EnvDir and Interpreter must be set")
	}
	if c.EntryPoint == "" {
		return fmt.Errorf("EntryPoint must be set")
	}
	if c.LogsDir == "" {
		return fmt.Errorf("LogsDir must be set")
	}
	for _, name := range []string{c.StdoutLog, c.StderrLog} {
		if name == "" || name != filepath.Base(name) {
			return fmt.Errorf("invalid log file name %q: must be a bare file name", name)
		}
	}
	if c.StdoutLog == c.StderrLog {
		// launchd allows it, but logs -f would follow the same file twice.
		return fmt.Errorf("StdoutLog and StderrLog must differ")
	}
	if c.SupervisorTimeout <= 0 {
		return fmt.Errorf("SupervisorTimeout must be positive, got %s", c.SupervisorTimeout)
	}
	if c.AgentsDir == "" {
		return fmt.Errorf("AgentsDir must be set")
	}
	return nil
}

// Resolve makes p absolute against BaseDir and expands a leading "~".
func (c *Config) Resolve(p string) string {
	p = ExpandHome(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	base := c.BaseDir
	if !filepath.IsAbs(base) {
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
	}
	return filepath.Join(base, p)
}

// EnvPath returns the absolute dependency environment directory.
func (c *Config) EnvPath() string {
	return c.Resolve(c.EnvDir)
}

// InterpreterPath returns the absolute path of the runtime interpreter.
func (c *Config) InterpreterPath() string {
	if filepath.IsAbs(c.Interpreter) {
		return filepath.Clean(c.Interpreter)
	}
	return filepath.Join(c.EnvPath(), c.Interpreter)
}

// EntryPointPath returns the absolute path of the worker entry point.
func (c *Config) EntryPointPath() string {
	return c.Resolve(c.EntryPoint)
}

// WorkDir returns the worker's working directory.
func (c *Config) WorkDir() string {
	if c.WorkingDirectory == "" {
		return c.Resolve(".")
	}
	return c.Resolve(c.WorkingDirectory)
}

// LogsPath returns the absolute logs directory.
func (c *Config) LogsPath() string {
	return c.Resolve(c.LogsDir)
}

// StdoutPath returns the file the worker's standard output is captured in.
func (c *Config) StdoutPath() string {
	return filepath.Join(c.LogsPath(), c.StdoutLog)
}

// StderrPath returns the file the worker's standard error is captured in.
func (c *Config) StderrPath() string {
	return filepath.Join(c.LogsPath(), c.StderrLog)
}

// DescriptorPath returns the well-known location of the service descriptor.
func (c *Config) DescriptorPath() string {
	return filepath.Join(c.Resolve(c.AgentsDir), c.Label+".plist")
}

// Preserved returns the absolute user-data paths uninstall never touches.
func (c *Config) Preserved() []string {
	out := make([]string, 0, len(c.PreservedPaths))
	for _, p := range c.PreservedPaths {
		out = append(out, c.Resolve(p))
	}
	return out
}

// Environ returns the worker environment overrides. PATH always starts with
// the dependency environment's bin directory unless explicitly overridden.
func (c *Config) Environ() map[string]string {
	env := map[string]string{
		"PATH": filepath.Join(c.EnvPath(), "bin") + ":" + systemPath,
	}
	for k, v := range c.Environment {
		env[k] = v
	}
	return env
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// ExecutableDir returns the directory holding the running binary, which is
// where the installer expects the project tree by default.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}
