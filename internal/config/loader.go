package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"autoresponder/internal/logger"
)

// rawConfig is used for JSON unmarshaling with duration strings and
// optional booleans.
type rawConfig struct {
	BaseDir           string            `json:"BaseDir"`
	Label             string            `json:"Label"`
	EnvDir            string            `json:"EnvDir"`
	Interpreter       string            `json:"Interpreter"`
	EntryPoint        string            `json:"EntryPoint"`
	Args              []string          `json:"Args"`
	WorkingDirectory  string            `json:"WorkingDirectory"`
	LogsDir           string            `json:"LogsDir"`
	StdoutLog         string            `json:"StdoutLog"`
	StderrLog         string            `json:"StderrLog"`
	KeepAlive         *bool             `json:"KeepAlive"`
	RunAtLoad         *bool             `json:"RunAtLoad"`
	Environment       map[string]string `json:"Environment"`
	AgentsDir         string            `json:"AgentsDir"`
	SupervisorTimeout string            `json:"SupervisorTimeout"`
	PreservedPaths    []string          `json:"PreservedPaths"`
	Logging           *rawLoggingConfig `json:"Logging"`
}

type rawLoggingConfig struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   *bool  `json:"Compress"`
	Console    *bool  `json:"Console"`
}

// Load reads configuration from the specified file path. An empty path
// yields the defaults for baseDir.
func Load(path, baseDir string) (*Config, error) {
	if path == "" {
		return DefaultConfig(baseDir), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, baseDir)
}

// LoadOptional behaves like Load but treats a missing file as "use defaults".
// The CLI uses it for the implicit responderctl.json next to the binary.
func LoadOptional(path, baseDir string) (*Config, error) {
	cfg, err := Load(path, baseDir)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(baseDir), nil
	}
	return cfg, err
}

// Parse parses configuration from JSON bytes over the defaults for baseDir.
func Parse(data []byte, baseDir string) (*Config, error) {
	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg := DefaultConfig(baseDir)
	parsed, err := convertRawConfig(&raw)
	if err != nil {
		return nil, err
	}
	cfg.Merge(parsed)

	if raw.KeepAlive != nil {
		cfg.KeepAlive = *raw.KeepAlive
	}
	if raw.RunAtLoad != nil {
		cfg.RunAtLoad = *raw.RunAtLoad
	}
	if raw.Logging != nil {
		mergeLogging(&cfg.Logging, raw.Logging)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func convertRawConfig(raw *rawConfig) (*Config, error) {
	cfg := &Config{
		BaseDir:          raw.BaseDir,
		Label:            raw.Label,
		EnvDir:           raw.EnvDir,
		Interpreter:      raw.Interpreter,
		EntryPoint:       raw.EntryPoint,
		Args:             raw.Args,
		WorkingDirectory: raw.WorkingDirectory,
		LogsDir:          raw.LogsDir,
		StdoutLog:        raw.StdoutLog,
		StderrLog:        raw.StderrLog,
		Environment:      raw.Environment,
		AgentsDir:        raw.AgentsDir,
		PreservedPaths:   raw.PreservedPaths,
	}

	if raw.SupervisorTimeout != "" {
		d, err := time.ParseDuration(raw.SupervisorTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SupervisorTimeout duration: %w", err)
		}
		cfg.SupervisorTimeout = d
	}

	return cfg, nil
}

func mergeLogging(dst *logger.Config, raw *rawLoggingConfig) {
	if raw.Level != "" {
		dst.Level = raw.Level
	}
	if raw.FilePath != "" {
		dst.FilePath = raw.FilePath
	}
	if raw.MaxSizeMB != 0 {
		dst.MaxSizeMB = raw.MaxSizeMB
	}
	if raw.MaxBackups != 0 {
		dst.MaxBackups = raw.MaxBackups
	}
	if raw.MaxAgeDays != 0 {
		dst.MaxAgeDays = raw.MaxAgeDays
	}
	if raw.Compress != nil {
		dst.Compress = *raw.Compress
	}
	if raw.Console != nil {
		dst.Console = *raw.Console
	}
}
