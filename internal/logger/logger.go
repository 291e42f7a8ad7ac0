// Package logger provides structured logging for responderctl.
//
// Console output goes to stderr so that command results printed on stdout
// stay machine-readable. File output is optional and rotated by lumberjack.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds the logger configuration.
type Config struct {
	Level      string `json:"Level"`
	FilePath   string `json:"FilePath"`
	MaxSizeMB  int    `json:"MaxSizeMB"`
	MaxBackups int    `json:"MaxBackups"`
	MaxAgeDays int    `json:"MaxAgeDays"`
	Compress   bool   `json:"Compress"`
	Console    bool   `json:"Console"`
}

// DefaultConfig returns console-only logging at info level. No file is
// written by default: uninstalling a never-installed service must not
// leave anything behind on disk.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  5,
		MaxBackups: 3,
		MaxAgeDays: 30,
		Compress:   true,
		Console:    true,
	}
}

var (
	mu           sync.Mutex
	globalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	fileWriter   io.Closer
	consoleOut   io.Writer = os.Stderr
)

// SetConsoleOutput redirects console output. Intended for tests and for
// callers that hand the CLI a custom stderr.
func SetConsoleOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	consoleOut = w
}

// Init (re)initializes the global logger with the given configuration.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if fileWriter != nil {
		fileWriter.Close()
		fileWriter = nil
	}

	var writers []io.Writer

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return err
		}
		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		fileWriter = lj
		writers = append(writers, NewFixedFormatWriter(lj))
	}

	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        consoleOut,
			TimeFormat: time.TimeOnly,
		})
	}

	var output io.Writer
	switch len(writers) {
	case 0:
		output = io.Discard
	case 1:
		output = writers[0]
	default:
		output = zerolog.MultiLevelWriter(writers...)
	}

	globalLogger = zerolog.New(output).With().Timestamp().Logger()
	return nil
}

// Close releases the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if fileWriter == nil {
		return nil
	}
	err := fileWriter.Close()
	fileWriter = nil
	return err
}

// Logger returns the global logger instance.
func Logger() *zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return &globalLogger
}

// Info logs an info message.
func Info() *zerolog.Event {
	return Logger().Info()
}

// Warn logs a warning message.
func Warn() *zerolog.Event {
	return Logger().Warn()
}

// Error logs an error message.
func Error() *zerolog.Event {
	return Logger().Error()
}

// WithComponent returns a logger with component field.
func WithComponent(component string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger.With().Str("component", component).Logger()
}
