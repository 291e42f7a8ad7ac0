// Package descriptor renders and persists the launchd service descriptor
// (a LaunchAgent property list) for the supervised worker.
package descriptor

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"howett.net/plist"

	"autoresponder/internal/config"
)

// Descriptor is the installer's view of a supervised process definition.
// Arguments[0] is always the worker entry point; Executable is the
// interpreter that runs it.
type Descriptor struct {
	Label            string
	Executable       string
	Arguments        []string
	WorkingDirectory string
	KeepAlive        bool
	RunAtLoad        bool
	StdoutPath       string
	StderrPath       string
	Environment      map[string]string
}

// launchdPlist mirrors the keys launchd reads from a LaunchAgent file.
type launchdPlist struct {
	Label                string            `plist:"Label"`
	Program              string            `plist:"Program"`
	ProgramArguments     []string          `plist:"ProgramArguments"`
	WorkingDirectory     string            `plist:"WorkingDirectory"`
	KeepAlive            bool              `plist:"KeepAlive"`
	RunAtLoad            bool              `plist:"RunAtLoad"`
	StandardOutPath      string            `plist:"StandardOutPath"`
	StandardErrorPath    string            `plist:"StandardErrorPath"`
	EnvironmentVariables map[string]string `plist:"EnvironmentVariables,omitempty"`
}

// FromConfig renders a descriptor from the resolved configuration.
func FromConfig(cfg *config.Config) Descriptor {
	args := make([]string, 0, 1+len(cfg.Args))
	args = append(args, cfg.EntryPointPath())
	args = append(args, cfg.Args...)

	return Descriptor{
		Label:            cfg.Label,
		Executable:       cfg.InterpreterPath(),
		Arguments:        args,
		WorkingDirectory: cfg.WorkDir(),
		KeepAlive:        cfg.KeepAlive,
		RunAtLoad:        cfg.RunAtLoad,
		StdoutPath:       cfg.StdoutPath(),
		StderrPath:       cfg.StderrPath(),
		Environment:      cfg.Environ(),
	}
}

// Validate checks the invariants launchd relies on.
func (d Descriptor) Validate() error {
	if d.Label == "" {
		return errors.New("descriptor label is empty")
	}
	if len(d.Arguments) == 0 {
		return errors.New("descriptor has no arguments")
	}
	paths := map[string]string{
		"executable":        d.Executable,
		"entry point":       d.Arguments[0],
		"working directory": d.WorkingDirectory,
		"stdout path":       d.StdoutPath,
		"stderr path":       d.StderrPath,
	}
	for name, p := range paths {
		if !filepath.IsAbs(p) {
			return fmt.Errorf("descriptor %s %q is not absolute", name, p)
		}
	}
	return nil
}

func (d Descriptor) toPlist() launchdPlist {
	return launchdPlist{
		Label:                d.Label,
		Program:              d.Executable,
		ProgramArguments:     append([]string{d.Executable}, d.Arguments...),
		WorkingDirectory:     d.WorkingDirectory,
		KeepAlive:            d.KeepAlive,
		RunAtLoad:            d.RunAtLoad,
		StandardOutPath:      d.StdoutPath,
		StandardErrorPath:    d.StderrPath,
		EnvironmentVariables: d.Environment,
	}
}

// Encode writes d as an XML property list.
func Encode(w io.Writer, d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	enc := plist.NewEncoderForFormat(w, plist.XMLFormat)
	enc.Indent("\t")
	if err := enc.Encode(d.toPlist()); err != nil {
		return fmt.Errorf("failed to encode descriptor: %w", err)
	}
	return nil
}

// Marshal returns the XML property list for d.
func Marshal(d Descriptor) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, d); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Unmarshal parses a LaunchAgent property list. ProgramArguments[0] is taken
// as the executable when Program is absent, as launchd does.
func Unmarshal(data []byte) (Descriptor, error) {
	var p launchdPlist
	if _, err := plist.Unmarshal(data, &p); err != nil {
		return Descriptor{}, fmt.Errorf("failed to parse descriptor: %w", err)
	}

	d := Descriptor{
		Label:            p.Label,
		Executable:       p.Program,
		WorkingDirectory: p.WorkingDirectory,
		KeepAlive:        p.KeepAlive,
		RunAtLoad:        p.RunAtLoad,
		StdoutPath:       p.StandardOutPath,
		StderrPath:       p.StandardErrorPath,
		Environment:      p.EnvironmentVariables,
	}
	args := p.ProgramArguments
	if d.Executable == "" && len(args) > 0 {
		d.Executable = args[0]
	}
	if len(args) > 0 && args[0] == d.Executable {
		args = args[1:]
	}
	d.Arguments = append([]string(nil), args...)
	return d, nil
}

// ReadFile loads the descriptor stored at path.
func ReadFile(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, err
	}
	return Unmarshal(data)
}

// Exists reports whether a descriptor file is present at path.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
