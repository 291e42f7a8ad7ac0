// Package logtail shows and follows the worker's log files.
package logtail

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"autoresponder/internal/config"
)

// WorkerLog is the file the worker writes through its own logging setup.
// Installation never creates it.
const WorkerLog = "bot.log"

// Source is a log file shown under a short stream name.
type Source struct {
	Name string
	Path string
}

// Sources returns the streams for cfg: the supervisor-captured stdout and
// stderr files, plus the worker log when it exists.
func Sources(cfg *config.Config) []Source {
	srcs := []Source{
		{Name: "stdout", Path: cfg.StdoutPath()},
		{Name: "stderr", Path: cfg.StderrPath()},
	}
	botLog := filepath.Join(cfg.LogsPath(), WorkerLog)
	if _, err := os.Stat(botLog); err == nil {
		srcs = append(srcs, Source{Name: "bot", Path: botLog})
	}
	return srcs
}

// tailChunk is how much is read backwards per step while looking for lines.
const tailChunk = 8 * 1024

// Tail returns the last n lines of the file at path. A missing trailing
// newline still counts as a line.
func Tail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := info.Size()
	offset := size
	var buf []byte
	for offset > 0 && bytes.Count(buf, []byte{'\n'}) <= n {
		step := int64(tailChunk)
		if step > offset {
			step = offset
		}
		offset -= step
		chunk := make([]byte, step)
		if _, err := f.ReadAt(chunk, offset); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		buf = append(chunk, buf...)
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(buf))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	// The first line may be partial when reading stopped mid-file; it is
	// dropped whenever enough complete lines follow it.
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

// Print writes the last n lines of every source, each under a header.
// Sources that do not exist yet are reported and skipped.
func Print(w io.Writer, srcs []Source, n int) error {
	for i, src := range srcs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "==> %s (%s) <==\n", src.Name, src.Path)

		lines, err := Tail(src.Path, n)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(w, "(no output yet)")
			continue
		}
		if err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}
