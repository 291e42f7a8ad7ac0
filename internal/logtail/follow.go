package logtail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"autoresponder/internal/logger"
)

// Follower streams lines appended to a set of log files. Each line is
// written as "[name] line".
type Follower struct {
	watcher *fsnotify.Watcher
	streams []*stream
}

type stream struct {
	src     Source
	offset  int64
	partial []byte
	wake    chan struct{}
}

// NewFollower starts watching the directories of srcs. Output begins at
// each file's current end, so lines written after NewFollower returns are
// never missed. Files that do not exist yet are followed from their start
// once created.
func NewFollower(srcs []Source) (*Follower, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	f := &Follower{watcher: w}
	dirs := make(map[string]bool)
	for _, src := range srcs {
		src.Path = filepath.Clean(src.Path)
		s := &stream{src: src, wake: make(chan struct{}, 1)}
		if info, err := os.Stat(src.Path); err == nil {
			s.offset = info.Size()
		}
		f.streams = append(f.streams, s)

		dir := filepath.Dir(src.Path)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	return f, nil
}

// Run copies new lines to out until ctx is cancelled. The watcher is
// closed when Run returns.
func (f *Follower) Run(ctx context.Context, out io.Writer) error {
	log := logger.WithComponent("logtail")
	defer f.watcher.Close()

	lw := &lockedWriter{w: out}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return f.dispatch(ctx)
	})
	for _, s := range f.streams {
		s := s
		log.Debug().Str("path", s.src.Path).Int64("offset", s.offset).Msg("Following log")
		g.Go(func() error {
			return s.follow(ctx, lw)
		})
	}

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// dispatch routes watcher events to the stream that owns the file.
func (f *Follower) dispatch(ctx context.Context) error {
	log := logger.WithComponent("logtail")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-f.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Clean(event.Name)
			for _, s := range f.streams {
				if s.src.Path == name {
					s.notify()
				}
			}

		case err, ok := <-f.watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("Log watcher error")
		}
	}
}

func (s *stream) notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *stream) follow(ctx context.Context, out io.Writer) error {
	log := logger.WithComponent("logtail")

	// Catch up once in case the file changed before the first event.
	if err := s.drain(out); err != nil {
		log.Warn().Err(err).Str("path", s.src.Path).Msg("Failed to read log")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
			if err := s.drain(out); err != nil {
				log.Warn().Err(err).Str("path", s.src.Path).Msg("Failed to read log")
			}
		}
	}
}

// drain writes every complete line past the current offset. A file that
// shrank was truncated or rotated and is read again from the start.
func (s *stream) drain(out io.Writer) error {
	f, err := os.Open(s.src.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < s.offset {
		s.offset = 0
		s.partial = nil
	}
	if info.Size() == s.offset {
		return nil
	}

	data := make([]byte, info.Size()-s.offset)
	n, err := f.ReadAt(data, s.offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	s.offset += int64(n)

	buf := append(s.partial, data[:n]...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		if _, err := fmt.Fprintf(out, "[%s] %s\n", s.src.Name, bytes.TrimRight(buf[:i], "\r")); err != nil {
			return err
		}
		buf = buf[i+1:]
	}
	s.partial = append([]byte(nil), buf...)
	return nil
}

// Follow prints lines appended to srcs until ctx is cancelled.
func Follow(ctx context.Context, out io.Writer, srcs ...Source) error {
	f, err := NewFollower(srcs)
	if err != nil {
		return err
	}
	return f.Run(ctx, out)
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
