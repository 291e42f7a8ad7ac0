package logtail

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"autoresponder/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
}

func TestTail(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		n       int
		want    []string
	}{
		{"last two", "a\nb\nc\n", 2, []string{"b", "c"}},
		{"more than available", "a\nb\n", 10, []string{"a", "b"}},
		{"no trailing newline", "a\nb\nc", 2, []string{"b", "c"}},
		{"empty file", "", 5, nil},
		{"zero lines", "a\n", 0, nil},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, fmt.Sprintf("log%d", i))
			writeFile(t, path, tt.content)

			got, err := Tail(path, tt.n)
			if err != nil {
				t.Fatalf("Tail failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tail() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTail_SpansChunks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.log")

	var b strings.Builder
	for i := 0; i < 5000; i++ {
		fmt.Fprintf(&b, "line %04d padding padding padding\n", i)
	}
	writeFile(t, path, b.String())

	got, err := Tail(path, 3)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	want := []string{
		"line 4997 padding padding padding",
		"line 4998 padding padding padding",
		"line 4999 padding padding padding",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tail() = %q, want %q", got, want)
	}

	got, err = Tail(path, 400)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(got) != 400 || got[0] != "line 4600 padding padding padding" {
		t.Errorf("Tail(400) first = %q, len %d", got[0], len(got))
	}
}

func TestTail_Missing(t *testing.T) {
	_, err := Tail(filepath.Join(t.TempDir(), "nope.log"), 5)
	if !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestSources_WorkerLogOnlyWhenPresent(t *testing.T) {
	cfg := config.DefaultConfig(t.TempDir())

	srcs := Sources(cfg)
	if len(srcs) != 2 || srcs[0].Name != "stdout" || srcs[1].Name != "stderr" {
		t.Fatalf("Sources() = %+v", srcs)
	}

	if err := os.MkdirAll(cfg.LogsPath(), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(cfg.LogsPath(), WorkerLog), "started\n")

	srcs = Sources(cfg)
	if len(srcs) != 3 || srcs[2].Name != "bot" {
		t.Errorf("Sources() = %+v", srcs)
	}
}

func TestPrint(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "stdout.log")
	writeFile(t, out, "one\ntwo\nthree\n")

	var buf bytes.Buffer
	err := Print(&buf, []Source{
		{Name: "stdout", Path: out},
		{Name: "stderr", Path: filepath.Join(dir, "stderr.log")},
	}, 2)
	if err != nil {
		t.Fatalf("Print failed: %v", err)
	}

	got := buf.String()
	for _, want := range []string{"==> stdout", "two\nthree\n", "==> stderr", "(no output yet)"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "one") {
		t.Errorf("output should only hold the last lines:\n%s", got)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, buf *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(buf.String(), want) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q, got:\n%s", want, buf.String())
}

func startFollower(t *testing.T, srcs ...Source) (*syncBuffer, func()) {
	t.Helper()
	f, err := NewFollower(srcs)
	if err != nil {
		t.Fatalf("NewFollower failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	buf := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- f.Run(ctx, buf)
	}()

	return buf, func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
	}
}

func TestFollow_AppendedLines(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "stdout.log")
	errLog := filepath.Join(dir, "stderr.log")
	writeFile(t, out, "old line\n")
	writeFile(t, errLog, "")

	buf, stop := startFollower(t, Source{Name: "stdout", Path: out}, Source{Name: "stderr", Path: errLog})
	defer stop()

	appendFile(t, out, "hello\n")
	appendFile(t, errLog, "boom\n")

	waitFor(t, buf, "[stdout] hello\n")
	waitFor(t, buf, "[stderr] boom\n")
	if strings.Contains(buf.String(), "old line") {
		t.Errorf("existing content should not be replayed:\n%s", buf.String())
	}
}

func TestFollow_PartialLineHeldUntilComplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stdout.log")
	writeFile(t, path, "")

	buf, stop := startFollower(t, Source{Name: "stdout", Path: path})
	defer stop()

	appendFile(t, path, "first")
	appendFile(t, path, " half\nnext\n")

	waitFor(t, buf, "[stdout] next\n")
	if !strings.Contains(buf.String(), "[stdout] first half\n") {
		t.Errorf("partial line not joined:\n%s", buf.String())
	}
}

func TestFollow_Truncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stdout.log")
	writeFile(t, path, "a fairly long line that was already there\n")

	buf, stop := startFollower(t, Source{Name: "stdout", Path: path})
	defer stop()

	writeFile(t, path, "fresh\n")
	waitFor(t, buf, "[stdout] fresh\n")
}

func TestFollow_FileCreatedLater(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")

	buf, stop := startFollower(t, Source{Name: "bot", Path: path})
	defer stop()

	appendFile(t, path, "worker started\n")
	waitFor(t, buf, "[bot] worker started\n")
}

func TestFollow_ReturnsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stdout.log")
	writeFile(t, path, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Follow(ctx, &syncBuffer{}, Source{Name: "stdout", Path: path}); err != nil {
		t.Errorf("Follow returned %v", err)
	}
}

func TestNewFollower_MissingDirectory(t *testing.T) {
	_, err := NewFollower([]Source{{Name: "stdout", Path: filepath.Join(t.TempDir(), "nope", "stdout.log")}})
	if err == nil {
		t.Error("expected error for a missing directory")
	}
}
