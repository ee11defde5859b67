package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/pipeline"
)

// recordingRunner collects the paths it was asked to process.
type recordingRunner struct {
	mu    sync.Mutex
	paths []string
	seen  chan string
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{seen: make(chan string, 16)}
}

func (r *recordingRunner) Run(ctx context.Context, path string) pipeline.Outcome {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.seen <- path
	return pipeline.Converted
}

func (r *recordingRunner) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func startLoop(t *testing.T, dir string, r Runner) (cancel func(), wait func() error) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	l := New(dir, r, WithSettleDelay(10*time.Millisecond))
	go func() { errc <- l.Run(ctx) }()
	// Let the watcher subscribe before the test writes files.
	time.Sleep(200 * time.Millisecond)
	return stop, func() error { return <-errc }
}

func awaitRuns(t *testing.T, r *recordingRunner, n int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-r.seen:
		case <-deadline:
			t.Fatalf("timed out waiting for %d runs, got %d", n, len(r.snapshot()))
		}
	}
}

// Two files dropped in quick succession are both dispatched.
func TestLoopDispatchesCreatedFiles(t *testing.T) {
	dir := t.TempDir()
	r := newRecordingRunner()
	cancel, wait := startLoop(t, dir, r)
	defer wait()
	defer cancel()

	for _, name := range []string{"a.csv", "b.csv"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("name;age\nx;1\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	awaitRuns(t, r, 2)

	got := map[string]bool{}
	for _, p := range r.snapshot() {
		got[filepath.Base(p)] = true
	}
	if !got["a.csv"] || !got["b.csv"] {
		t.Fatalf("dispatched = %v, want a.csv and b.csv", got)
	}
}

func TestLoopIgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	r := newRecordingRunner()
	cancel, wait := startLoop(t, dir, r)
	defer wait()
	defer cancel()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "real.csv"), []byte("name\nx\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	awaitRuns(t, r, 1)

	paths := r.snapshot()
	if len(paths) != 1 || filepath.Base(paths[0]) != "real.csv" {
		t.Fatalf("dispatched = %v, want only real.csv", paths)
	}
}

func TestLoopStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	r := newRecordingRunner()
	cancel, wait := startLoop(t, dir, r)

	cancel()
	done := make(chan error, 1)
	go func() { done <- wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v on clean shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("loop did not stop after cancel")
	}
}

// The conversion-complete flag is never set during normal operation.
func TestLoopDoneStaysFalse(t *testing.T) {
	dir := t.TempDir()
	r := newRecordingRunner()
	l := New(dir, r)
	if l.Done() {
		t.Fatalf("Done = true before any run")
	}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()
	time.Sleep(200 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "f.csv"), []byte("a\n1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	awaitRuns(t, r, 1)
	if l.Done() {
		t.Fatalf("Done = true after a successful run; the loop runs until interrupted")
	}
	cancel()
	<-errc
}

func TestLoopMissingDir(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "absent"), newRecordingRunner())
	if err := l.Run(context.Background()); err == nil {
		t.Fatalf("expected error for missing watch directory")
	}
}
