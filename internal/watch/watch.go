// Package watch subscribes to filesystem creation events for the input
// directory and dispatches each new CSV file to the ingestion pipeline.
//
// The loop processes events one at a time, synchronously: a slow database
// append blocks the next queued event, which is the intended single-writer
// behavior. The loop runs until its context is canceled by an external
// interrupt; after cancellation it stops accepting new events and lets the
// in-flight run finish before returning.
package watch

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/pipeline"
)

// Runner executes one pipeline run for a file path.
type Runner interface {
	Run(ctx context.Context, path string) pipeline.Outcome
}

// Loop owns the watch subscription and the dispatch worker.
type Loop struct {
	dir    string
	ext    string
	runner Runner

	// settle is how long the loop waits after a create event before reading
	// the file, so the producing process can finish writing it.
	settle time.Duration

	// done is the "conversion complete" flag. It is reported by Done but never
	// set during normal operation: the loop has no natural completion
	// condition and runs until interrupted.
	done atomic.Bool
}

// Option configures a Loop.
type Option func(*Loop)

// WithSettleDelay overrides the post-create settle delay (default 100ms).
func WithSettleDelay(d time.Duration) Option {
	return func(l *Loop) { l.settle = d }
}

// New builds a Loop watching dir for new ".csv" files and handing them to
// runner.
func New(dir string, runner Runner, opts ...Option) *Loop {
	l := &Loop{dir: dir, ext: ".csv", runner: runner, settle: 100 * time.Millisecond}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Done reports the conversion-complete flag.
func (l *Loop) Done() bool { return l.done.Load() }

// Run subscribes to creation events and processes them until ctx is canceled.
// It returns nil on a clean shutdown. Watch-level errors are logged, not
// fatal: the loop keeps watching for subsequent files.
func (l *Loop) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(l.dir); err != nil {
		return err
	}
	log.Printf("watch: watching %s", l.dir)

	// Events queue here while a pipeline run is in flight; the watch
	// subscription is the producer, the single worker the consumer.
	queue := make(chan string, 64)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		for {
			select {
			case <-gctx.Done():
				return nil
			case ev, ok := <-w.Events:
				if !ok {
					return nil
				}
				if !ev.Has(fsnotify.Create) || !l.wants(ev.Name) {
					continue
				}
				select {
				case queue <- ev.Name:
				case <-gctx.Done():
					return nil
				}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				log.Printf("watch: %v", err)
			}
		}
	})

	g.Go(func() error {
		for {
			if gctx.Err() != nil {
				return nil
			}
			select {
			case <-gctx.Done():
				return nil
			case path, ok := <-queue:
				if !ok {
					return nil
				}
				// Give the producer time to finish writing before reading.
				// The run itself is not cancelable mid-flight; shutdown waits
				// for it, so it gets a context detached from cancellation.
				time.Sleep(l.settle)
				outcome := l.runner.Run(context.WithoutCancel(ctx), path)
				log.Printf("watch: %s -> %s", path, outcome)
			}
		}
	})

	return g.Wait()
}

// wants reports whether path is a regular file with the watched extension.
func (l *Loop) wants(path string) bool {
	if !strings.EqualFold(filepath.Ext(path), l.ext) {
		return false
	}
	st, err := os.Stat(path)
	if err != nil {
		// Stat races with the producer; let the pipeline report the error.
		return true
	}
	return !st.IsDir()
}
