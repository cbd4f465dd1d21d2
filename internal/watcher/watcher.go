package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"video-insights-go/internal/types"
)

// BatchRunner runs one batch of items.
type BatchRunner interface {
	Run(ctx context.Context, items []types.SelectedItem) (types.BatchReport, error)
}

// Result describes one processed batch file.
type Result struct {
	Path   string
	Report types.BatchReport
	Err    error
}

type Watcher struct {
	dir        string
	runner     BatchRunner
	log        *logrus.Entry
	settle     time.Duration
	onDone     func(Result)
	fsw        *fsnotify.Watcher
	semaphore  chan struct{}
	wg         sync.WaitGroup
	inProgress sync.Map
}

type Option func(*Watcher)

// WithSettleDelay sets how long to wait after a create event before reading.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) { w.settle = d }
}

func WithMaxConcurrent(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.semaphore = make(chan struct{}, n)
		}
	}
}

// OnProcessed is called after each batch file finishes.
func OnProcessed(fn func(Result)) Option {
	return func(w *Watcher) { w.onDone = fn }
}

func New(dir string, runner BatchRunner, log *logrus.Entry, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:       dir,
		runner:    runner,
		log:       log.WithField("dir", dir),
		settle:    500 * time.Millisecond,
		fsw:       fsw,
		semaphore: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start processes batch files already waiting in the directory, then handles
// new ones until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	w.log.Info("inbox watcher started")

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		path := filepath.Join(w.dir, e.Name())
		if e.IsDir() || !IsBatchFile(path) {
			continue
		}
		if _, err := os.Stat(OutputPath(path)); err == nil {
			continue
		}
		if err := w.dispatch(ctx, path); err != nil {
			return w.drain(err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return w.drain(ctx.Err())

		case event, ok := <-w.fsw.Events:
			if !ok {
				return w.drain(fmt.Errorf("watcher events channel closed"))
			}
			// Only process CREATE events
			if event.Op&fsnotify.Create == 0 || !IsBatchFile(event.Name) {
				continue
			}
			w.log.WithField("file", filepath.Base(event.Name)).Info("batch file detected")
			if err := w.dispatch(ctx, event.Name); err != nil {
				return w.drain(err)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return w.drain(fmt.Errorf("watcher errors channel closed"))
			}
			w.log.WithField("error", err.Error()).Error("watcher error")
		}
	}
}

// drain waits for running batches so none outlive Start.
func (w *Watcher) drain(err error) error {
	w.log.Info("waiting for running batches")
	w.wg.Wait()
	w.log.Info("inbox watcher stopped")
	return err
}

func (w *Watcher) Stop() error {
	return w.fsw.Close()
}

func (w *Watcher) dispatch(ctx context.Context, path string) error {
	if _, busy := w.inProgress.LoadOrStore(path, struct{}{}); busy {
		return nil
	}
	select {
	case w.semaphore <- struct{}{}:
	case <-ctx.Done():
		w.inProgress.Delete(path)
		return ctx.Err()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.semaphore }()
		defer w.inProgress.Delete(path)

		if w.settle > 0 {
			select {
			case <-time.After(w.settle):
			case <-ctx.Done():
				return
			}
		}
		res := w.ProcessFile(ctx, path)
		if res.Err != nil {
			w.log.WithFields(logrus.Fields{"file": filepath.Base(path), "error": res.Err.Error()}).Error("batch file failed")
		}
		if w.onDone != nil {
			w.onDone(res)
		}
	}()
	return nil
}

// ProcessFile runs the batch described by path and writes the transcript and
// the run report next to it.
func (w *Watcher) ProcessFile(ctx context.Context, path string) Result {
	res := Result{Path: path}
	log := w.log.WithField("file", filepath.Base(path))

	items, err := LoadBatch(path)
	if err != nil {
		res.Err = err
		return res
	}

	report, err := w.runner.Run(ctx, items)
	res.Report = report
	if err != nil {
		res.Err = err
		return res
	}

	if err := os.WriteFile(OutputPath(path), []byte(report.Document), 0o644); err != nil {
		res.Err = fmt.Errorf("write transcript: %w", err)
		return res
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		res.Err = err
		return res
	}
	if err := os.WriteFile(ReportPath(path), data, 0o644); err != nil {
		res.Err = fmt.Errorf("write report: %w", err)
		return res
	}

	log.WithFields(logrus.Fields{
		"succeeded": report.Succeeded(),
		"failed":    report.Failed(),
	}).Info("batch file processed")
	return res
}
