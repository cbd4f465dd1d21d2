// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"video-insights-go/internal/aggregator"
	"video-insights-go/internal/types"
)

// ItemProcessor handles one item. A failure must be a types.ItemFailure.
type ItemProcessor interface {
	Process(ctx context.Context, index int, item types.SelectedItem) (types.TranscriptRecord, error)
}

// Progress is reported after each item finishes.
type Progress struct {
	RunID string
	Index int
	Done  int
	Total int
	Item  types.SelectedItem
	Err   error
}

type Pipeline struct {
	proc        ItemProcessor
	concurrency int
	onProgress  func(Progress)
	log         *logrus.Entry
}

type Option func(*Pipeline)

// WithConcurrency bounds the number of items processed at once. 1 is sequential.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithProgress registers a callback invoked once per finished item. Calls are
// serialized.
func WithProgress(fn func(Progress)) Option {
	return func(p *Pipeline) { p.onProgress = fn }
}

func New(proc ItemProcessor, log *logrus.Entry, opts ...Option) *Pipeline {
	p := &Pipeline{proc: proc, concurrency: 1, log: log}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type outcome struct {
	ran    bool
	record types.TranscriptRecord
	err    error
}

// Run processes every item. Item failures are collected in the report and do
// not stop the batch. The returned error is non-nil only when ctx ends the run
// early; the report then covers the items that finished.
func (p *Pipeline) Run(ctx context.Context, items []types.SelectedItem) (types.BatchReport, error) {
	report := types.BatchReport{
		RunID:     uuid.New().String(),
		Total:     len(items),
		Records:   []types.TranscriptRecord{},
		Failures:  []types.ItemFailure{},
		StartedAt: time.Now().UTC(),
	}
	log := p.log.WithFields(logrus.Fields{"run_id": report.RunID, "items": len(items)})
	log.Info("batch started")

	results := make([]outcome, len(items))
	var mu sync.Mutex
	done := 0
	finish := func(i int, o outcome) {
		results[i] = o
		mu.Lock()
		defer mu.Unlock()
		done++
		if p.onProgress != nil {
			p.onProgress(Progress{RunID: report.RunID, Index: i, Done: done, Total: len(items), Item: items[i], Err: o.err})
		}
	}

	if p.concurrency <= 1 {
		for i, item := range items {
			if ctx.Err() != nil {
				break
			}
			rec, err := p.proc.Process(ctx, i, item)
			finish(i, outcome{ran: true, record: rec, err: err})
		}
	} else {
		sem := newSemaphore(p.concurrency)
		var wg sync.WaitGroup
		for i, item := range items {
			if err := sem.acquire(ctx); err != nil {
				break
			}
			wg.Add(1)
			go func(i int, item types.SelectedItem) {
				defer wg.Done()
				defer sem.release()
				rec, err := p.proc.Process(ctx, i, item)
				finish(i, outcome{ran: true, record: rec, err: err})
			}(i, item)
		}
		wg.Wait()
	}

	for i, o := range results {
		if !o.ran {
			continue
		}
		if o.err == nil {
			report.Records = append(report.Records, o.record)
			continue
		}
		var f types.ItemFailure
		if !errors.As(o.err, &f) {
			f = types.ItemFailure{Index: i, Item: items[i], Err: o.err}
		}
		report.Failures = append(report.Failures, f)
	}

	report.Document = aggregator.Combine(report.Records)
	report.FinishedAt = time.Now().UTC()

	fields := logrus.Fields{
		"succeeded":   report.Succeeded(),
		"failed":      report.Failed(),
		"duration_ms": report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	}
	if err := ctx.Err(); err != nil {
		log.WithFields(fields).WithField("error", err.Error()).Warn("batch cancelled")
		return report, err
	}
	log.WithFields(fields).Info("batch finished")
	return report, nil
}
