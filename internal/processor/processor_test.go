package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"video-insights-go/internal/conversion"
	"video-insights-go/internal/extractor"
	"video-insights-go/internal/fetcher"
	"video-insights-go/internal/logger"
	"video-insights-go/internal/types"
)

type fakeConverter struct {
	link string
	err  error
	ids  []string
}

func (f *fakeConverter) Poll(ctx context.Context, itemID string) (types.ConversionJob, error) {
	f.ids = append(f.ids, itemID)
	if f.err != nil {
		return types.ConversionJob{ItemID: itemID, State: types.ConversionFailed}, f.err
	}
	return types.ConversionJob{ItemID: itemID, State: types.ConversionReady, ResultURL: f.link, AttemptsMade: 1}, nil
}

type fakeFetcher struct {
	dir     string
	err     error
	fetched []*fetcher.Artifact
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*fetcher.Artifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(f.dir, "media.mp3")
	if err := os.WriteFile(path, []byte(url), 0o644); err != nil {
		return nil, err
	}
	a := fetcher.NewArtifact(path)
	f.fetched = append(f.fetched, a)
	return a, nil
}

type fakeTranscoder struct {
	dir string
	err error
	out []*fetcher.Artifact
}

func (f *fakeTranscoder) Transcode(ctx context.Context, in *fetcher.Artifact) (*fetcher.Artifact, error) {
	defer in.Release()
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(f.dir, "speech.ogg")
	if err := os.WriteFile(path, []byte("ogg"), 0o644); err != nil {
		return nil, err
	}
	a := fetcher.NewArtifact(path)
	f.out = append(f.out, a)
	return a, nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, in *fetcher.Artifact) (string, error) {
	defer in.Release()
	return f.text, f.err
}

func noFilesLeft(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("transient files left behind: %v", entries)
	}
}

func TestProcessSuccess(t *testing.T) {
	dir := t.TempDir()
	conv := &fakeConverter{link: "https://cdn/L"}
	p := New(conv, &fakeFetcher{dir: dir}, &fakeTranscoder{dir: dir}, &fakeTranscriber{text: "hello"},
		logger.Discard().Component("processor"))

	rec, err := p.Process(context.Background(), 0, types.SelectedItem{Reference: "https://x/watch?v=AAAAAAAAAAA", Title: "T1"})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	want := types.TranscriptRecord{Title: "T1", Reference: "https://x/watch?v=AAAAAAAAAAA", Text: "hello"}
	if rec != want {
		t.Errorf("record = %+v, want %+v", rec, want)
	}
	if len(conv.ids) != 1 || conv.ids[0] != "AAAAAAAAAAA" {
		t.Errorf("polled ids = %v", conv.ids)
	}
	noFilesLeft(t, dir)
}

func TestProcessFailureStages(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		reference string
		conv      error
		fetch     error
		transcode error
		transcr   error
		wantStage types.Stage
		wantErr   error
	}{
		{name: "extract", reference: "not a link", wantStage: types.StageExtract, wantErr: extractor.ErrNotRecognized},
		{name: "convert", conv: conversion.ErrConversionTimedOut, wantStage: types.StageConvert, wantErr: conversion.ErrConversionTimedOut},
		{name: "fetch", fetch: boom, wantStage: types.StageFetch, wantErr: boom},
		{name: "transcode", transcode: boom, wantStage: types.StageTranscode, wantErr: boom},
		{name: "transcribe", transcr: boom, wantStage: types.StageTranscribe, wantErr: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			ref := tt.reference
			if ref == "" {
				ref = "https://youtu.be/BBBBBBBBBBB"
			}
			p := New(
				&fakeConverter{link: "https://cdn/L", err: tt.conv},
				&fakeFetcher{dir: dir, err: tt.fetch},
				&fakeTranscoder{dir: dir, err: tt.transcode},
				&fakeTranscriber{text: "x", err: tt.transcr},
				logger.Discard().Component("processor"),
			)

			_, err := p.Process(context.Background(), 4, types.SelectedItem{Reference: ref})
			var f types.ItemFailure
			if !errors.As(err, &f) {
				t.Fatalf("error = %v, want ItemFailure", err)
			}
			if f.Stage != tt.wantStage || f.Index != 4 {
				t.Errorf("failure = %+v", f)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error chain = %v, want %v", err, tt.wantErr)
			}
			noFilesLeft(t, dir)
		})
	}
}
