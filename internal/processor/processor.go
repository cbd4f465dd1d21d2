// internal/processor/processor.go
package processor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"video-insights-go/internal/extractor"
	"video-insights-go/internal/fetcher"
	"video-insights-go/internal/types"
)

// Converter drives the remote conversion job for one item ID.
type Converter interface {
	Poll(ctx context.Context, itemID string) (types.ConversionJob, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Artifact, error)
}

// Transcoder consumes its input artifact.
type Transcoder interface {
	Transcode(ctx context.Context, in *fetcher.Artifact) (*fetcher.Artifact, error)
}

// Transcriber consumes its input artifact.
type Transcriber interface {
	Transcribe(ctx context.Context, in *fetcher.Artifact) (string, error)
}

// Processor runs the stage chain for a single item.
type Processor struct {
	converter   Converter
	fetcher     Fetcher
	transcoder  Transcoder
	transcriber Transcriber
	log         *logrus.Entry
}

func New(c Converter, f Fetcher, tc Transcoder, tr Transcriber, log *logrus.Entry) *Processor {
	return &Processor{converter: c, fetcher: f, transcoder: tc, transcriber: tr, log: log}
}

// Process turns one item into a transcript. Any failure is returned as a
// types.ItemFailure naming the stage; transient files never outlive the call.
func (p *Processor) Process(ctx context.Context, index int, item types.SelectedItem) (types.TranscriptRecord, error) {
	start := time.Now()
	log := p.log.WithFields(logrus.Fields{"item_index": index, "reference": item.Reference})

	fail := func(stage types.Stage, err error) (types.TranscriptRecord, error) {
		log.WithFields(logrus.Fields{
			"stage":       stage,
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Warn("item failed")
		return types.TranscriptRecord{}, types.ItemFailure{Index: index, Item: item, Stage: stage, Err: err}
	}

	id, err := extractor.ExtractID(item.Reference)
	if err != nil {
		return fail(types.StageExtract, err)
	}
	log = log.WithField("item_id", id)

	job, err := p.converter.Poll(ctx, id)
	if err != nil {
		return fail(types.StageConvert, err)
	}

	media, err := p.fetcher.Fetch(ctx, job.ResultURL)
	if err != nil {
		return fail(types.StageFetch, err)
	}
	defer media.Release()

	speech, err := p.transcoder.Transcode(ctx, media)
	if err != nil {
		return fail(types.StageTranscode, err)
	}
	defer speech.Release()

	text, err := p.transcriber.Transcribe(ctx, speech)
	if err != nil {
		return fail(types.StageTranscribe, err)
	}

	log.WithFields(logrus.Fields{
		"attempts":    job.AttemptsMade,
		"chars":       len(text),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("item transcribed")

	return types.TranscriptRecord{Title: item.Title, Reference: item.Reference, Text: text}, nil
}
