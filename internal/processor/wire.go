package processor

import (
	"video-insights-go/internal/config"
	"video-insights-go/internal/conversion"
	"video-insights-go/internal/fetcher"
	"video-insights-go/internal/logger"
	"video-insights-go/internal/transcoder"
	"video-insights-go/internal/transcription"
)

// NewFromConfig assembles the production stage chain. Transient files are
// created through newPath.
func NewFromConfig(cfg config.Config, newPath fetcher.PathFunc, log *logger.Logger) *Processor {
	return New(
		conversion.NewPoller(cfg.RapidAPI, log.Component("conversion")),
		fetcher.New(newPath, cfg.FetchTimeout, log.Component("fetcher")),
		transcoder.New(cfg.FFmpegPath, transcoder.ExecRunner{}, newPath, log.Component("transcoder")),
		transcription.New(cfg.Transcription, log.Component("transcription")),
		log.Component("processor"),
	)
}
