package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"video-insights-go/internal/config"
	"video-insights-go/internal/logger"
	"video-insights-go/internal/pipeline"
	"video-insights-go/internal/processor"
	"video-insights-go/internal/search"
	"video-insights-go/internal/session"
	"video-insights-go/internal/synthesis"
	"video-insights-go/internal/workspace"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML or YAML config file")
	flag.Parse()

	providers, err := config.DefaultProviders(*configPath, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(providers...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	log.WithField("service", "video-insights-go").Info("starting service")

	ws, err := workspace.Open(cfg.WorkDir)
	if err != nil {
		log.WithError(err).Fatal("failed to open workspace")
	}
	defer ws.Close()

	srv := &server{
		log:      log,
		sessions: session.NewStore(6 * time.Hour),
	}
	if err := cfg.ValidateSearch(); err != nil {
		log.WithError(err).Warn("search disabled")
	} else {
		srv.search = search.NewClient(cfg.RapidAPI, log.Component("search"))
	}
	if err := cfg.ValidatePipeline(); err != nil {
		log.WithError(err).Warn("transcription pipeline disabled")
	} else {
		proc := processor.NewFromConfig(cfg, ws.Path, log)
		srv.pipeline = pipeline.New(proc, log.Component("pipeline"), pipeline.WithConcurrency(cfg.Concurrency))
	}
	if err := cfg.ValidateSynthesis(); err != nil {
		log.WithError(err).Warn("synthesis disabled")
	} else {
		srv.synthesis = synthesis.New(cfg.Synthesis, log.Component("synthesis"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go sweepSessions(ctx, srv.sessions, log)

	addr := fmt.Sprintf(":%s", cfg.Port)
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 15 * time.Second,
		// batches and synthesis run inside the request
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("server terminated")
	}
	log.Info("server stopped")
}

func sweepSessions(ctx context.Context, store *session.Store, log *logger.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := store.Sweep(now); n > 0 {
				log.WithField("dropped", n).Info("idle sessions removed")
			}
		}
	}
}
