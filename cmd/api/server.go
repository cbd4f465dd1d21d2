package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"video-insights-go/internal/knowledgebase"
	"video-insights-go/internal/logger"
	"video-insights-go/internal/search"
	"video-insights-go/internal/session"
	"video-insights-go/internal/synthesis"
	"video-insights-go/internal/types"
)

const sessionHeader = "X-Session-ID"

type searcher interface {
	Search(ctx context.Context, query, region, language string) ([]search.Result, error)
}

type batchRunner interface {
	Run(ctx context.Context, items []types.SelectedItem) (types.BatchReport, error)
}

type synthesizer interface {
	Synthesize(ctx context.Context, req synthesis.Request) (synthesis.Outcome, error)
}

type server struct {
	log       *logger.Logger
	sessions  *session.Store
	search    searcher
	pipeline  batchRunner
	synthesis synthesizer
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("POST /batch", s.handleBatch)
	mux.HandleFunc("POST /synthesize", s.handleSynthesize)
	mux.HandleFunc("POST /session", s.handleNewSession)
	mux.HandleFunc("GET /session/selection", s.handleSelection)
	mux.HandleFunc("POST /session/toggle", s.handleToggle)
	mux.HandleFunc("DELETE /session/selection", s.handleClearSelection)
	mux.HandleFunc("GET /session/document", s.handleDocument)
	mux.HandleFunc("GET /session/knowledge-base", s.handleKnowledgeBase)
	return mux
}

// health
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.log.WithRequest(r).Debug("health check")
	fmt.Fprint(w, "ok")
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "search")
	if s.search == nil {
		writeError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	q := r.URL.Query()
	query := q.Get("query")
	if strings.TrimSpace(query) == "" {
		reqLog.Warn("missing query")
		writeError(w, http.StatusBadRequest, "missing query")
		return
	}

	results, err := s.search.Search(r.Context(), query, q.Get("geo"), q.Get("lang"))
	if err != nil {
		reqLog.WithField("error", err.Error()).Warn("search failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results}, reqLog)
}

type batchRequest struct {
	Items []types.SelectedItem `json:"items"`
}

func (s *server) handleBatch(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "batch")
	if s.pipeline == nil {
		writeError(w, http.StatusServiceUnavailable, "transcription pipeline is not configured")
		return
	}

	var req batchRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	sess := s.sessions.Get(r.Header.Get(sessionHeader))
	w.Header().Set(sessionHeader, sess.ID())
	items := req.Items
	if len(items) == 0 {
		items = sess.Selection()
	}
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "no items given and nothing selected")
		return
	}
	reqLog = reqLog.WithFields(logrus.Fields{"session_id": sess.ID(), "items": len(items)})
	reqLog.Info("batch request received")

	report, err := s.pipeline.Run(r.Context(), items)
	if err != nil {
		reqLog.WithField("error", err.Error()).Warn("batch interrupted")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	sess.SetRecords(report.Records)
	writeJSON(w, http.StatusOK, report, reqLog)
}

type synthesizeRequest struct {
	Keyword       string `json:"keyword"`
	Language      string `json:"language"`
	Transcription string `json:"transcription"`
}

func (s *server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "synthesize")
	if s.synthesis == nil {
		writeError(w, http.StatusServiceUnavailable, "synthesis is not configured")
		return
	}

	var req synthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sess := s.sessions.Get(r.Header.Get(sessionHeader))
	w.Header().Set(sessionHeader, sess.ID())
	if req.Transcription == "" {
		req.Transcription = sess.Document()
	}

	out, err := s.synthesis.Synthesize(r.Context(), synthesis.Request{
		Keyword:       req.Keyword,
		Language:      req.Language,
		Transcription: req.Transcription,
	})
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, synthesis.ErrInvalidRequest):
			status = http.StatusBadRequest
		case errors.Is(err, synthesis.ErrSynthesisTimedOut):
			status = http.StatusGatewayTimeout
		}
		resp := map[string]any{"state": out.State, "error": err.Error()}
		var sErr *synthesis.SynthesisError
		if errors.As(err, &sErr) && sErr.Body != "" {
			resp["raw_response"] = sErr.Body
		}
		reqLog.WithField("error", err.Error()).Warn("synthesis failed")
		writeJSON(w, status, resp, reqLog)
		return
	}

	sess.SetKnowledgeBase(out.Result)
	writeJSON(w, http.StatusOK, map[string]any{
		"state":      out.State,
		"elapsed_ms": out.Elapsed.Milliseconds(),
		"result":     out.Result.Payload,
	}, reqLog)
}

func (s *server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get("")
	w.Header().Set(sessionHeader, sess.ID())
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": sess.ID()}, s.log.WithRequest(r))
}

func (s *server) handleSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"selection": sess.Selection()}, s.log.WithRequest(r))
}

func (s *server) handleToggle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var item types.SelectedItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil || strings.TrimSpace(item.Reference) == "" {
		writeError(w, http.StatusBadRequest, "body must be an item with a url")
		return
	}
	selected := sess.Toggle(item)
	writeJSON(w, http.StatusOK, map[string]any{
		"selected":  selected,
		"selection": sess.Selection(),
	}, s.log.WithRequest(r))
}

func (s *server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sess.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	fmt.Fprint(w, sess.Document())
}

func (s *server) handleKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).WithField("handler", "knowledge-base")
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	res, ok := sess.KnowledgeBase()
	if !ok {
		writeError(w, http.StatusNotFound, "no knowledge base in this session")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" || format == "raw" {
		w.Header().Set("Content-Type", "application/json")
		w.Write(res.Payload)
		return
	}

	kb, err := knowledgebase.FromResult(res)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	switch format {
	case "json":
		writeJSON(w, http.StatusOK, kb, reqLog)
	case "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		fmt.Fprint(w, kb.Markdown())
	case "graph":
		writeJSON(w, http.StatusOK, kb.Graph(), reqLog)
	default:
		writeError(w, http.StatusBadRequest, "format must be raw, json, markdown or graph")
	}
}

func (s *server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.Header.Get(sessionHeader)
	sess, ok := s.sessions.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
		return nil, false
	}
	return sess, true
}

func writeJSON(w http.ResponseWriter, status int, v any, log *logrus.Entry) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.WithField("error", err.Error()).Error("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
