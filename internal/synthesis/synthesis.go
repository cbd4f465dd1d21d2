package synthesis

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"video-insights-go/internal/config"
	"video-insights-go/internal/types"
)

type State string

const (
	StatePreparing   State = "preparing"
	StateRequestSent State = "request_sent"
	StateSucceeded   State = "succeeded"
	StateFailed      State = "failed"
	StateTimedOut    State = "timed_out"
)

var (
	ErrSynthesisTimedOut = errors.New("synthesis timed out")
	ErrInvalidRequest    = errors.New("invalid synthesis request")
)

// SynthesisError is a failed synthesis call. Body is the raw response.
type SynthesisError struct {
	State      State
	StatusCode int
	Body       string
	Err        error
}

func (e *SynthesisError) Error() string {
	switch {
	case e.StatusCode != 0 && (e.StatusCode < 200 || e.StatusCode >= 300):
		return fmt.Sprintf("synthesis %s: endpoint returned %d: %s", e.State, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("synthesis %s: %v", e.State, e.Err)
	default:
		return fmt.Sprintf("synthesis %s: response is not a JSON object or array: %s", e.State, e.Body)
	}
}

func (e *SynthesisError) Unwrap() error { return e.Err }

type Request struct {
	Keyword       string
	Language      string
	Transcription string
}

// Outcome is the final state of one synthesis call.
type Outcome struct {
	State   State
	Result  types.KnowledgeBaseResult
	Elapsed time.Duration
}

type requestBody struct {
	Inputs struct {
		Keyword       string `json:"keyword"`
		Language      string `json:"language"`
		Transcription string `json:"transcription"`
	} `json:"inputs"`
	ResponseMode string `json:"response_mode"`
	User         string `json:"user"`
}

type Synthesizer struct {
	url        string
	apiKey     string
	clientID   string
	timeout    time.Duration
	httpClient *http.Client
	onState    func(State)
	log        *logrus.Entry
}

type Option func(*Synthesizer)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Synthesizer) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithStateHook observes every state the call passes through.
func WithStateHook(fn func(State)) Option {
	return func(s *Synthesizer) { s.onState = fn }
}

func New(cfg config.Synthesis, log *logrus.Entry, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		clientID:   cfg.ClientID,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		log:        log,
	}
	if s.timeout <= 0 {
		s.timeout = config.DefaultSynthesisTimeout
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Synthesize sends the document to the workflow endpoint once. It never
// retries; the caller decides whether to trigger it again.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (Outcome, error) {
	start := time.Now()
	out := Outcome{}
	enter := func(st State) {
		out.State = st
		out.Elapsed = time.Since(start)
		if s.onState != nil {
			s.onState(st)
		}
	}

	enter(StatePreparing)
	lang, err := NormalizeLanguage(req.Language)
	if err != nil {
		enter(StateFailed)
		return out, &SynthesisError{State: StateFailed, Err: err}
	}
	if strings.TrimSpace(req.Keyword) == "" || strings.TrimSpace(req.Transcription) == "" {
		enter(StateFailed)
		return out, &SynthesisError{State: StateFailed, Err: fmt.Errorf("%w: keyword and transcription are required", ErrInvalidRequest)}
	}

	var body requestBody
	body.Inputs.Keyword = strings.TrimSpace(req.Keyword)
	body.Inputs.Language = lang
	body.Inputs.Transcription = req.Transcription
	body.ResponseMode = "streaming"
	body.User = s.clientID
	payload, err := json.Marshal(body)
	if err != nil {
		enter(StateFailed)
		return out, &SynthesisError{State: StateFailed, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		enter(StateFailed)
		return out, &SynthesisError{State: StateFailed, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	log := s.log.WithFields(logrus.Fields{"keyword": body.Inputs.Keyword, "language": lang, "chars": len(req.Transcription)})
	enter(StateRequestSent)
	log.Info("synthesis request sent")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return s.transportFailure(ctx, enter, &out, log, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return s.transportFailure(ctx, enter, &out, log, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		enter(StateFailed)
		log.WithField("status", resp.StatusCode).Warn("synthesis rejected")
		return out, &SynthesisError{State: StateFailed, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	result, ok := decodePayload(raw)
	if !ok {
		enter(StateFailed)
		log.Warn("synthesis returned an unusable payload")
		return out, &SynthesisError{State: StateFailed, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	out.Result = types.KnowledgeBaseResult{Payload: result}
	enter(StateSucceeded)
	log.WithField("elapsed_ms", out.Elapsed.Milliseconds()).Info("synthesis complete")
	return out, nil
}

func (s *Synthesizer) transportFailure(ctx context.Context, enter func(State), out *Outcome, log *logrus.Entry, err error) (Outcome, error) {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		enter(StateTimedOut)
		log.WithField("timeout", s.timeout.String()).Warn("synthesis timed out")
		return *out, &SynthesisError{State: StateTimedOut, Err: fmt.Errorf("%w after %s", ErrSynthesisTimedOut, s.timeout)}
	}
	enter(StateFailed)
	log.WithField("error", err.Error()).Warn("synthesis request failed")
	return *out, &SynthesisError{State: StateFailed, Err: err}
}

// decodePayload accepts a JSON object or array, either as the whole body or
// as the final outputs of an event stream.
func decodePayload(raw []byte) (json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if isContainer(trimmed) {
		return json.RawMessage(trimmed), true
	}
	if outputs, ok := finalStreamOutputs(trimmed); ok {
		return outputs, true
	}
	return nil, false
}

func isContainer(b []byte) bool {
	if len(b) == 0 || (b[0] != '{' && b[0] != '[') {
		return false
	}
	return json.Valid(b)
}

type streamEvent struct {
	Event string `json:"event"`
	Data  struct {
		Status  string                     `json:"status"`
		Error   string                     `json:"error"`
		Outputs map[string]json.RawMessage `json:"outputs"`
	} `json:"data"`
}

// finalStreamOutputs reads "data: {...}" lines and returns the outputs of
// the last workflow_finished event. A single string output holding JSON is
// unwrapped.
func finalStreamOutputs(body []byte) (json.RawMessage, bool) {
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 64*1024), 32*1024*1024)

	var final *streamEvent
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		var ev streamEvent
		if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &ev); err != nil {
			continue
		}
		if ev.Event == "workflow_finished" {
			final = &ev
		}
	}
	if final == nil || final.Data.Status == "failed" || len(final.Data.Outputs) == 0 {
		return nil, false
	}

	if len(final.Data.Outputs) == 1 {
		for _, v := range final.Data.Outputs {
			var s string
			if json.Unmarshal(v, &s) == nil {
				inner := bytes.TrimSpace([]byte(stripFence(s)))
				if isContainer(inner) {
					return json.RawMessage(inner), true
				}
				return nil, false
			}
			if isContainer(bytes.TrimSpace(v)) {
				return bytes.TrimSpace(v), true
			}
		}
	}
	b, err := json.Marshal(final.Data.Outputs)
	if err != nil {
		return nil, false
	}
	return b, true
}

// stripFence removes a surrounding ```json fence.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}
