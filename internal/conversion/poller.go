package conversion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"video-insights-go/internal/config"
	"video-insights-go/internal/types"
)

var (
	ErrConversionFailed    = errors.New("conversion failed")
	ErrConversionTimedOut  = errors.New("conversion timed out")
	ErrConversionTransport = errors.New("conversion status request failed")
	ErrConversionCancelled = errors.New("conversion polling cancelled")
)

// errStillProcessing is the only retryable outcome of a poll.
var errStillProcessing = errors.New("conversion still processing")

// ConversionError carries the final job snapshot and the provider detail.
type ConversionError struct {
	Kind   error
	Job    types.ConversionJob
	Detail string
	Err    error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("%v (item=%s attempts=%d)", e.Kind, e.Job.ItemID, e.Job.AttemptsMade)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Is(target error) bool { return target == e.Kind }

func (e *ConversionError) Unwrap() error { return e.Err }

// StatusResponse is the provider's status payload.
type StatusResponse struct {
	Status   string  `json:"status"`
	Link     string  `json:"link"`
	Msg      string  `json:"msg"`
	Title    string  `json:"title"`
	Progress float64 `json:"progress"`
}

type Poller struct {
	baseURL     string
	apiKey      string
	apiHost     string
	maxAttempts int
	interval    time.Duration
	httpClient  *http.Client
	log         *logrus.Entry
}

type Option func(*Poller)

// WithInterval overrides the delay between polls (tests).
func WithInterval(d time.Duration) Option {
	return func(p *Poller) { p.interval = d }
}

// WithMaxAttempts overrides the attempt budget (tests).
func WithMaxAttempts(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(p *Poller) {
		if c != nil {
			p.httpClient = c
		}
	}
}

func NewPoller(cfg config.RapidAPI, log *logrus.Entry, opts ...Option) *Poller {
	p := &Poller{
		baseURL:     strings.TrimRight(cfg.ConversionBaseURL, "/"),
		apiKey:      cfg.Key,
		apiHost:     cfg.ConversionHost,
		maxAttempts: config.ConversionMaxAttempts,
		interval:    config.ConversionPollInterval,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		log:         log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll queries the status endpoint until the job is ready, failed, or the
// attempt budget runs out. It returns the artifact URL on success. A transport
// or decode error ends polling immediately.
func (p *Poller) Poll(ctx context.Context, itemID string) (types.ConversionJob, error) {
	job := types.NewConversionJob(itemID)
	log := p.log.WithField("item_id", itemID)

	op := func() error {
		job.AttemptsMade++
		s, err := p.status(ctx, itemID)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(&ConversionError{Kind: ErrConversionCancelled, Err: ctx.Err()})
			}
			return backoff.Permanent(&ConversionError{Kind: ErrConversionTransport, Err: err})
		}

		log.WithFields(logrus.Fields{
			"attempt": job.AttemptsMade,
			"status":  s.Status,
		}).Debug("polling conversion")

		switch s.Status {
		case "ok":
			if s.Link == "" {
				return backoff.Permanent(&ConversionError{Kind: ErrConversionTransport, Detail: "status ok without link"})
			}
			_ = job.Transition(types.ConversionReady)
			job.ResultURL = s.Link
			return nil
		case "fail":
			_ = job.Transition(types.ConversionFailed)
			job.FailureReason = s.Msg
			return backoff.Permanent(&ConversionError{Kind: ErrConversionFailed, Detail: s.Msg})
		default:
			_ = job.Transition(types.ConversionProcessing)
			return errStillProcessing
		}
	}

	// WithMaxRetries treats 0 as unlimited, so a single attempt needs StopBackOff.
	var b backoff.BackOff = &backoff.StopBackOff{}
	if p.maxAttempts > 1 {
		b = backoff.WithMaxRetries(backoff.NewConstantBackOff(p.interval), uint64(p.maxAttempts-1))
	}
	b = backoff.WithContext(b, ctx)

	err := backoff.Retry(op, b)
	switch {
	case err == nil:
		log.WithField("attempts", job.AttemptsMade).Info("conversion ready")
		return *job, nil
	case errors.Is(err, errStillProcessing):
		_ = job.Transition(types.ConversionTimedOut)
		job.FailureReason = fmt.Sprintf("not ready after %d attempts", job.AttemptsMade)
		return *job, &ConversionError{Kind: ErrConversionTimedOut, Job: *job}
	}

	var cErr *ConversionError
	if errors.As(err, &cErr) {
		if cErr.Kind == ErrConversionCancelled {
			job.FailureReason = "cancelled"
		}
		if cErr.Kind == ErrConversionTransport {
			_ = job.Transition(types.ConversionFailed)
			if job.FailureReason == "" {
				job.FailureReason = cErr.Error()
			}
		}
		cErr.Job = *job
		return *job, cErr
	}

	// Cancelled between attempts. The job is left in its last
	// non-terminal state.
	job.FailureReason = "cancelled"
	return *job, &ConversionError{Kind: ErrConversionCancelled, Job: *job, Err: err}
}

func (p *Poller) status(ctx context.Context, itemID string) (StatusResponse, error) {
	var s StatusResponse

	u, err := url.Parse(p.baseURL + "/dl")
	if err != nil {
		return s, err
	}
	q := u.Query()
	q.Set("id", itemID)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return s, err
	}
	req.Header.Set("x-rapidapi-key", p.apiKey)
	req.Header.Set("x-rapidapi-host", p.apiHost)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return s, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return s, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s, fmt.Errorf("status endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, &s); err != nil {
		return s, fmt.Errorf("json decode error: %v body=%s", err, string(body))
	}
	return s, nil
}
