package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"video-insights-go/internal/config"
	"video-insights-go/internal/fetcher"
)

// ErrMissingText is returned when a 2xx answer carries no text field.
var ErrMissingText = errors.New("response has no text field")

// TranscriptionError is any failed transcription: a non-2xx answer, an
// unusable 2xx body, or a transport failure or timeout (StatusCode 0).
type TranscriptionError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TranscriptionError) Error() string {
	switch {
	case e.Err == nil:
		return fmt.Sprintf("transcription service returned %d: %s", e.StatusCode, e.Body)
	case e.StatusCode == 0:
		return fmt.Sprintf("transcription failed: %v", e.Err)
	default:
		return fmt.Sprintf("transcription failed (status %d): %v body=%s", e.StatusCode, e.Err, e.Body)
	}
}

func (e *TranscriptionError) Unwrap() error { return e.Err }

// Transient reports whether the upload may succeed if repeated.
func (e *TranscriptionError) Transient() bool {
	if e.Err != nil {
		return false
	}
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// verboseResponse is the subset of verbose_json we read.
type verboseResponse struct {
	Text     *string `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

type Transcriber struct {
	baseURL    string
	apiKey     string
	model      string
	timeout    time.Duration
	httpClient *http.Client
	newBackOff func() backoff.BackOff
	log        *logrus.Entry
}

type Option func(*Transcriber)

func WithHTTPClient(c *http.Client) Option {
	return func(t *Transcriber) {
		if c != nil {
			t.httpClient = c
		}
	}
}

// WithBackOff replaces the retry schedule for transient upload failures.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(t *Transcriber) { t.newBackOff = fn }
}

func New(cfg config.Transcription, log *logrus.Entry, opts ...Option) *Transcriber {
	t := &Transcriber{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		httpClient: &http.Client{},
		log:        log,
		newBackOff: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.MaxElapsedTime = 12 * time.Second
			return backoff.WithMaxRetries(bo, 3)
		},
	}
	if t.model == "" {
		t.model = config.DefaultTranscriptionModel
	}
	if t.timeout <= 0 {
		t.timeout = config.DefaultTranscriptionTimeout
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcribe uploads the artifact and returns the recognized text. The
// artifact is released whatever the outcome.
func (t *Transcriber) Transcribe(ctx context.Context, artifact *fetcher.Artifact) (string, error) {
	defer artifact.Release()

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	audio, err := os.ReadFile(artifact.Path)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}

	var out verboseResponse
	attempt := 0
	op := func() error {
		attempt++
		resp, err := t.upload(ctx, filepath.Base(artifact.Path), audio)
		if err != nil {
			var perm *backoff.PermanentError
			if errors.As(err, &perm) {
				return err
			}
			var tErr *TranscriptionError
			if (errors.As(err, &tErr) && !tErr.Transient()) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			t.log.WithFields(logrus.Fields{"attempt": attempt, "error": err.Error()}).Warn("transcription upload failed, retrying")
			return err
		}
		out = resp
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(t.newBackOff(), ctx)); err != nil {
		var tErr *TranscriptionError
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return "", &TranscriptionError{Err: fmt.Errorf("timed out after %s: %w", t.timeout, err)}
		case errors.As(err, &tErr):
			return "", tErr
		default:
			return "", &TranscriptionError{Err: err}
		}
	}
	text := strings.TrimSpace(*out.Text)

	t.log.WithFields(logrus.Fields{
		"attempts": attempt,
		"language": out.Language,
		"duration": out.Duration,
		"chars":    len(text),
	}).Info("transcription complete")
	return text, nil
}

func (t *Transcriber) upload(ctx context.Context, filename string, audio []byte) (verboseResponse, error) {
	var out verboseResponse

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return out, err
	}
	if _, err := part.Write(audio); err != nil {
		return out, err
	}
	_ = w.WriteField("model", t.model)
	_ = w.WriteField("response_format", "verbose_json")
	if err := w.Close(); err != nil {
		return out, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/audio/transcriptions", &b)
	if err != nil {
		return out, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return out, &TranscriptionError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, backoff.Permanent(&TranscriptionError{
			StatusCode: resp.StatusCode,
			Body:       string(body),
			Err:        fmt.Errorf("json decode error: %w", err),
		})
	}
	if out.Text == nil {
		return out, backoff.Permanent(&TranscriptionError{StatusCode: resp.StatusCode, Body: string(body), Err: ErrMissingText})
	}
	return out, nil
}
