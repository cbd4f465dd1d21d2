package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// FetchError is returned for non-2xx responses and transport failures.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status code %d: %s", e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Artifact is a transient file owned by the pipeline. Release deletes it and
// is safe to call more than once.
type Artifact struct {
	Path string
	Size int64

	once sync.Once
	err  error
}

func NewArtifact(path string) *Artifact {
	return &Artifact{Path: path}
}

func (a *Artifact) Release() error {
	if a == nil {
		return nil
	}
	a.once.Do(func() {
		if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
			a.err = err
		}
	})
	return a.err
}

// PathFunc hands out destination paths for downloads.
type PathFunc func(prefix, ext string) string

type Fetcher struct {
	client  *http.Client
	newPath PathFunc
	log     *logrus.Entry
}

// New creates a Fetcher. timeout bounds the whole download.
func New(newPath PathFunc, timeout time.Duration, log *logrus.Entry) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		newPath: newPath,
		log:     log,
	}
}

// Fetch downloads url into a new transient file.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Artifact, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	art := NewArtifact(f.newPath("artifact", ".mp3"))
	file, err := os.Create(art.Path)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to create artifact file: %w", err)}
	}

	n, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		_ = art.Release()
		if copyErr == nil {
			copyErr = closeErr
		}
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to write artifact: %w", copyErr)}
	}
	art.Size = n

	f.log.WithFields(logrus.Fields{"path": art.Path, "bytes": n}).Debug("artifact fetched")
	return art, nil
}
