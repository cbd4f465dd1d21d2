package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"video-insights-go/internal/logger"
)

func pathsIn(dir string) PathFunc {
	n := 0
	return func(prefix, ext string) string {
		n++
		return filepath.Join(dir, prefix+string(rune('a'+n))+ext)
	}
}

func TestFetchWritesArtifact(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ID3-audio-bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := New(pathsIn(dir), time.Minute, logger.Discard().Component("fetcher"))

	art, err := f.Fetch(context.Background(), srv.URL+"/a.mp3")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	data, err := os.ReadFile(art.Path)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if string(data) != "ID3-audio-bytes" || art.Size != int64(len(data)) {
		t.Errorf("artifact = %q size %d", data, art.Size)
	}

	if err := art.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(art.Path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("artifact not deleted, stat err = %v", err)
	}
	if err := art.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

func TestFetchNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "link expired", http.StatusForbidden)
	}))
	defer srv.Close()

	dir := t.TempDir()
	f := New(pathsIn(dir), time.Minute, logger.Discard().Component("fetcher"))

	_, err := f.Fetch(context.Background(), srv.URL)
	var fErr *FetchError
	if !errors.As(err, &fErr) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if fErr.StatusCode != http.StatusForbidden || fErr.Body != "link expired" {
		t.Errorf("FetchError = %+v", fErr)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("no file should be left behind, found %d", len(entries))
	}
}

func TestFetchTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := New(pathsIn(t.TempDir()), time.Second, logger.Discard().Component("fetcher"))
	_, err := f.Fetch(context.Background(), url)
	var fErr *FetchError
	if !errors.As(err, &fErr) || fErr.Err == nil {
		t.Fatalf("error = %v, want transport *FetchError", err)
	}
}
