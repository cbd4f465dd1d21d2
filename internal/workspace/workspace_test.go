package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenTemporary(t *testing.T) {
	ws, err := Open("")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	dir := ws.Dir()
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("workspace dir missing: %v", err)
	}

	p := ws.Path("artifact", ".mp3")
	if filepath.Dir(p) != dir || !strings.HasSuffix(p, ".mp3") {
		t.Errorf("Path() = %q", p)
	}
	if ws.Path("artifact", ".mp3") == p {
		t.Error("Path() should be unique")
	}

	if err := ws.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temporary workspace not removed, stat err = %v", err)
	}
	if err := ws.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestOpenExistingIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := Open(dir); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Open() error = %v, want ErrBusy", err)
	}

	if err := first.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("caller-owned dir should survive Close: %v", err)
	}

	again, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() after Close error = %v", err)
	}
	_ = again.Close()
}
