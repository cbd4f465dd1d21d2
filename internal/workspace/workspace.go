package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrBusy is returned when another process holds the workspace lock.
var ErrBusy = errors.New("workspace is locked by another run")

const lockName = ".vikb.lock"

// Workspace is the transient directory that holds fetched and transcoded
// artifacts for the duration of a run.
type Workspace struct {
	dir   string
	owned bool
	lock  *flock.Flock

	mu     sync.Mutex
	closed bool
}

// Open locks dir for exclusive use. An empty dir creates a fresh temporary
// directory which Close removes again.
func Open(dir string) (*Workspace, error) {
	owned := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "vikb-*")
		if err != nil {
			return nil, fmt.Errorf("create workspace: %w", err)
		}
		dir = tmp
		owned = true
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace %s: %w", dir, err)
	}

	lock := flock.New(filepath.Join(dir, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", dir, ErrBusy)
	}
	return &Workspace{dir: dir, owned: owned, lock: lock}, nil
}

func (w *Workspace) Dir() string { return w.dir }

// Path returns a fresh, unique file path inside the workspace.
func (w *Workspace) Path(prefix, ext string) string {
	return filepath.Join(w.dir, prefix+"-"+uuid.New().String()+ext)
}

// Close releases the lock and removes the directory when Open created it.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if err := w.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("release workspace lock: %w", err))
	}
	if w.owned {
		if err := os.RemoveAll(w.dir); err != nil {
			errs = append(errs, err)
		}
	} else {
		_ = os.Remove(filepath.Join(w.dir, lockName))
	}
	return errors.Join(errs...)
}
