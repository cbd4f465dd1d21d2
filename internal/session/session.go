package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"video-insights-go/internal/aggregator"
	"video-insights-go/internal/types"
)

// Session holds one user's working state: the selection, the transcripts of
// the last batch, the combined document cache and the last knowledge base.
// All methods are safe for concurrent use.
type Session struct {
	id      string
	created time.Time

	mu        sync.RWMutex
	selection []types.SelectedItem
	records   []types.TranscriptRecord
	document  string
	docValid  bool
	kb        *types.KnowledgeBaseResult
	touched   time.Time
}

func New() *Session {
	now := time.Now().UTC()
	return &Session{id: uuid.New().String(), created: now, touched: now}
}

func (s *Session) ID() string { return s.id }

// Toggle selects item, or deselects it when its reference is already
// selected. It reports whether the item is selected afterwards.
func (s *Session) Toggle(item types.SelectedItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(item.Reference); i >= 0 {
		s.removeAt(i)
		return false
	}
	s.selection = append(s.selection, item)
	s.invalidate()
	return true
}

// Select adds item unless its reference is already selected.
func (s *Session) Select(item types.SelectedItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(item.Reference) >= 0 {
		return false
	}
	s.selection = append(s.selection, item)
	s.invalidate()
	return true
}

func (s *Session) Deselect(reference string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(reference)
	if i < 0 {
		return false
	}
	s.removeAt(i)
	return true
}

func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = nil
	s.invalidate()
}

func (s *Session) Selection() []types.SelectedItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.SelectedItem(nil), s.selection...)
}

// SetRecords replaces the transcript sequence.
func (s *Session) SetRecords(records []types.TranscriptRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]types.TranscriptRecord(nil), records...)
	s.invalidate()
}

func (s *Session) AppendRecord(r types.TranscriptRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	s.invalidate()
}

func (s *Session) Records() []types.TranscriptRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.TranscriptRecord(nil), s.records...)
}

// Document returns the combined document, rebuilding it if the records or
// the selection changed since the last call.
func (s *Session) Document() string {
	s.mu.RLock()
	if s.docValid {
		doc := s.document
		s.mu.RUnlock()
		return doc
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.docValid {
		s.document = aggregator.Combine(s.records)
		s.docValid = true
	}
	return s.document
}

func (s *Session) SetKnowledgeBase(kb types.KnowledgeBaseResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kb = &kb
	s.touched = time.Now().UTC()
}

func (s *Session) KnowledgeBase() (types.KnowledgeBaseResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.kb == nil {
		return types.KnowledgeBaseResult{}, false
	}
	return *s.kb, true
}

// Touch marks the session as in use at t.
func (s *Session) Touch(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.touched) {
		s.touched = t.UTC()
	}
}

// LastActive is the time of the last mutation or store access.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.touched
}

func (s *Session) indexOf(reference string) int {
	for i, it := range s.selection {
		if it.Reference == reference {
			return i
		}
	}
	return -1
}

func (s *Session) removeAt(i int) {
	s.selection = append(s.selection[:i:i], s.selection[i+1:]...)
	s.invalidate()
}

// invalidate must be called with mu held.
func (s *Session) invalidate() {
	s.docValid = false
	s.document = ""
	s.touched = time.Now().UTC()
}
