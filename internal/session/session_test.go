package session

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"video-insights-go/internal/aggregator"
	"video-insights-go/internal/types"
)

func TestToggle(t *testing.T) {
	s := New()
	item := types.SelectedItem{Reference: "https://youtu.be/AAAAAAAAAAA", Title: "A"}

	if !s.Toggle(item) {
		t.Fatal("first toggle should select")
	}
	if len(s.Selection()) != 1 {
		t.Fatalf("selection = %v", s.Selection())
	}
	if s.Toggle(item) {
		t.Fatal("second toggle should deselect")
	}
	if len(s.Selection()) != 0 {
		t.Fatalf("selection = %v", s.Selection())
	}
}

func TestSelectDeselect(t *testing.T) {
	s := New()
	a := types.SelectedItem{Reference: "a"}
	b := types.SelectedItem{Reference: "b"}

	s.Select(a)
	s.Select(b)
	if s.Select(a) {
		t.Error("duplicate select should be a no-op")
	}
	if !s.Deselect("a") || s.Deselect("a") {
		t.Error("deselect should succeed exactly once")
	}
	if sel := s.Selection(); len(sel) != 1 || sel[0].Reference != "b" {
		t.Errorf("selection = %v", sel)
	}
	s.ClearSelection()
	if len(s.Selection()) != 0 {
		t.Error("ClearSelection left items")
	}
}

func TestDocumentCacheInvalidation(t *testing.T) {
	s := New()
	s.SetRecords([]types.TranscriptRecord{{Title: "one", Reference: "r1", Text: "first"}})

	doc := s.Document()
	if doc != aggregator.Combine(s.Records()) {
		t.Fatalf("document = %q", doc)
	}
	if s.Document() != doc {
		t.Error("cached document changed without mutation")
	}

	s.AppendRecord(types.TranscriptRecord{Title: "two", Reference: "r2", Text: "second"})
	if !strings.Contains(s.Document(), "second") {
		t.Error("append did not invalidate the document")
	}

	s.SetRecords(nil)
	if s.Document() != "" {
		t.Errorf("document = %q, want empty", s.Document())
	}
}

func TestSelectionChangeInvalidatesDocument(t *testing.T) {
	s := New()
	s.SetRecords([]types.TranscriptRecord{{Title: "one", Reference: "r1", Text: "first"}})
	_ = s.Document()

	s.mu.RLock()
	valid := s.docValid
	s.mu.RUnlock()
	if !valid {
		t.Fatal("document should be cached")
	}

	s.Toggle(types.SelectedItem{Reference: "x"})
	s.mu.RLock()
	valid = s.docValid
	s.mu.RUnlock()
	if valid {
		t.Error("selection change should invalidate the cached document")
	}
}

func TestConcurrentAppendAndRead(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.AppendRecord(types.TranscriptRecord{Title: "t", Reference: "r", Text: "x"})
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Document()
		}()
	}
	wg.Wait()

	if got := strings.Count(s.Document(), "## t"); got != 50 {
		t.Errorf("sections = %d, want 50", got)
	}
}

func TestKnowledgeBase(t *testing.T) {
	s := New()
	if _, ok := s.KnowledgeBase(); ok {
		t.Fatal("new session should have no knowledge base")
	}
	s.SetKnowledgeBase(types.KnowledgeBaseResult{Payload: json.RawMessage(`[1]`)})
	kb, ok := s.KnowledgeBase()
	if !ok || string(kb.Payload) != "[1]" {
		t.Errorf("KnowledgeBase() = %s, %v", kb.Payload, ok)
	}
}

func TestStore(t *testing.T) {
	st := NewStore(time.Minute)
	s := st.Get("")
	if st.Get(s.ID()) != s {
		t.Error("Get should return the existing session")
	}
	if other := st.Get("unknown"); other == s {
		t.Error("unknown id should create a new session")
	}
	if st.Len() != 2 {
		t.Errorf("Len() = %d", st.Len())
	}

	if dropped := st.Sweep(time.Now().Add(2 * time.Minute)); dropped != 2 {
		t.Errorf("Sweep() = %d, want 2", dropped)
	}
	if _, ok := st.Lookup(s.ID()); ok {
		t.Error("swept session still present")
	}
}

func TestStoreReadsKeepSessionAlive(t *testing.T) {
	base := time.Now()
	st := NewStore(time.Minute)
	reader := st.Get("")
	idle := st.Get("")

	st.now = func() time.Time { return base.Add(50 * time.Second) }
	if _, ok := st.Lookup(reader.ID()); !ok {
		t.Fatal("Lookup() lost the session")
	}

	if dropped := st.Sweep(base.Add(90 * time.Second)); dropped != 1 {
		t.Errorf("Sweep() = %d, want 1", dropped)
	}
	if _, ok := st.sessions[reader.ID()]; !ok {
		t.Error("session read 40s ago was swept")
	}
	if _, ok := st.sessions[idle.ID()]; ok {
		t.Error("idle session survived")
	}
}
