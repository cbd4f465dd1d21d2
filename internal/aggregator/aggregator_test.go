package aggregator

import (
	"strings"
	"testing"

	"video-insights-go/internal/types"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		name    string
		records []types.TranscriptRecord
		want    string
	}{
		{
			name:    "empty",
			records: nil,
			want:    "",
		},
		{
			name:    "single record",
			records: []types.TranscriptRecord{{Title: "T1", Reference: "https://x/watch?v=AAAAAAAAAAA", Text: "hello"}},
			want:    "## T1\nSource: https://x/watch?v=AAAAAAAAAAA\n\nhello\n",
		},
		{
			name: "two records keep order",
			records: []types.TranscriptRecord{
				{Title: "B", Reference: "r2", Text: "second"},
				{Title: "A", Reference: "r1", Text: "first"},
			},
			want: "## B\nSource: r2\n\nsecond\n\n---\n\n## A\nSource: r1\n\nfirst\n",
		},
		{
			name:    "blank title",
			records: []types.TranscriptRecord{{Title: "  ", Reference: "r", Text: " x \n"}},
			want:    "## Untitled\nSource: r\n\nx\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Combine(tt.records); got != tt.want {
				t.Errorf("Combine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCombineIdempotent(t *testing.T) {
	records := []types.TranscriptRecord{
		{Title: "One", Reference: "a", Text: "alpha"},
		{Title: "Two", Reference: "b", Text: "beta"},
	}
	first := Combine(records)
	second := Combine(append([]types.TranscriptRecord(nil), records...))
	if first != second {
		t.Fatal("Combine is not deterministic")
	}
	if strings.Index(first, "alpha") > strings.Index(first, "beta") {
		t.Error("records out of order")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]types.TranscriptRecord{{Text: "a b c"}, {Text: "d"}})
	if s.Records != 2 || s.Words != 4 || s.Chars != 6 {
		t.Errorf("Summarize() = %+v", s)
	}
}
