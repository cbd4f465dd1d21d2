package aggregator

import (
	"strings"

	"video-insights-go/internal/types"
)

// SectionDelimiter separates records in a combined document.
const SectionDelimiter = "\n\n---\n\n"

// Combine joins records in order, each under a header block with its title
// and reference. The output depends only on the record sequence.
func Combine(records []types.TranscriptRecord) string {
	if len(records) == 0 {
		return ""
	}
	sections := make([]string, 0, len(records))
	for _, r := range records {
		sections = append(sections, Section(r))
	}
	return strings.Join(sections, SectionDelimiter) + "\n"
}

// Section renders the block for one record.
func Section(r types.TranscriptRecord) string {
	var b strings.Builder
	b.WriteString("## ")
	b.WriteString(headerTitle(r))
	b.WriteString("\nSource: ")
	b.WriteString(r.Reference)
	b.WriteString("\n\n")
	b.WriteString(strings.TrimSpace(r.Text))
	return b.String()
}

func headerTitle(r types.TranscriptRecord) string {
	title := strings.Join(strings.Fields(r.Title), " ")
	if title == "" {
		return "Untitled"
	}
	return title
}

// Stats summarizes a record sequence for reports.
type Stats struct {
	Records int `json:"records"`
	Words   int `json:"words"`
	Chars   int `json:"chars"`
}

func Summarize(records []types.TranscriptRecord) Stats {
	s := Stats{Records: len(records)}
	for _, r := range records {
		s.Words += len(strings.Fields(r.Text))
		s.Chars += len(r.Text)
	}
	return s
}
