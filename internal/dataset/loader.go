package dataset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"video-insights-go/internal/types"
)

var ErrNoReferenceColumn = errors.New("no reference column found")

// Load reads a selection from the first sheet of a spreadsheet. The
// reference and title columns are detected from the header row; rows without
// an http(s) reference are skipped.
func Load(path string) ([]types.SelectedItem, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, fmt.Errorf("no data rows")
	}

	refIdx, titleIdx := detectColumns(rows[0])
	if refIdx == -1 {
		refIdx = guessReferenceColumn(rows[1:])
	}
	if refIdx == -1 {
		return nil, ErrNoReferenceColumn
	}

	var out []types.SelectedItem
	for _, r := range rows[1:] {
		item := types.SelectedItem{}
		if refIdx < len(r) {
			item.Reference = strings.TrimSpace(r[refIdx])
		}
		if titleIdx >= 0 && titleIdx < len(r) {
			item.Title = strings.TrimSpace(r[titleIdx])
		}
		if !looksLikeURL(item.Reference) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func detectColumns(header []string) (refIdx, titleIdx int) {
	refIdx, titleIdx = -1, -1
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(l, "url") || strings.Contains(l, "link") || strings.Contains(l, "reference") || l == "video":
			if refIdx == -1 {
				refIdx = i
			}
		case strings.Contains(l, "title") || strings.Contains(l, "name"):
			if titleIdx == -1 {
				titleIdx = i
			}
		}
	}
	return refIdx, titleIdx
}

// guessReferenceColumn picks the first column whose first data cell is a URL.
func guessReferenceColumn(rows [][]string) int {
	for _, r := range rows {
		for i, cell := range r {
			if looksLikeURL(strings.TrimSpace(cell)) {
				return i
			}
		}
	}
	return -1
}

func looksLikeURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
