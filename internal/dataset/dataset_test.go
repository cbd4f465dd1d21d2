package dataset

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"video-insights-go/internal/knowledgebase"
	"video-insights-go/internal/logger"
	"video-insights-go/internal/types"
)

func writeSheet(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "selection.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadHeaderHeuristics(t *testing.T) {
	path := writeSheet(t, [][]any{
		{"#", "Video Title", "Video URL"},
		{1, "First", "https://youtube.com/watch?v=AAAAAAAAAAA"},
		{2, "Not a link", "n/a"},
		{3, "Third", " https://youtu.be/CCCCCCCCCCC "},
	})

	items, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []types.SelectedItem{
		{Reference: "https://youtube.com/watch?v=AAAAAAAAAAA", Title: "First"},
		{Reference: "https://youtu.be/CCCCCCCCCCC", Title: "Third"},
	}
	if len(items) != len(want) {
		t.Fatalf("items = %+v", items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("item %d = %+v, want %+v", i, items[i], want[i])
		}
	}
}

func TestLoadGuessesColumnWithoutHeader(t *testing.T) {
	path := writeSheet(t, [][]any{
		{"a", "b"},
		{"x", "https://youtu.be/AAAAAAAAAAA"},
	})
	items, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(items) != 1 || items[0].Title != "" {
		t.Errorf("items = %+v", items)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(writeSheet(t, [][]any{{"url"}})); err == nil {
		t.Error("header only sheet should error")
	}
	if _, err := Load(writeSheet(t, [][]any{{"a"}, {"b"}})); !errors.Is(err, ErrNoReferenceColumn) {
		t.Errorf("error = %v, want ErrNoReferenceColumn", err)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.xlsx")); err == nil {
		t.Error("missing file should error")
	}
}

func TestExportRelationships(t *testing.T) {
	kb := knowledgebase.KnowledgeBase{
		Relationships: []knowledgebase.Relationship{
			{Entity: "goroutine", Relationship: "uses", Attribute: "channel", Description: "csp"},
		},
	}
	path := filepath.Join(t.TempDir(), "rel.xlsx")
	if err := ExportRelationships(kb, path, logger.Discard().Component("dataset")); err != nil {
		t.Fatalf("ExportRelationships() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows("Relationships")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][0] != "Entity" || rows[1][2] != "channel" {
		t.Errorf("rows = %v", rows)
	}
}

func TestExportReport(t *testing.T) {
	report := types.BatchReport{
		Records: []types.TranscriptRecord{{Title: "T1", Reference: "r1", Text: "hello"}},
		Failures: []types.ItemFailure{
			{Index: 1, Item: types.SelectedItem{Reference: "bad"}, Stage: types.StageExtract, Err: errors.New("not recognized")},
		},
	}
	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := ExportReport(report, path, logger.Discard().Component("dataset")); err != nil {
		t.Fatalf("ExportReport() error = %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	transcripts, _ := f.GetRows("Transcripts")
	failures, _ := f.GetRows("Failures")
	if len(transcripts) != 2 || transcripts[1][2] != "hello" {
		t.Errorf("transcripts = %v", transcripts)
	}
	if len(failures) != 2 || failures[1][0] != "2" || failures[1][3] != "extract" {
		t.Errorf("failures = %v", failures)
	}
}
