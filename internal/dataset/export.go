package dataset

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"video-insights-go/internal/knowledgebase"
	"video-insights-go/internal/types"
)

// ExportRelationships writes the relationships table of kb to an xlsx file.
func ExportRelationships(kb knowledgebase.KnowledgeBase, path string, log *logrus.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Relationships"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	rows := make([][]any, 0, len(kb.Relationships))
	for _, r := range kb.Relationships {
		rows = append(rows, []any{r.Entity, r.Relationship, r.Attribute, r.Description})
	}
	if err := writeTable(f, sheet, []any{"Entity", "Relationship", "Attribute", "Description"}, rows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	log.WithFields(logrus.Fields{"path": path, "rows": len(rows)}).Info("relationships exported")
	return nil
}

// ExportReport writes one sheet of transcripts and one of failures.
func ExportReport(report types.BatchReport, path string, log *logrus.Entry) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Transcripts"); err != nil {
		return err
	}
	records := make([][]any, 0, len(report.Records))
	for _, r := range report.Records {
		records = append(records, []any{r.Title, r.Reference, r.Text})
	}
	if err := writeTable(f, "Transcripts", []any{"Title", "URL", "Transcript"}, records); err != nil {
		return err
	}

	if _, err := f.NewSheet("Failures"); err != nil {
		return err
	}
	failures := make([][]any, 0, len(report.Failures))
	for _, fl := range report.Failures {
		msg := ""
		if fl.Err != nil {
			msg = fl.Err.Error()
		}
		failures = append(failures, []any{fl.Index + 1, fl.Item.Title, fl.Item.Reference, string(fl.Stage), msg})
	}
	if err := writeTable(f, "Failures", []any{"Item", "Title", "URL", "Stage", "Error"}, failures); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	log.WithFields(logrus.Fields{
		"path":     path,
		"records":  len(records),
		"failures": len(failures),
	}).Info("batch report exported")
	return nil
}

func writeTable(f *excelize.File, sheet string, header []any, rows [][]any) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 28)
}
