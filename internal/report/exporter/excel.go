package exporter

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	summarySheet  = "Report"
	analysisSheet = "Analysis"
)

// ExcelExporter writes the report as an .xlsx workbook: a key/value summary
// sheet and one row per analysis line.
type ExcelExporter struct{}

// NewExcelExporter creates an Excel exporter
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

func (e *ExcelExporter) Name() string          { return "Excel" }
func (e *ExcelExporter) FileExtension() string { return ".xlsx" }
func (e *ExcelExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Export renders doc to xlsx bytes
func (e *ExcelExporter) Export(_ context.Context, doc Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	r := doc.Report
	rows := [][2]any{
		{"Title", doc.Title()},
		{"Report ID", r.ID},
		{"Status", string(r.Status)},
		{"Generated", formatTime(r.GenerationDate)},
		{"Completed", formatTime(r.CompletedAt)},
		{"Trigger", r.Trigger},
		{"Code digest", r.CodeDigest},
	}
	if p := doc.Project; p != nil {
		rows = append(rows,
			[2]any{"Project", p.Name},
			[2]any{"Repository", p.GitRepositoryURL},
			[2]any{"Branch", p.Branch},
		)
	}
	for i, row := range rows {
		if err := setRow(f, summarySheet, i+1, row[0], row[1]); err != nil {
			return nil, err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 16); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 70); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(analysisSheet); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(analysisSheet, "A", "A", 100); err != nil {
		return nil, err
	}
	for i, line := range strings.Split(r.AnalysisResult, "\n") {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStr(analysisSheet, cell, line); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, key, value any) error {
	if err := f.SetCellValue(sheet, fmt.Sprintf("A%d", row), key); err != nil {
		return err
	}
	return f.SetCellValue(sheet, fmt.Sprintf("B%d", row), value)
}
