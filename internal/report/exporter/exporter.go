// Package exporter turns a stored report into a downloadable HTML, PDF or
// Excel document.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/verustcode/codesync/internal/model"
	"github.com/verustcode/codesync/pkg/logger"
)

// ExportFormat names a download format as it appears in the route
type ExportFormat string

const (
	ExportFormatHTML  ExportFormat = "html"
	ExportFormatPDF   ExportFormat = "pdf"
	ExportFormatExcel ExportFormat = "excel"
)

// ErrUnsupportedFormat is returned for formats nobody registered
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Document is a report together with the project it belongs to
type Document struct {
	Report  *model.Report
	Project *model.Project
}

// Title is used as the page and sheet title
func (d Document) Title() string {
	if d.Project == nil || d.Project.Name == "" {
		return "Code Sync Report"
	}
	return d.Project.Name + " Report"
}

// ReportExporter renders a document in one format
type ReportExporter interface {
	Export(ctx context.Context, doc Document) ([]byte, error)
	// Name is used in logs and errors, e.g. "PDF"
	Name() string
	// FileExtension includes the leading dot
	FileExtension() string
	ContentType() string
}

// ExportManager dispatches exports to the exporter registered per format
type ExportManager struct {
	mu        sync.RWMutex
	exporters map[ExportFormat]ReportExporter
}

// NewExportManager creates a manager with no formats
func NewExportManager() *ExportManager {
	return &ExportManager{exporters: map[ExportFormat]ReportExporter{}}
}

// NewDefaultManager serves HTML, PDF and Excel
func NewDefaultManager(pdf PDFOptions) *ExportManager {
	m := NewExportManager()
	m.Register(ExportFormatHTML, NewHTMLExporter())
	m.Register(ExportFormatPDF, NewPDFExporterWithOptions(pdf))
	m.Register(ExportFormatExcel, NewExcelExporter())
	return m
}

// Register adds or replaces the exporter for format
func (m *ExportManager) Register(format ExportFormat, exp ReportExporter) {
	m.mu.Lock()
	m.exporters[format] = exp
	m.mu.Unlock()
	logger.Debug("Report exporter registered", zap.String("format", string(format)), zap.String("exporter", exp.Name()))
}

// GetExporter returns the exporter for format or ErrUnsupportedFormat
func (m *ExportManager) GetExporter(format ExportFormat) (ReportExporter, error) {
	m.mu.RLock()
	exp, ok := m.exporters[format]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return exp, nil
}

// Export renders doc in format
func (m *ExportManager) Export(ctx context.Context, doc Document, format ExportFormat) ([]byte, error) {
	exp, err := m.GetExporter(format)
	if err != nil {
		return nil, err
	}
	if doc.Report == nil {
		return nil, fmt.Errorf("%s export: document has no report", exp.Name())
	}

	data, err := exp.Export(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%s export of report %d: %w", exp.Name(), doc.Report.ID, err)
	}
	return data, nil
}

// SupportedFormats lists the registered formats sorted by name
func (m *ExportManager) SupportedFormats() []ExportFormat {
	m.mu.RLock()
	formats := make([]ExportFormat, 0, len(m.exporters))
	for f := range m.exporters {
		formats = append(formats, f)
	}
	m.mu.RUnlock()
	slices.Sort(formats)
	return formats
}

// Filename is the attachment name for format, e.g. "report.pdf". Unknown
// formats get a bare "report".
func (m *ExportManager) Filename(format ExportFormat) string {
	exp, err := m.GetExporter(format)
	if err != nil {
		return "report"
	}
	return "report" + exp.FileExtension()
}
