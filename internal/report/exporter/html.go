package exporter

import (
	"bytes"
	"context"
	"html/template"
	"time"

	"github.com/verustcode/codesync/consts"
)

// HTMLExporter renders a standalone, print-friendly HTML page
type HTMLExporter struct {
	tmpl *template.Template
}

// NewHTMLExporter creates an HTML exporter
func NewHTMLExporter() *HTMLExporter {
	return &HTMLExporter{tmpl: template.Must(template.New("report").Funcs(template.FuncMap{
		"datetime": formatTime,
	}).Parse(reportTemplate))}
}

type htmlData struct {
	Title       string
	Service     string
	Doc         Document
	GeneratedAt time.Time
}

// Export renders doc as HTML
func (e *HTMLExporter) Export(_ context.Context, doc Document) ([]byte, error) {
	var buf bytes.Buffer
	err := e.tmpl.Execute(&buf, htmlData{
		Title:       doc.Title(),
		Service:     consts.ProjectName,
		Doc:         doc,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *HTMLExporter) Name() string          { return "HTML" }
func (e *HTMLExporter) FileExtension() string { return ".html" }
func (e *HTMLExporter) ContentType() string   { return "text/html; charset=utf-8" }

func formatTime(t any) string {
	switch v := t.(type) {
	case time.Time:
		if v.IsZero() {
			return "-"
		}
		return v.Format("2006-01-02 15:04:05")
	case *time.Time:
		if v == nil || v.IsZero() {
			return "-"
		}
		return v.Format("2006-01-02 15:04:05")
	}
	return "-"
}

const reportTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
  body { font-family: system-ui, -apple-system, sans-serif; font-size: 10pt; color: #1a1a1a; margin: 0; }
  header { border-bottom: 2px solid #2563eb; padding-bottom: 12px; margin-bottom: 16px; }
  h1 { font-size: 18pt; color: #1e40af; margin: 0 0 6px 0; }
  table.meta { border-collapse: collapse; margin-bottom: 16px; }
  table.meta th { text-align: left; color: #64748b; font-weight: 600; padding: 2px 16px 2px 0; }
  .status { font-weight: 700; text-transform: uppercase; }
  .status-completed { color: #15803d; }
  .status-failed { color: #b91c1c; }
  .status-pending { color: #a16207; }
  pre { background: #f8fafc; border: 1px solid #e2e8f0; border-radius: 6px; padding: 12px; white-space: pre-wrap; word-break: break-word; }
</style>
</head>
<body>
<header>
  <h1>{{.Title}}</h1>
  <div>Generated by {{.Service}} at {{datetime .GeneratedAt}}</div>
</header>
<table class="meta">
  <tr><th>Report</th><td>#{{.Doc.Report.ID}}</td></tr>
  <tr><th>Status</th><td class="status status-{{.Doc.Report.Status}}">{{.Doc.Report.Status}}</td></tr>
  <tr><th>Generated</th><td>{{datetime .Doc.Report.GenerationDate}}</td></tr>
  <tr><th>Completed</th><td>{{datetime .Doc.Report.CompletedAt}}</td></tr>
  {{- if .Doc.Report.Trigger}}
  <tr><th>Trigger</th><td>{{.Doc.Report.Trigger}}</td></tr>
  {{- end}}
  {{- with .Doc.Project}}
  <tr><th>Project</th><td>{{.Name}}</td></tr>
  {{- if .GitRepositoryURL}}
  <tr><th>Repository</th><td>{{.GitRepositoryURL}}</td></tr>
  {{- end}}
  {{- if .Branch}}
  <tr><th>Branch</th><td>{{.Branch}}</td></tr>
  {{- end}}
  {{- end}}
  {{- if .Doc.Report.CodeDigest}}
  <tr><th>Code digest</th><td><code>{{.Doc.Report.CodeDigest}}</code></td></tr>
  {{- end}}
</table>
<h2>Analysis</h2>
<pre>{{.Doc.Report.AnalysisResult}}</pre>
</body>
</html>
`
