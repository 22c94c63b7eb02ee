package exporter

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/verustcode/codesync/consts"
	"github.com/verustcode/codesync/pkg/logger"
)

// Paper is a page size in inches
type Paper struct {
	Width, Height float64
}

// Margins are page margins in inches
type Margins struct {
	Top, Bottom, Left, Right float64
}

var (
	PaperA4     = Paper{Width: 8.27, Height: 11.69}
	PaperLetter = Paper{Width: 8.5, Height: 11}
)

// PDFOptions controls page layout and the browser used for printing
type PDFOptions struct {
	Paper   Paper
	Margins Margins
	Scale   float64
	// Timeout bounds one export including browser startup
	Timeout time.Duration
	// ChromePath overrides the browser binary; CHROME_PATH is used otherwise
	ChromePath string
}

// DefaultPDFOptions prints A4 with roughly 2cm side margins
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		Paper:   PaperA4,
		Margins: Margins{Top: 0.71, Bottom: 0.59, Left: 0.79, Right: 0.79},
		Scale:   1.0,
		Timeout: 60 * time.Second,
	}
}

// PDFExporter prints the HTML rendering of a report with headless Chrome
type PDFExporter struct {
	options PDFOptions
	html    *HTMLExporter
}

// NewPDFExporter creates a PDF exporter with default options
func NewPDFExporter() *PDFExporter {
	return NewPDFExporterWithOptions(DefaultPDFOptions())
}

// NewPDFExporterWithOptions fills unset options from DefaultPDFOptions
func NewPDFExporterWithOptions(opts PDFOptions) *PDFExporter {
	def := DefaultPDFOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Paper == (Paper{}) {
		opts.Paper = def.Paper
	}
	if opts.Scale <= 0 {
		opts.Scale = def.Scale
	}
	return &PDFExporter{options: opts, html: NewHTMLExporter()}
}

func (e *PDFExporter) Name() string          { return "PDF" }
func (e *PDFExporter) FileExtension() string { return ".pdf" }
func (e *PDFExporter) ContentType() string   { return "application/pdf" }

// Export renders doc to HTML, loads it into a fresh headless browser from a
// temp file and prints it.
func (e *PDFExporter) Export(ctx context.Context, doc Document) ([]byte, error) {
	start := time.Now()
	log := logger.With(zap.Uint("report_id", doc.Report.ID))

	rendered, err := e.html.Export(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	// Large reports exceed what a data: URL can carry
	path, cleanup, err := writeTemp(rendered)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(ctx, e.options.Timeout)
	defer cancel()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, e.allocatorOptions()...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		log.Debug("chromedp: " + fmt.Sprintf(format, args...))
	}))
	defer browserCancel()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+path),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = e.printParams(doc).Do(ctx)
			return err
		}),
	)
	if err != nil {
		log.Error("PDF export failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return nil, fmt.Errorf("print pdf: %w", err)
	}

	log.Info("PDF exported",
		zap.String("size", formatBytes(len(pdf))),
		zap.Duration("duration", time.Since(start)),
	)
	return pdf, nil
}

func writeTemp(html []byte) (string, func(), error) {
	f, err := os.CreateTemp("", consts.ServiceName+"-report-*.html")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { _ = os.Remove(f.Name()) }

	_, werr := f.Write(html)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", werr)
	}
	return f.Name(), cleanup, nil
}

func (e *PDFExporter) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		// Containers run as root with a small /dev/shm
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WSURLReadTimeout(e.options.Timeout),
	)
	if path := e.chromePath(); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	return opts
}

func (e *PDFExporter) printParams(doc Document) *page.PrintToPDFParams {
	o := e.options
	return page.PrintToPDF().
		WithPaperWidth(o.Paper.Width).
		WithPaperHeight(o.Paper.Height).
		WithMarginTop(o.Margins.Top).
		WithMarginBottom(o.Margins.Bottom).
		WithMarginLeft(o.Margins.Left).
		WithMarginRight(o.Margins.Right).
		WithScale(o.Scale).
		WithPrintBackground(true).
		WithDisplayHeaderFooter(true).
		WithHeaderTemplate(`<div></div>`).
		WithFooterTemplate(footer(doc))
}

func (e *PDFExporter) chromePath() string {
	if e.options.ChromePath != "" {
		return e.options.ChromePath
	}
	return os.Getenv("CHROME_PATH")
}

// footer puts the report id on the left and page numbers on the right.
// Chrome fills pageNumber and totalPages.
func footer(doc Document) string {
	return fmt.Sprintf(`<div style="width:100%%;padding:0 20px;font:9px system-ui,sans-serif;color:#666;display:flex;justify-content:space-between;">`+
		`<span>%s report #%d</span>`+
		`<span><span class="pageNumber"></span> / <span class="totalPages"></span></span>`+
		`</div>`, consts.ProjectName, doc.Report.ID)
}

// formatBytes renders n as "1.5 KB" style text
func formatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	value, suffix := float64(n)/unit, 0
	for value >= unit && suffix < 5 {
		value /= unit
		suffix++
	}
	return fmt.Sprintf("%.1f %cB", value, "KMGTPE"[suffix])
}
