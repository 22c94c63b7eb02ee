// Package report turns a synchronized project into a Report record.
package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/verustcode/codesync/internal/model"
	"github.com/verustcode/codesync/internal/store"
	"github.com/verustcode/codesync/pkg/logger"
	"github.com/verustcode/codesync/pkg/telemetry"
)

// Analyzer produces the analysis text for a project's current code.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, project *model.Project) (string, error)
}

// ErrAnalyzerDisabled is returned by analyzers that never analyze
var ErrAnalyzerDisabled = errors.New("no analyzer configured")

// Pipeline creates reports and drives them to a terminal status. It never
// returns analyzer failures to its caller; they become Failed reports.
type Pipeline struct {
	reports  store.ReportStore
	analyzer Analyzer
	now      func() time.Time
}

// NewPipeline creates a report pipeline
func NewPipeline(reports store.ReportStore, analyzer Analyzer) *Pipeline {
	return &Pipeline{
		reports:  reports,
		analyzer: analyzer,
		now:      time.Now,
	}
}

// Generate creates a pending report for project, runs the analyzer on the
// project's current code and records the outcome.
func (p *Pipeline) Generate(ctx context.Context, project *model.Project, trigger string) *model.Report {
	report := p.start(project, trigger)
	if report == nil {
		return nil
	}

	result, err := p.analyze(ctx, project)
	if err != nil {
		logger.Warn("Analyzer failed",
			zap.Uint("report_id", report.ID),
			zap.Uint("project_id", project.ID),
			zap.String("analyzer", p.analyzerName()),
			zap.Error(err),
		)
		p.finish(ctx, report, model.ReportStatusFailed, "Analysis failed: "+Summarize(err))
		return report
	}

	p.finish(ctx, report, model.ReportStatusCompleted, result)
	return report
}

// GenerateFailed records a failed sync as a Failed report so the failure
// is auditable. The analyzer is not run.
func (p *Pipeline) GenerateFailed(ctx context.Context, project *model.Project, trigger string, cause error) *model.Report {
	report := p.start(project, trigger)
	if report == nil {
		return nil
	}
	p.finish(ctx, report, model.ReportStatusFailed, "Synchronization failed: "+Summarize(cause))
	return report
}

func (p *Pipeline) start(project *model.Project, trigger string) *model.Report {
	report := &model.Report{
		ProjectID:      project.ID,
		GenerationDate: p.now(),
		Status:         model.ReportStatusPending,
		Trigger:        trigger,
		CodeDigest:     Digest(project.Code),
	}
	if err := p.reports.Create(report); err != nil {
		logger.Error("Failed to create report",
			zap.Uint("project_id", project.ID),
			zap.Error(err),
		)
		return nil
	}
	return report
}

func (p *Pipeline) finish(ctx context.Context, report *model.Report, status model.ReportStatus, result string) {
	at := p.now()
	if err := p.reports.Finish(report.ID, status, result, at); err != nil {
		logger.Error("Failed to finish report",
			zap.Uint("report_id", report.ID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return
	}
	report.Status = status
	report.AnalysisResult = result
	report.CompletedAt = &at

	telemetry.GetMetrics().RecordReport(ctx, string(status))
	logger.Info("Report generated",
		zap.Uint("report_id", report.ID),
		zap.Uint("project_id", report.ProjectID),
		zap.String("status", string(status)),
		zap.String("trigger", report.Trigger),
	)
}

func (p *Pipeline) analyze(ctx context.Context, project *model.Project) (result string, err error) {
	if p.analyzer == nil {
		return "", ErrAnalyzerDisabled
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyzer panic: %v", r)
		}
	}()
	return p.analyzer.Analyze(ctx, project)
}

func (p *Pipeline) analyzerName() string {
	if p.analyzer == nil {
		return "none"
	}
	return p.analyzer.Name()
}

// Digest returns the hex SHA-256 of code
func Digest(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// summaryLimit bounds the error text stored on a Failed report
const summaryLimit = 1000

// Summarize renders err as a single human-readable line for a Failed
// report.
func Summarize(err error) string {
	if err == nil {
		return "unknown error"
	}
	msg := err.Error()
	if len(msg) > summaryLimit {
		msg = msg[:summaryLimit] + "..."
	}
	return msg
}
