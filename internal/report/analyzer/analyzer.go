// Package analyzer provides the built-in report analyzers.
package analyzer

import (
	"context"
	"fmt"

	"golang.org/x/text/language"

	"github.com/verustcode/codesync/internal/config"
	"github.com/verustcode/codesync/internal/model"
	"github.com/verustcode/codesync/internal/report"
)

// New returns the analyzer named by name
func New(name string, lang language.Tag) (report.Analyzer, error) {
	switch name {
	case config.AnalyzerSummary, "":
		return NewSummary(lang), nil
	case config.AnalyzerNone:
		return Disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown analyzer %q", name)
	}
}

// Disabled fails every analysis so reports record that none was run
type Disabled struct{}

func (Disabled) Name() string { return config.AnalyzerNone }

func (Disabled) Analyze(context.Context, *model.Project) (string, error) {
	return "", report.ErrAnalyzerDisabled
}
