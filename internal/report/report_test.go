package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/codesync/internal/model"
	"github.com/verustcode/codesync/internal/store"
)

type stubAnalyzer struct {
	result string
	err    error
	panic  bool
	seen   string
}

func (a *stubAnalyzer) Name() string { return "stub" }

func (a *stubAnalyzer) Analyze(_ context.Context, p *model.Project) (string, error) {
	a.seen = p.Code
	if a.panic {
		panic("analyzer exploded")
	}
	return a.result, a.err
}

func setup(t *testing.T) (store.Store, *model.Project) {
	t.Helper()
	s, cleanup := store.SetupTestDB(t)
	t.Cleanup(cleanup)
	user := store.CreateTestUser(t, s, "alice@x.com")
	project := store.CreateTestProject(t, s, user.ID, "https://github.com/acme/widgets", func(p *model.Project) {
		p.Code = "package main"
	})
	return s, project
}

func TestPipeline_GenerateCompleted(t *testing.T) {
	s, project := setup(t)
	a := &stubAnalyzer{result: "looks fine"}

	r := NewPipeline(s.Report(), a).Generate(context.Background(), project, model.TriggerManual)
	require.NotNil(t, r)
	assert.Equal(t, "package main", a.seen)
	assert.Equal(t, model.ReportStatusCompleted, r.Status)

	stored, err := s.Report().GetByID(r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusCompleted, stored.Status)
	assert.Equal(t, "looks fine", stored.AnalysisResult)
	assert.Equal(t, model.TriggerManual, stored.Trigger)
	assert.Equal(t, Digest("package main"), stored.CodeDigest)
	assert.NotNil(t, stored.CompletedAt)
	assert.False(t, stored.GenerationDate.IsZero())
}

func TestPipeline_GenerateAnalyzerError(t *testing.T) {
	s, project := setup(t)

	r := NewPipeline(s.Report(), &stubAnalyzer{err: errors.New("model unavailable")}).
		Generate(context.Background(), project, model.TriggerWebhook)
	require.NotNil(t, r)

	stored, err := s.Report().GetByID(r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusFailed, stored.Status)
	assert.Equal(t, "Analysis failed: model unavailable", stored.AnalysisResult)
}

func TestPipeline_GenerateAnalyzerErrorTruncated(t *testing.T) {
	s, project := setup(t)

	r := NewPipeline(s.Report(), &stubAnalyzer{err: errors.New(strings.Repeat("x", 5000))}).
		Generate(context.Background(), project, model.TriggerManual)
	require.NotNil(t, r)

	stored, err := s.Report().GetByID(r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusFailed, stored.Status)
	assert.Equal(t, "Analysis failed: "+strings.Repeat("x", summaryLimit)+"...", stored.AnalysisResult)
}

func TestPipeline_GenerateAnalyzerPanic(t *testing.T) {
	s, project := setup(t)

	var r *model.Report
	require.NotPanics(t, func() {
		r = NewPipeline(s.Report(), &stubAnalyzer{panic: true}).Generate(context.Background(), project, model.TriggerManual)
	})
	require.NotNil(t, r)
	assert.Equal(t, model.ReportStatusFailed, r.Status)
	assert.Contains(t, r.AnalysisResult, "analyzer exploded")
}

func TestPipeline_GenerateNoAnalyzer(t *testing.T) {
	s, project := setup(t)

	r := NewPipeline(s.Report(), nil).Generate(context.Background(), project, model.TriggerManual)
	require.NotNil(t, r)
	assert.Equal(t, model.ReportStatusFailed, r.Status)
	assert.Contains(t, r.AnalysisResult, ErrAnalyzerDisabled.Error())
}

func TestPipeline_GenerateFailed(t *testing.T) {
	s, project := setup(t)
	a := &stubAnalyzer{result: "unused"}

	r := NewPipeline(s.Report(), a).GenerateFailed(context.Background(), project, model.TriggerWebhook, errors.New("[github] fetch_content failed: status 404"))
	require.NotNil(t, r)
	assert.Empty(t, a.seen, "analyzer must not run for a failed sync")

	stored, err := s.Report().GetByID(r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusFailed, stored.Status)
	assert.Equal(t, "Synchronization failed: [github] fetch_content failed: status 404", stored.AnalysisResult)
}

func TestPipeline_ReportsAccumulate(t *testing.T) {
	s, project := setup(t)
	p := NewPipeline(s.Report(), &stubAnalyzer{result: "ok"})

	first := p.Generate(context.Background(), project, model.TriggerManual)
	second := p.Generate(context.Background(), project, model.TriggerManual)
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)

	reports, err := s.Report().ListByProject(project.ID)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "unknown error", Summarize(nil))
	assert.Equal(t, "boom", Summarize(errors.New("boom")))

	long := errors.New(string(make([]byte, 2000)))
	assert.Len(t, Summarize(long), summaryLimit+3)
}

func TestDigest(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Digest(""))
	assert.Equal(t, Digest("a"), Digest("a"))
	assert.NotEqual(t, Digest("a"), Digest("b"))
}
