package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"os/exec"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/verustcode/codesync/internal/model"
)

func createReport(t *testing.T, env *testEnv, projectID uint, result string) *model.Report {
	t.Helper()
	r := &model.Report{
		ProjectID:      projectID,
		GenerationDate: time.Now(),
		Status:         model.ReportStatusPending,
		Trigger:        model.TriggerManual,
	}
	require.NoError(t, env.store.Report().Create(r))
	require.NoError(t, env.store.Report().Finish(r.ID, model.ReportStatusCompleted, result, time.Now()))
	stored, err := env.store.Report().GetByID(r.ID)
	require.NoError(t, err)
	return stored
}

func TestReportHandler_ListAndGet(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceToken := env.user("alice@x.com")
	_, bobToken := env.user("bob@x.com")
	project := createProject(t, env, alice.ID, "", "code")
	report := createReport(t, env, project.ID, "Lines: 1")

	w := env.serve(WithBearer(CreateTestRequest(http.MethodGet, "/api/reports", nil), aliceToken))
	AssertJSONResponse(t, w, http.StatusOK, gin.H{"total": 1})

	w = env.serve(WithBearer(CreateTestRequest(http.MethodGet, "/api/reports", nil), bobToken))
	AssertJSONResponse(t, w, http.StatusOK, gin.H{"total": 0})

	w = env.serve(WithBearer(CreateTestRequest(http.MethodGet, fmt.Sprintf("/api/reports/%d", report.ID), nil), aliceToken))
	AssertJSONResponse(t, w, http.StatusOK, gin.H{
		"status":          string(model.ReportStatusCompleted),
		"analysis_result": "Lines: 1",
	})

	w = env.serve(WithBearer(CreateTestRequest(http.MethodGet, fmt.Sprintf("/api/reports/%d", report.ID), nil), bobToken))
	AssertErrorResponse(t, w, http.StatusNotFound, "E4001")

	w = env.serve(WithBearer(CreateTestRequest(http.MethodGet, "/api/reports/9999", nil), aliceToken))
	AssertErrorResponse(t, w, http.StatusNotFound, "E4001")
}

func TestReportHandler_DownloadExcel(t *testing.T) {
	env := newTestEnv(t)
	alice, token := env.user("alice@x.com")
	project := createProject(t, env, alice.ID, testRepoURL, "code")
	report := createReport(t, env, project.ID, "Size: 4 bytes\nLines: 1")

	w := env.serve(WithBearer(CreateTestRequest(http.MethodGet, fmt.Sprintf("/api/reports/%d/download-excel", report.ID), nil), token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="report.xlsx"`, w.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Analysis")
}

func TestReportHandler_DownloadHTML(t *testing.T) {
	env := newTestEnv(t)
	alice, token := env.user("alice@x.com")
	project := createProject(t, env, alice.ID, "", "code")
	report := createReport(t, env, project.ID, "Lines: 1")

	w := env.serve(WithBearer(CreateTestRequest(http.MethodGet, fmt.Sprintf("/api/reports/%d/download-html", report.ID), nil), token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="report.html"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "Lines: 1")
}

func TestReportHandler_DownloadForeignReport(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.user("alice@x.com")
	_, bobToken := env.user("bob@x.com")
	project := createProject(t, env, alice.ID, "", "code")
	report := createReport(t, env, project.ID, "x")

	w := env.serve(WithBearer(CreateTestRequest(http.MethodGet, fmt.Sprintf("/api/reports/%d/download-excel", report.ID), nil), bobToken))
	AssertErrorResponse(t, w, http.StatusNotFound, "E4001")
}

func TestReportHandler_DownloadPDF(t *testing.T) {
	if !chromeAvailable() {
		t.Skip("Chrome not found")
	}
	env := newTestEnv(t)
	alice, token := env.user("alice@x.com")
	project := createProject(t, env, alice.ID, "", "code")
	report := createReport(t, env, project.ID, "Lines: 1")

	w := env.serve(WithBearer(CreateTestRequest(http.MethodGet, fmt.Sprintf("/api/reports/%d/download-pdf", report.ID), nil), token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func chromeAvailable() bool {
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}
