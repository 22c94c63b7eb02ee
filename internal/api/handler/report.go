package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/codesync/internal/model"
	"github.com/verustcode/codesync/internal/report/exporter"
	"github.com/verustcode/codesync/internal/store"
	"github.com/verustcode/codesync/pkg/errors"
	"github.com/verustcode/codesync/pkg/logger"
)

// defaultExportTimeout bounds one export when the caller set no deadline
const defaultExportTimeout = 2 * time.Minute

// ReportHandler lists reports and serves their exports
type ReportHandler struct {
	store   store.Store
	exports *exporter.ExportManager
}

// NewReportHandler creates a new report handler
func NewReportHandler(s store.Store, exports *exporter.ExportManager) *ReportHandler {
	return &ReportHandler{store: s, exports: exports}
}

// List handles GET /api/reports
func (h *ReportHandler) List(c *gin.Context) {
	user, ok := currentUser(c, h.store)
	if !ok {
		return
	}
	reports, err := h.store.Report().ListByUser(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  reports,
		"total": len(reports),
	})
}

// Get handles GET /api/reports/:id
func (h *ReportHandler) Get(c *gin.Context) {
	report, _, ok := h.ownedReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

// Download returns a handler serving the :id report as an attachment in format
func (h *ReportHandler) Download(format exporter.ExportFormat) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, project, ok := h.ownedReport(c)
		if !ok {
			return
		}

		exp, err := h.exports.GetExporter(format)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{
				"code":    errors.ErrCodeNotFound,
				"message": "Unsupported export format",
			})
			return
		}

		ctx := c.Request.Context()
		if _, has := ctx.Deadline(); !has {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultExportTimeout)
			defer cancel()
		}

		data, err := h.exports.Export(ctx, exporter.Document{Report: report, Project: project}, format)
		if err != nil {
			logger.Error("Report export failed",
				zap.Uint("report_id", report.ID),
				zap.String("format", string(format)),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    errors.ErrCodeExportFailed,
				"message": "Failed to export report",
			})
			return
		}

		c.Header("Content-Disposition", `attachment; filename="`+h.exports.Filename(format)+`"`)
		c.Data(http.StatusOK, exp.ContentType(), data)
	}
}

// ownedReport loads the :id report and its project, hiding reports of
// projects the caller does not own.
func (h *ReportHandler) ownedReport(c *gin.Context) (*model.Report, *model.Project, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, nil, false
	}
	user, ok := currentUser(c, h.store)
	if !ok {
		return nil, nil, false
	}

	notFound := func() {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    errors.ErrCodeReportNotFound,
			"message": "Report not found",
		})
	}

	report, err := h.store.Report().GetByID(id)
	if err != nil {
		if store.IsNotFound(err) {
			notFound()
			return nil, nil, false
		}
		respondError(c, err)
		return nil, nil, false
	}
	project, err := h.store.Project().GetByID(report.ProjectID)
	if err != nil {
		if store.IsNotFound(err) {
			notFound()
			return nil, nil, false
		}
		respondError(c, err)
		return nil, nil, false
	}
	if project.UserID != user.ID && user.Role != model.RoleAdmin {
		notFound()
		return nil, nil, false
	}
	return report, project, true
}
