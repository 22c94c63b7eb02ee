package handler

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/codesync/internal/git/provider"
	"github.com/verustcode/codesync/internal/model"
	"github.com/verustcode/codesync/internal/store"
	"github.com/verustcode/codesync/internal/syncer"
	"github.com/verustcode/codesync/pkg/errors"
	"github.com/verustcode/codesync/pkg/logger"
)

// maxProjectFile bounds uploaded source files
const maxProjectFile = 10 << 20

// ProjectSyncer enqueues project syncs
type ProjectSyncer interface {
	SyncProject(ctx context.Context, projectID uint, branch, trigger string) (*syncer.Task, error)
}

// ProjectHandler handles project creation, listing and manual syncs
type ProjectHandler struct {
	store     store.Store
	providers *provider.Registry
	syncer    ProjectSyncer
	now       func() time.Time
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(s store.Store, providers *provider.Registry, sy ProjectSyncer) *ProjectHandler {
	return &ProjectHandler{store: s, providers: providers, syncer: sy, now: time.Now}
}

// Create handles POST /api/projects (multipart form)
func (h *ProjectHandler) Create(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("projectName"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": "Project name is required",
		})
		return
	}
	email := strings.ToLower(strings.TrimSpace(c.PostForm("email")))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": "Email is required",
		})
		return
	}

	caller, ok := currentUser(c, h.store)
	if !ok {
		return
	}
	if caller.Email != email && caller.Role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{
			"code":    errors.ErrCodeForbidden,
			"message": "Projects can only be created for your own account",
		})
		return
	}

	owner, err := h.store.User().GetByEmail(email)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(c, syncer.ErrUserNotFound)
			return
		}
		respondError(c, err)
		return
	}

	project := &model.Project{Name: name, UserID: owner.ID}

	code, hasFile, ok := h.readProjectFile(c)
	if !ok {
		return
	}
	if hasFile {
		now := h.now()
		project.Code = code
		project.UploadDate = &now
	}

	if raw := strings.TrimSpace(c.PostForm("gitRepositoryUrl")); raw != "" {
		repoURL := provider.NormalizeURL(raw)
		if _, err := h.providers.Resolve(repoURL); err != nil {
			respondError(c, err)
			return
		}
		project.GitRepositoryURL = repoURL
	}

	if err := h.store.Project().Create(project); err != nil {
		respondError(c, err)
		return
	}
	logger.Info("Project created",
		zap.Uint("project_id", project.ID),
		zap.Uint("user_id", owner.ID),
		zap.String("repo_url", project.GitRepositoryURL),
	)

	if project.GitRepositoryURL != "" {
		if task, err := h.syncer.SyncProject(c.Request.Context(), project.ID, "", model.TriggerCreate); err != nil {
			logger.Warn("Initial sync not scheduled",
				zap.Uint("project_id", project.ID),
				zap.Error(err),
			)
		} else {
			logger.Debug("Initial sync scheduled", zap.String("task_id", task.ID))
		}
	}

	c.JSON(http.StatusCreated, project)
}

// readProjectFile returns the uploaded projectFile, if any. It writes the
// error response itself and returns ok=false on failure.
func (h *ProjectHandler) readProjectFile(c *gin.Context) (code string, present, ok bool) {
	header, err := c.FormFile("projectFile")
	if err != nil {
		if err == http.ErrMissingFile {
			return "", false, true
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": "Invalid multipart form",
		})
		return "", false, false
	}
	if header.Size == 0 {
		return "", false, true
	}

	mediaType, _, err := mime.ParseMediaType(header.Header.Get("Content-Type"))
	if err != nil || mediaType != "text/plain" {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"code":    errors.ErrCodeUnsupported,
			"message": "Only text files are supported",
		})
		return "", false, false
	}
	if header.Size > maxProjectFile {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": "Project file is too large",
		})
		return "", false, false
	}

	f, err := header.Open()
	if err != nil {
		respondError(c, errors.ErrInternal("Failed to open upload", err))
		return "", false, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		respondError(c, errors.ErrInternal("Failed to read upload", err))
		return "", false, false
	}
	return string(data), true, true
}

// List handles GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	user, ok := currentUser(c, h.store)
	if !ok {
		return
	}
	projects, err := h.store.Project().ListByUser(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  projects,
		"total": len(projects),
	})
}

// Get handles GET /api/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	project, ok := h.ownedProject(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, project)
}

// Sync handles POST /api/projects/:id/sync
func (h *ProjectHandler) Sync(c *gin.Context) {
	project, ok := h.ownedProject(c)
	if !ok {
		return
	}

	task, err := h.syncer.SyncProject(c.Request.Context(), project.ID, c.Query("branch"), model.TriggerManual)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"task_id":    task.ID,
		"project_id": project.ID,
	})
}

// Reports handles GET /api/projects/:id/reports
func (h *ProjectHandler) Reports(c *gin.Context) {
	project, ok := h.ownedProject(c)
	if !ok {
		return
	}
	reports, err := h.store.Report().ListByProject(project.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  reports,
		"total": len(reports),
	})
}

// ownedProject loads the :id project if the caller owns it or is an admin.
// Projects of other users are reported as missing.
func (h *ProjectHandler) ownedProject(c *gin.Context) (*model.Project, bool) {
	id, ok := parseID(c)
	if !ok {
		return nil, false
	}
	user, ok := currentUser(c, h.store)
	if !ok {
		return nil, false
	}
	project, err := h.store.Project().GetByID(id)
	if err != nil {
		if store.IsNotFound(err) {
			respondError(c, syncer.ErrProjectNotFound)
			return nil, false
		}
		respondError(c, err)
		return nil, false
	}
	if project.UserID != user.ID && user.Role != model.RoleAdmin {
		respondError(c, syncer.ErrProjectNotFound)
		return nil, false
	}
	return project, true
}

// parseID reads the :id path parameter
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": "Invalid id",
		})
		return 0, false
	}
	return uint(id), true
}
