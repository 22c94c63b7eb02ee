package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/codesync/consts"
	"github.com/verustcode/codesync/internal/git/provider"
	"github.com/verustcode/codesync/internal/syncer"
	"github.com/verustcode/codesync/internal/webhook"
	"github.com/verustcode/codesync/pkg/logger"
	"github.com/verustcode/codesync/pkg/telemetry"
)

// maxWebhookBody matches GitHub's payload cap
const maxWebhookBody = 25 << 20

// Webhook outcomes recorded in metrics
const (
	outcomeProcessed = "processed"
	outcomeIgnored   = "ignored"
	outcomeRejected  = "rejected"
	outcomeFailed    = "failed"
)

// WebhookParser turns a provider delivery into a WebhookEvent
type WebhookParser interface {
	ParseWebhook(eventType string, body []byte) (*provider.WebhookEvent, error)
}

// WebhookSyncer accepts push events
type WebhookSyncer interface {
	HandleWebhook(ctx context.Context, event *provider.WebhookEvent) (*syncer.Task, error)
}

// WebhookConfig holds the per-provider parsers and shared secrets
type WebhookConfig struct {
	GitHub       WebhookParser
	GitLab       WebhookParser
	GitHubSecret string
	GitLabSecret string
}

// WebhookHandler receives provider push notifications
type WebhookHandler struct {
	syncer WebhookSyncer
	cfg    WebhookConfig
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(s WebhookSyncer, cfg WebhookConfig) *WebhookHandler {
	return &WebhookHandler{syncer: s, cfg: cfg}
}

// HandleGitHub handles POST /api/webhooks/github
func (h *WebhookHandler) HandleGitHub(c *gin.Context) {
	const name = consts.ProviderGitHub
	body, ok := h.readBody(c, name)
	if !ok {
		return
	}

	if !webhook.VerifySignature(body, c.GetHeader(webhook.HeaderGitHubSignature), h.cfg.GitHubSecret) {
		h.reject(c, name, http.StatusForbidden, "invalid signature")
		return
	}

	event, err := h.cfg.GitHub.ParseWebhook(c.GetHeader(webhook.HeaderGitHubEvent), body)
	if err != nil {
		h.reject(c, name, http.StatusBadRequest, "invalid payload")
		logger.Debug("Unparseable GitHub webhook", zap.Error(err))
		return
	}
	if event.Type == provider.EventTypePing {
		h.record(c, name, outcomeIgnored)
		c.String(http.StatusOK, "pong")
		return
	}

	h.dispatch(c, event, func(err error) int { return http.StatusBadRequest })
}

// HandleGitLab handles POST /api/webhooks/gitlab
func (h *WebhookHandler) HandleGitLab(c *gin.Context) {
	const name = consts.ProviderGitLab
	body, ok := h.readBody(c, name)
	if !ok {
		return
	}

	if !webhook.VerifyToken(c.GetHeader(webhook.HeaderGitLabToken), h.cfg.GitLabSecret) {
		h.reject(c, name, http.StatusForbidden, "invalid token")
		return
	}

	event, err := h.cfg.GitLab.ParseWebhook(c.GetHeader(webhook.HeaderGitLabEvent), body)
	if err != nil {
		h.reject(c, name, http.StatusBadRequest, "invalid payload")
		logger.Debug("Unparseable GitLab webhook", zap.Error(err))
		return
	}

	h.dispatch(c, event, func(err error) int {
		if errors.Is(err, syncer.ErrUserNotFound) {
			return http.StatusNotFound
		}
		return http.StatusBadRequest
	})
}

// dispatch hands a verified event to the syncer. statusFor picks the status
// of resolution errors; a full queue is 503 and anything else 500.
func (h *WebhookHandler) dispatch(c *gin.Context, event *provider.WebhookEvent, statusFor func(error) int) {
	if !event.IsPush() {
		h.record(c, event.Provider, outcomeIgnored)
		c.String(http.StatusOK, "ignored")
		return
	}

	task, err := h.syncer.HandleWebhook(c.Request.Context(), event)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case syncer.IsResolutionError(err):
			status = statusFor(err)
		case errors.Is(err, syncer.ErrQueueFull), errors.Is(err, syncer.ErrStopped):
			status = http.StatusServiceUnavailable
		}
		logger.Warn("Webhook processing failed",
			zap.String("provider", event.Provider),
			zap.String("repo_url", event.RepositoryURL),
			zap.Error(err),
		)
		h.record(c, event.Provider, outcomeFailed)
		c.String(status, toAppError(err).Message)
		return
	}

	logger.Info("Webhook accepted",
		zap.String("provider", event.Provider),
		zap.String("repo_url", event.RepositoryURL),
		zap.String("branch", event.Branch),
		zap.String("task_id", task.ID),
	)
	h.record(c, event.Provider, outcomeProcessed)
	c.String(http.StatusOK, "processed")
}

func (h *WebhookHandler) readBody(c *gin.Context, name string) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		h.reject(c, name, http.StatusBadRequest, "unreadable body")
		return nil, false
	}
	return body, true
}

func (h *WebhookHandler) reject(c *gin.Context, name string, status int, msg string) {
	logger.Warn("Webhook rejected",
		zap.String("provider", name),
		zap.Int("status", status),
		zap.String("reason", msg),
		zap.String("ip", c.ClientIP()),
	)
	h.record(c, name, outcomeRejected)
	c.String(status, msg)
}

func (h *WebhookHandler) record(c *gin.Context, name, outcome string) {
	telemetry.GetMetrics().RecordWebhook(c.Request.Context(), name, outcome)
}
