package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/codesync/internal/git/provider"
	"github.com/verustcode/codesync/pkg/logger"
)

// GitHubHelperHandler serves the unauthenticated /github/* helper routes.
// They answer with plain text.
type GitHubHelperHandler struct {
	github provider.Provider
}

// NewGitHubHelperHandler creates a handler over the GitHub provider
func NewGitHubHelperHandler(github provider.Provider) *GitHubHelperHandler {
	return &GitHubHelperHandler{github: github}
}

// Auth handles GET /github/auth
func (h *GitHubHelperHandler) Auth(c *gin.Context) {
	c.String(http.StatusOK, h.github.AuthorizationURL(c.Query("redirectUri")))
}

// Token handles GET /github/token
func (h *GitHubHelperHandler) Token(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.String(http.StatusBadRequest, "code is required")
		return
	}

	token, err := h.github.ExchangeCode(c.Request.Context(), code, c.Query("redirectUri"))
	if err != nil {
		respondText(c, http.StatusBadRequest, err)
		return
	}
	logger.Info("GitHub code exchanged", zap.Int("token_len", len(token)))
	c.String(http.StatusOK, token)
}

// Code handles GET /github/code
func (h *GitHubHelperHandler) Code(c *gin.Context) {
	repositoryURL := provider.NormalizeURL(c.Query("repositoryUrl"))
	accessToken := c.Query("accessToken")
	if repositoryURL == "" || accessToken == "" {
		c.String(http.StatusBadRequest, "repositoryUrl and accessToken are required")
		return
	}
	if !h.github.MatchesURL(repositoryURL) {
		respondText(c, http.StatusBadRequest, fmt.Errorf("%w: %s", provider.ErrUnsupportedProvider, repositoryURL))
		return
	}

	content, err := h.github.FetchRepositoryContent(c.Request.Context(), repositoryURL, accessToken, "")
	if err != nil {
		respondText(c, http.StatusBadRequest, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", content)
}
