package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/codesync/internal/git/provider"
	"github.com/verustcode/codesync/internal/store"
	"github.com/verustcode/codesync/pkg/errors"
	"github.com/verustcode/codesync/pkg/logger"
)

// OAuthHandler links provider accounts to the authenticated user
type OAuthHandler struct {
	store     store.Store
	providers *provider.Registry
}

// NewOAuthHandler creates a new OAuth handler
func NewOAuthHandler(s store.Store, providers *provider.Registry) *OAuthHandler {
	return &OAuthHandler{store: s, providers: providers}
}

// Authorize handles GET /api/oauth/:provider/authorize
func (h *OAuthHandler) Authorize(c *gin.Context) {
	prov, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusOK, prov.AuthorizationURL(c.Query("redirectUri")))
}

// Callback handles GET /api/oauth/:provider/callback. The exchange completes
// before the response is written; the stored token only changes on success.
func (h *OAuthHandler) Callback(c *gin.Context) {
	prov, err := h.providers.Get(c.Param("provider"))
	if err != nil {
		respondError(c, err)
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    errors.ErrCodeValidation,
			"message": "code is required",
		})
		return
	}

	user, ok := currentUser(c, h.store)
	if !ok {
		return
	}

	token, err := prov.ExchangeCode(c.Request.Context(), code, c.Query("redirectUri"))
	if err != nil {
		logger.Warn("OAuth code exchange failed",
			zap.String("provider", prov.Name()),
			zap.Uint("user_id", user.ID),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	if err := h.store.User().UpdateAccessToken(user.ID, prov.Name(), token); err != nil {
		respondError(c, err)
		return
	}

	logger.Info("Provider account linked",
		zap.String("provider", prov.Name()),
		zap.Uint("user_id", user.ID),
		zap.Int("token_len", len(token)),
	)
	c.Status(http.StatusOK)
}
