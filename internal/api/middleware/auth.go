package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/codesync/pkg/errors"
	"github.com/verustcode/codesync/pkg/logger"
)

// Identity is the caller carried by a bearer token
type Identity struct {
	Email string
	Role  string
}

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(token string) (*Identity, error)
}

// JWTAuth rejects requests without a valid "Bearer <token>" header with
// 401 E1005 and stores the caller's email and role otherwise. The scheme
// is matched case-insensitively.
func JWTAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortWithError(c, errors.New(errors.ErrCodeUnauthorized, "Authorization header required"))
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			abortWithError(c, errors.New(errors.ErrCodeUnauthorized, "Invalid authorization format"))
			return
		}

		identity, err := validator.ValidateToken(token)
		if err != nil {
			logger.Debug("Bearer token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			abortWithError(c, errors.New(errors.ErrCodeUnauthorized, "Invalid or expired token"))
			return
		}

		c.Set(ContextKeyEmail, identity.Email)
		c.Set(ContextKeyRole, identity.Role)
		c.Next()
	}
}

// CurrentEmail returns the authenticated email, or ""
func CurrentEmail(c *gin.Context) string {
	return c.GetString(ContextKeyEmail)
}

// CurrentRole returns the authenticated role, or ""
func CurrentRole(c *gin.Context) string {
	return c.GetString(ContextKeyRole)
}
