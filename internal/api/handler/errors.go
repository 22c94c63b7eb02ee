package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/verustcode/codesync/internal/git/provider"
	"github.com/verustcode/codesync/internal/store"
	"github.com/verustcode/codesync/internal/syncer"
	"github.com/verustcode/codesync/internal/webhook"
	pkgerrors "github.com/verustcode/codesync/pkg/errors"
	"github.com/verustcode/codesync/pkg/logger"
)

// toAppError maps domain errors onto API error codes. Unknown errors become
// internal errors with a generic message.
func toAppError(err error) *pkgerrors.AppError {
	if appErr, ok := pkgerrors.AsAppError(err); ok {
		return appErr
	}

	var provErr *provider.ProviderError
	switch {
	case errors.As(err, &provErr):
		if provErr.Timeout {
			return pkgerrors.Wrap(pkgerrors.ErrCodeProviderTimeout, provErr.Message(), err)
		}
		return pkgerrors.Wrap(pkgerrors.ErrCodeProvider, provErr.Message(), err)
	case errors.Is(err, webhook.ErrInvalidSignature):
		return pkgerrors.Wrap(pkgerrors.ErrCodeWebhookSignature, "invalid signature", err)
	case errors.Is(err, syncer.ErrProjectNotFound):
		return pkgerrors.Wrap(pkgerrors.ErrCodeProjectNotFound, "Project not found", err)
	case errors.Is(err, syncer.ErrUserNotFound):
		return pkgerrors.Wrap(pkgerrors.ErrCodeUserNotFound, "User not found", err)
	case errors.Is(err, syncer.ErrMissingCredential):
		return pkgerrors.Wrap(pkgerrors.ErrCodeMissingCredential, err.Error(), err)
	case errors.Is(err, syncer.ErrNoRepository):
		return pkgerrors.Wrap(pkgerrors.ErrCodeValidation, err.Error(), err)
	case errors.Is(err, provider.ErrUnsupportedProvider):
		return pkgerrors.Wrap(pkgerrors.ErrCodeUnsupportedProvider, "unsupported provider", err)
	case errors.Is(err, syncer.ErrQueueFull), errors.Is(err, syncer.ErrStopped):
		return pkgerrors.Wrap(pkgerrors.ErrCodeQueueFull, err.Error(), err)
	case errors.Is(err, store.ErrDuplicate):
		return pkgerrors.Wrap(pkgerrors.ErrCodeConflict, "Resource already exists", err)
	case store.IsNotFound(err):
		return pkgerrors.Wrap(pkgerrors.ErrCodeNotFound, "Resource not found", err)
	}
	return pkgerrors.ErrInternal("Internal server error", err)
}

// respondError writes err as a {code, message} JSON body. The cause is logged,
// never returned.
func respondError(c *gin.Context, err error) {
	appErr := toAppError(err)
	status := appErr.HTTPStatus()

	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.String("code", string(appErr.Code)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", fields...)
	} else {
		logger.Debug("Request rejected", fields...)
	}

	c.JSON(status, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	})
}

// respondText writes err as plain text, for the helper endpoints that answer
// with opaque strings.
func respondText(c *gin.Context, status int, err error) {
	logger.Warn("Request failed",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	msg := err.Error()
	var provErr *provider.ProviderError
	if errors.As(err, &provErr) {
		msg = provErr.Message()
	}
	c.String(status, msg)
}
