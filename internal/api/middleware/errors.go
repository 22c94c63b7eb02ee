package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/verustcode/codesync/pkg/errors"
)

const hiddenMessage = "Internal server error"

// ErrorHandler renders the last error attached with c.Error when the
// handler wrote nothing itself. Non-AppErrors become E1000. Outside debug
// mode 5xx messages are replaced and details are dropped.
func ErrorHandler(debugMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		appErr, ok := errors.AsAppError(err)
		if !ok {
			appErr = errors.ErrInternal(err.Error(), err)
		}
		status := appErr.HTTPStatus()

		body := gin.H{"code": appErr.Code, "message": appErr.Message}
		if status >= http.StatusInternalServerError && !debugMode {
			body["message"] = hiddenMessage
		}
		if debugMode && appErr.Details != nil {
			body["details"] = appErr.Details
		}
		c.JSON(status, body)
	}
}

func abortWithError(c *gin.Context, err *errors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus(), gin.H{"code": err.Code, "message": err.Message})
}
