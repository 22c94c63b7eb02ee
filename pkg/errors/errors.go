// Package errors defines the coded error returned by every layer of the
// service and rendered as {"code","message"} in API responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the stable identifier clients match on. The leading digit
// groups codes by the subsystem that raised them.
type ErrorCode string

const (
	// Request handling (1xxx)
	ErrCodeInternal     ErrorCode = "E1000"
	ErrCodeValidation   ErrorCode = "E1001"
	ErrCodeNotFound     ErrorCode = "E1002"
	ErrCodeConflict     ErrorCode = "E1003"
	ErrCodeForbidden    ErrorCode = "E1004"
	ErrCodeUnauthorized ErrorCode = "E1005"
	ErrCodeUnsupported  ErrorCode = "E1006"

	// Git hosting providers and their webhooks (2xxx)
	ErrCodeProvider            ErrorCode = "E2001"
	ErrCodeProviderTimeout     ErrorCode = "E2002"
	ErrCodeUnsupportedProvider ErrorCode = "E2003"
	ErrCodeWebhookSignature    ErrorCode = "E2004"

	// Sync pipeline (3xxx)
	ErrCodeProjectNotFound   ErrorCode = "E3001"
	ErrCodeUserNotFound      ErrorCode = "E3002"
	ErrCodeMissingCredential ErrorCode = "E3003"
	ErrCodeQueueFull         ErrorCode = "E3004"

	// Reports and exports (4xxx)
	ErrCodeReportNotFound ErrorCode = "E4001"
	ErrCodeExportFailed   ErrorCode = "E4002"

	// Storage (5xxx)
	ErrCodeDBConnection ErrorCode = "E5001"
	ErrCodeDBMigration  ErrorCode = "E5003"

	// Startup configuration (6xxx)
	ErrCodeConfigInvalid    ErrorCode = "E6002"
	ErrCodeJWTSecretInvalid ErrorCode = "E6004"
)

// ExitCodeConfigValidation is the process exit code for invalid configuration.
const ExitCodeConfigValidation = 2

// Codes missing here answer 500.
var httpStatus = map[ErrorCode]int{
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeUnsupportedProvider: http.StatusBadRequest,
	ErrCodeMissingCredential:   http.StatusBadRequest,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeForbidden:           http.StatusForbidden,
	ErrCodeWebhookSignature:    http.StatusForbidden,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeProjectNotFound:     http.StatusNotFound,
	ErrCodeUserNotFound:        http.StatusNotFound,
	ErrCodeReportNotFound:      http.StatusNotFound,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeUnsupported:         http.StatusUnsupportedMediaType,
	ErrCodeProvider:            http.StatusBadGateway,
	ErrCodeQueueFull:           http.StatusServiceUnavailable,
	ErrCodeProviderTimeout:     http.StatusGatewayTimeout,
}

// AppError carries a code, a client-safe message and an optional cause
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
	Details any       `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the code to the response status
func (e *AppError) HTTPStatus() int {
	if status, ok := httpStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithDetails attaches structured context, shown to clients in debug mode
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// ErrInternal wraps an unexpected failure as E1000
func ErrInternal(message string, err error) *AppError {
	return Wrap(ErrCodeInternal, message, err)
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
