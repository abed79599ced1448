package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	credentialdomain "github.com/smallbiznis/payflow/internal/credential/domain"
	orderdomain "github.com/smallbiznis/payflow/internal/order/domain"
	providerdomain "github.com/smallbiznis/payflow/internal/provider/domain"
	refunddomain "github.com/smallbiznis/payflow/internal/refund/domain"
	sessiondomain "github.com/smallbiznis/payflow/internal/session/domain"
	"github.com/smallbiznis/payflow/pkg/db"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	// Refund rejections carry a merchant-facing message; surface it verbatim.
	var insufficient *refunddomain.InsufficientRefundableError
	if errors.As(err, &insufficient) {
		return http.StatusBadRequest, errorPayload{
			Type:    "refund_error",
			Message: insufficient.Error(),
		}
	}

	// Provider faults are upstream rejections, not gateway bugs.
	if fault, ok := providerdomain.AsFault(err); ok {
		return http.StatusBadGateway, errorPayload{
			Type:    "provider_error",
			Message: fault.Message,
		}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: "request", Code: "invalid_request", Message: "invalid request"},
			},
		}
	case errors.Is(err, refunddomain.ErrInvalidAmount),
		errors.Is(err, refunddomain.ErrNotRefundable):
		return http.StatusBadRequest, errorPayload{
			Type:    "refund_error",
			Message: err.Error(),
		}
	case errors.Is(err, credentialdomain.ErrMissingCredentials):
		return http.StatusBadRequest, errorPayload{
			Type:    "missing_credentials",
			Message: err.Error(),
		}
	case errors.Is(err, sessiondomain.ErrMissingSession):
		return http.StatusConflict, errorPayload{
			Type:    "missing_session",
			Message: "no active checkout session",
		}
	case errors.Is(err, sessiondomain.ErrSessionCreation):
		return http.StatusBadGateway, errorPayload{
			Type:    "session_creation_failed",
			Message: err.Error(),
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, orderdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrConflict), db.IsDuplicateKeyErr(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}
