package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/pkg/db/pagination"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string            `json:"type"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Errors  []errs.FieldError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized = errs.ErrUnauthorized
	ErrForbidden    = errs.ErrForbidden
	ErrNotFound     = errs.ErrNotFound
	ErrInternal     = errors.New("internal_error")
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

func invalidRequestError() error {
	return errs.Invalid("request", "invalid_request", "invalid request body")
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return internalError()
	}

	var verrs *errs.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, errorPayload{
			Type:    string(errs.KindValidationFailed),
			Code:    string(errs.KindValidationFailed),
			Message: "validation error",
			Errors:  verrs.Errors,
		}
	}

	switch {
	case errors.Is(err, pagination.ErrInvalidPageToken):
		return http.StatusBadRequest, errorPayload{
			Type:    string(errs.KindValidationFailed),
			Code:    "invalid_page_token",
			Message: "invalid page token",
			Errors:  []errs.FieldError{{Field: "page_token", Code: "invalid", Message: "invalid page token"}},
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    string(errs.KindNotFound),
			Code:    string(errs.KindNotFound),
			Message: "not found",
		}
	}

	kind := errs.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		return internalError()
	}
	return status, errorPayload{
		Type:    string(kind),
		Code:    errs.CodeOf(err),
		Message: messageByKind[kind],
	}
}

func internalError() (int, errorPayload) {
	return http.StatusInternalServerError, errorPayload{
		Type:    "internal_error",
		Code:    "internal_error",
		Message: "internal server error",
	}
}

var statusByKind = map[errs.Kind]int{
	errs.KindUnauthorized:           http.StatusUnauthorized,
	errs.KindForbidden:              http.StatusForbidden,
	errs.KindNotFound:               http.StatusNotFound,
	errs.KindValidationFailed:       http.StatusBadRequest,
	errs.KindInvalidState:           http.StatusConflict,
	errs.KindConcurrentModification: http.StatusConflict,
	errs.KindTooManyRequests:        http.StatusTooManyRequests,
}

var messageByKind = map[errs.Kind]string{
	errs.KindUnauthorized:           "unauthorized",
	errs.KindForbidden:              "forbidden",
	errs.KindNotFound:               "not found",
	errs.KindValidationFailed:       "validation error",
	errs.KindInvalidState:           "operation not allowed in the current state",
	errs.KindConcurrentModification: "resource was modified concurrently",
	errs.KindTooManyRequests:        "too many requests",
}

// classifyErrorForLog feeds the request logger's error_type and error_code fields.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	return payload.Type, payload.Code
}
