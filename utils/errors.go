package utils

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/inkpress/inkpress/store"
)

// APIError is a failure that maps directly onto an HTTP response.
type APIError struct {
	Status  int
	Code    int
	Message string
	Details map[string]string
}

func (e *APIError) Error() string {
	return e.Message
}

func BadRequest(code int, message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: code, Message: message}
}

// Conflict is a uniqueness violation. It is reported as 400 like other input errors.
func Conflict(code int, message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: code, Message: message}
}

func Unauthorized(code int, message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: code, Message: message}
}

func Forbidden(code int, message string) *APIError {
	return &APIError{Status: http.StatusForbidden, Code: code, Message: message}
}

func NotFound(code int, message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: code, Message: message}
}

// Fail writes err as a response and aborts the handler chain.
// Store errors are mapped by kind; anything unknown is logged and hidden behind a generic 500.
func Fail(ctx *gin.Context, err error) {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, store.ErrNotFound):
		apiErr = NotFound(40400, "Resource not found")
	default:
		if ce, ok := store.AsConflict(err); ok {
			apiErr = Conflict(40900, capitalize(ce.Field)+" already exists")
			break
		}
		L().Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Error(err),
		)
		apiErr = &APIError{Status: http.StatusInternalServerError, Code: 50000, Message: "Internal server error"}
	}
	ctx.AbortWithStatusJSON(apiErr.Status, JSONResponse{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
