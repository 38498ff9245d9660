package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// PagedResponse is JSONResponse plus pagination counters for list endpoints.
type PagedResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	Pages   int         `json:"pages"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard 200 response.
func Success(ctx *gin.Context, message string, data interface{}) {
	Respond(ctx, http.StatusOK, 0, message, data)
}

// Created returns a standard 201 response.
func Created(ctx *gin.Context, message string, data interface{}) {
	Respond(ctx, http.StatusCreated, 0, message, data)
}

// Paged returns one page of a list with its totals.
func Paged(ctx *gin.Context, message string, data interface{}, total int64, page, limit int) {
	ctx.JSON(http.StatusOK, NewPagedResponse(message, data, total, page, limit))
}

// NewPagedResponse computes the page count for total items split by limit.
func NewPagedResponse(message string, data interface{}, total int64, page, limit int) PagedResponse {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return PagedResponse{Code: 0, Message: message, Data: data, Total: total, Page: page, Pages: pages}
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}
