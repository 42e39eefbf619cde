// Package respond writes the JSON envelope every dashboard endpoint returns:
//
//	{"success": true, "data": ...}
//	{"success": false, "error": {"code": "...", "message": "...", "details": ...}}
//
// Error causes are logged here and never serialised.
package respond

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/creavibe/creavibe/internal/apperr"
)

// Envelope is the response body shape
type Envelope struct {
	Success bool          `json:"success"`
	Data    interface{}   `json:"data,omitempty"`
	Error   *apperr.Error `json:"error,omitempty"`
}

// OK writes 200 with data
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes 201 with data
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Success: true, Data: data})
}

// Error writes the failure envelope for err with its mapped status and aborts the chain
func Error(c *gin.Context, err error) {
	e := classify(c, err)
	c.AbortWithStatusJSON(e.HTTPStatus(), Envelope{Success: false, Error: e})
}

// BareError is Error for routes that use the bare {error, message} body
func BareError(c *gin.Context, err error) {
	e := classify(c, err)
	Bare(c, e.HTTPStatus(), string(e.Code), e.Message)
}

// Bare writes the {error, message} body used by the rate limiter, the public API and
// the billing webhook, and aborts the chain.
func Bare(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}

// classify converts err and logs server-side failures with their cause
func classify(c *gin.Context, err error) *apperr.Error {
	e := apperr.From(err)
	if e.HTTPStatus() >= http.StatusInternalServerError {
		requestID, _ := c.Get("request_id")
		slog.Error("request failed",
			"code", e.Code,
			"error", err,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", requestID,
		)
	}
	return e
}
