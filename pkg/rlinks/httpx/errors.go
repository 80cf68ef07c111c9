// Package httpx holds the gin glue shared by every handler: error responses,
// request ids and access logging.
package httpx

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/rlinks/pkg/rlinks/errx"
)

// Client-facing messages.
const (
	MessageUnauthorized = "Unauthorized access."
	MessageInternal     = "Internal server error."
	MessageNotFound     = "Not found."
	MessageInvalid      = "Invalid request."
)

// StatusOf maps an error kind to the HTTP status it is reported with.
func StatusOf(kind errx.Kind) int {
	switch kind {
	case errx.Invalid:
		return http.StatusBadRequest
	case errx.Unauthorized:
		return http.StatusUnauthorized
	case errx.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns what the client is allowed to see for err.
// Internal errors never leak their detail.
func PublicMessage(err error) string {
	kind := errx.KindOf(err)
	msg := errx.MessageOf(err)
	switch kind {
	case errx.Invalid:
		if msg != "" {
			return msg
		}
		return MessageInvalid
	case errx.Unauthorized:
		if msg != "" {
			return msg
		}
		return MessageUnauthorized
	case errx.NotFound:
		if msg != "" {
			return msg
		}
		return MessageNotFound
	default:
		return MessageInternal
	}
}

// WriteError aborts the request with {"error": msg}. Internal and unknown
// errors are logged with their full chain.
func WriteError(c *gin.Context, err error) {
	kind := errx.KindOf(err)
	status := StatusOf(kind)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"request_id", GetRequestID(c),
			"route", c.FullPath(),
			"error", err.Error())
	} else {
		slog.DebugContext(c.Request.Context(), "request rejected",
			"request_id", GetRequestID(c),
			"kind", kind.String(),
			"error", err.Error())
	}
	c.AbortWithStatusJSON(status, gin.H{"error": PublicMessage(err)})
}

// Unauthorized aborts with the generic authorization failure.
func Unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": MessageUnauthorized})
}
