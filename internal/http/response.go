package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tazhibayda/event-service/internal/apperr"
	"github.com/tazhibayda/event-service/internal/log"
	"go.uber.org/zap"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

func ok(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, Envelope{Success: true, Message: msg, Data: data})
}

func fail(c *gin.Context, status int, msg string, detail any) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Message: msg, Error: detail})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Auth:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

// respondErr writes err in the envelope with the status of its kind.
func respondErr(c *gin.Context, err error) {
	writeErr(c, err, statusFor(apperr.KindOf(err)))
}

// respondAuthErr answers every modeled failure of the /api/auth routes with 400.
func respondAuthErr(c *gin.Context, err error) {
	writeErr(c, err, http.StatusBadRequest)
}

func writeErr(c *gin.Context, err error, status int) {
	if apperr.KindOf(err) == apperr.Upstream {
		log.WithDD(c.Request.Context(), log.L(),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("route", c.FullPath()),
		).Error("request failed", zap.Error(err))
	}
	var detail any
	if cause := apperr.Cause(err); cause != "" {
		detail = cause
	}
	fail(c, status, apperr.Message(err), detail)
}
