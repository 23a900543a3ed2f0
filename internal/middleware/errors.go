package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront/internal/apperr"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Stack   string `json:"stack,omitempty"`
}

// Errors writes the failure envelope for the last error recorded on the
// context. Handlers call c.Error and return; nothing else writes error bodies.
func Errors(log zerolog.Logger, production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := apperr.Status(err)
		message := apperr.Message(err)
		if message == "" {
			message = "Server Error"
		}

		if status >= http.StatusInternalServerError {
			log.Error().
				Err(err).
				Str("request_id", RequestIDFrom(c)).
				Str("path", c.Request.URL.Path).
				Msg("request failed")
			report(c, err)
		}

		resp := errorResponse{Success: false, Error: message}
		if !production {
			resp.Stack = stackOf(err, status)
		}
		c.JSON(status, resp)
	}
}

func stackOf(err error, status int) string {
	var p *panicError
	if errors.As(err, &p) {
		return string(p.stack)
	}
	if status >= http.StatusInternalServerError {
		return fmt.Sprintf("%+v", err)
	}
	return ""
}

func report(c *gin.Context, err error) {
	hub := sentry.CurrentHub().Clone()
	hub.Scope().SetTag("request_id", RequestIDFrom(c))
	hub.Scope().SetRequest(c.Request)
	hub.CaptureException(err)
}
