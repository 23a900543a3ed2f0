package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string            `json:"status"`
	Checks      map[string]string `json:"checks"`
	Environment string            `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	code := http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		checks[name] = "ok"
		if err := h.checks[name](ctx); err != nil {
			checks[name] = "error"
			status = "degraded"
			code = http.StatusServiceUnavailable
			h.log.Error().Err(err).Str("check", name).Msg("health check failed")
		}
	}

	c.JSON(code, healthResponse{
		Status:      status,
		Checks:      checks,
		Environment: h.cfg.Environment,
	})
}
