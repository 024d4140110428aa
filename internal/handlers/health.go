package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger is anything the health check can ping
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Healthz reports 200 {"status":"ok"} when every dependency answers
func (h *HealthHandler) Healthz(c echo.Context) error {
	failing := map[string]string{}
	for name, p := range h.checks {
		if p == nil {
			continue
		}
		if err := p.Ping(c.Request().Context()); err != nil {
			failing[name] = err.Error()
		}
	}

	if len(failing) > 0 {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"status": "degraded",
			"checks": failing,
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
