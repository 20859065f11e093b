package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/locvowork/tasktracker/internal/logger"
	"github.com/locvowork/tasktracker/internal/service/serviceutils"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	db      Pinger
	timeout time.Duration
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db, timeout: 2 * time.Second}
}

func (h *HealthHandler) RootHandler(c echo.Context) error {
	return serviceutils.ResponseSuccess(c, http.StatusOK, "Task tracker API", nil)
}

// HealthzHandler reports 503 when the database does not answer a ping.
func (h *HealthHandler) HealthzHandler(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		logger.WarnLog(ctx, "health check failed: %v", err)
		return serviceutils.ResponseError(c, http.StatusServiceUnavailable, "database unavailable", "unavailable")
	}
	return serviceutils.ResponseSuccess(c, http.StatusOK, "ok", nil)
}
