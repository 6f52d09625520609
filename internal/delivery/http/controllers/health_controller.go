package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"eventboard/internal/delivery/http/helpers"
)

const healthPingTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ListenerCounter reports connected realtime listeners.
type ListenerCounter interface {
	ListenerCount() int
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Listeners int    `json:"listeners"`
}

type HealthController struct {
	Logger    *slog.Logger
	DB        Pinger
	Listeners ListenerCounter
}

func NewHealthController(logger *slog.Logger, db Pinger, listeners ListenerCounter) *HealthController {
	return &HealthController{Logger: logger, DB: db, Listeners: listeners}
}

// Health godoc
// @Summary Health check
// @Description Reports database reachability and the number of realtime listeners.
// @Tags health
// @Produce json
// @Success 200 {object} helpers.APIResponse "data contains status and listeners"
// @Failure 503 {object} helpers.APIResponse "error.code: service_unavailable"
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()
	if err := c.DB.PingContext(ctx); err != nil {
		c.Logger.WarnContext(r.Context(), "health check failed", "err", err)
		helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrCodeServiceUnavailable, "database unreachable")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, HealthResponse{Status: "ok", Listeners: c.Listeners.ListenerCount()})
}
