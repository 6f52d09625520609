package http

import (
	"log/slog"
	"net/http"

	"eventboard/internal/delivery/http/controllers"
	"eventboard/internal/delivery/http/middleware"
	"eventboard/internal/domain"
	"eventboard/internal/metrics"

	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterConfig carries what NewRouter needs besides the controllers.
type RouterConfig struct {
	Logger         *slog.Logger
	Verifier       domain.TokenVerifier
	AllowedOrigins []string
}

// NewRouter initializes the HTTP router with all application routes. Reads and
// the realtime endpoint are public; mutations require a bearer token.
func NewRouter(cfg RouterConfig, events *controllers.EventController, health *controllers.HealthController, realtime http.Handler) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(cfg.Verifier, cfg.Logger)

	// Events
	mux.HandleFunc("GET /events", events.ListEvents)
	mux.HandleFunc("GET /events/{eventID}", events.GetEvent)
	mux.HandleFunc("POST /events", auth(events.CreateEvent))
	mux.HandleFunc("PUT /events/{eventID}", auth(events.UpdateEvent))
	mux.HandleFunc("DELETE /events/{eventID}", auth(events.DeleteEvent))
	mux.HandleFunc("POST /events/{eventID}/join", auth(events.JoinEvent))

	// Realtime notifications
	mux.Handle("GET /ws", realtime)

	// Operations
	mux.HandleFunc("GET /health", health.Health)
	mux.Handle("GET /metrics", metrics.Handler())

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return middleware.CORS(cfg.AllowedOrigins, middleware.LoggingMiddleware(cfg.Logger, metrics.HTTPMiddleware(mux)))
}
