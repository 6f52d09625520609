package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"eventboard/config"
	_ "eventboard/docs"
	"eventboard/internal/adapters/auth"
	"eventboard/internal/adapters/realtime"
	deliveryhttp "eventboard/internal/delivery/http"
	"eventboard/internal/delivery/http/controllers"
	"eventboard/internal/metrics"
	"eventboard/internal/repository/postgres"
	"eventboard/internal/services"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

var (
	// Server flags (override config/env)
	serverPort     string
	migrateOnStart bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables
- Connect to Postgres (optionally applying migrations first)
- Serve the events API, /ws notifications, /health, /metrics and /swagger/
- Shut down gracefully on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  eventboard serve

  # Start on another port and apply migrations first
  eventboard serve --port 9090 --migrate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverPort, "port", "", "server port (default: PORT or 8080)")
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "apply pending migrations before serving")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverPort != "" {
		cfg.Port = serverPort
	}

	logger := config.NewLogger(cfg)
	logger.Info("starting eventboard", "version", Version, "env", cfg.Environment)
	metrics.Init(Version, cfg.Environment)

	if migrateOnStart {
		if err := postgres.MigrateUp(cfg.DBUrl); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	db, err := openDB(cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()

	hub := realtime.NewHub(logger, cfg.NotifierBuffer)
	eventService := services.NewEventService(postgres.NewEventRepository(db), hub, cfg.RequestTimeout)

	router := deliveryhttp.NewRouter(
		deliveryhttp.RouterConfig{
			Logger:         logger,
			Verifier:       auth.NewJWTVerifier(cfg.JWTSecret),
			AllowedOrigins: cfg.AllowedOrigins,
		},
		controllers.NewEventController(logger, eventService),
		controllers.NewHealthController(logger, db, hub),
		hub.Handler(),
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	return gracefulShutdown(server, hub, cfg.ShutdownTimeout, logger, serverErr)
}

func openDB(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return db, nil
}

func gracefulShutdown(server *http.Server, hub *realtime.Hub, timeout time.Duration, logger *slog.Logger, serverErr <-chan error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err, ok := <-serverErr:
		if ok && err != nil {
			hub.Close()
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	// Websocket connections are hijacked, so Shutdown does not wait for them.
	hub.Close()
	if err != nil {
		logger.Error("shutdown error", "err", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}
