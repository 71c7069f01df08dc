package ops

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes liveness and metrics endpoints while an ingestion run is in
// flight, so an operator can watch progress without tailing logs.
type Server struct {
	app  *fiber.App
	addr string
	log  *slog.Logger
}

// NewServer builds the ops HTTP surface: /healthz (liveness), /health
// (database connectivity) and /metrics (prometheus registry).
func NewServer(addr string, db *sql.DB, reg *prometheus.Registry, log *slog.Logger) *Server {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unhealthy"})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return &Server{app: app, addr: addr, log: log}
}

// Start listens in a background goroutine. Listen errors are logged, not
// fatal: the pipeline run matters more than the probe surface.
func (s *Server) Start() {
	go func() {
		if err := s.app.Listen(s.addr); err != nil {
			s.log.Error("ops server stopped", "addr", s.addr, "error", err.Error())
		}
	}()
}

// Shutdown stops the listener gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
