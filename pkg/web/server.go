// Package web exposes the interaction pipeline over HTTP.
package web

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jarv1s/jarv1s/internal/config"
	"github.com/jarv1s/jarv1s/internal/log"
	"github.com/jarv1s/jarv1s/pkg/health"
	"github.com/jarv1s/jarv1s/pkg/orchestrator"
)

// Server is the HTTP front of the assistant.
type Server struct {
	app      *fiber.App
	orch     *orchestrator.Orchestrator
	reporter *health.Reporter
}

// Options configures the server.
type Options struct {
	CORSOrigins string

	// RequestLog enables per-request access logging.
	RequestLog bool

	// MaxBodyBytes caps the upload size. Zero means the Fiber default.
	MaxBodyBytes int
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(orch *orchestrator.Orchestrator, reporter *health.Reporter, opts Options) *Server {
	cfg := fiber.Config{
		AppName:               config.AppName,
		DisableStartupMessage: true,
	}
	if opts.MaxBodyBytes > 0 {
		cfg.BodyLimit = opts.MaxBodyBytes
	}
	app := fiber.New(cfg)

	app.Use(recover.New())
	origins := opts.CORSOrigins
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if opts.RequestLog {
		app.Use(logger.New())
	}

	s := &Server{
		app:      app,
		orch:     orch,
		reporter: reporter,
	}

	app.Get("/", s.handleRoot)
	app.Get("/health", s.handleHealth)
	app.Post("/interact", s.handleInteract)
	app.Post("/reset", s.handleReset)
	app.Get("/conversation/info", s.handleConversationInfo)

	return s
}

// Listen serves requests on addr until shutdown.
func (s *Server) Listen(addr string) error {
	log.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying Fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
