package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/gmsas95/medtrack-cli/internal/config"
	"github.com/gmsas95/medtrack-cli/internal/events"
	"github.com/gmsas95/medtrack-cli/internal/metrics"
	"github.com/gmsas95/medtrack-cli/internal/registry"
	"github.com/gmsas95/medtrack-cli/internal/sweep"
)

// Server handles the HTTP API and the WebSocket event feed.
type Server struct {
	app      *fiber.App
	config   *config.Config
	registry *registry.Registry
	sweeper  *sweep.Sweeper
	bus      *events.Bus
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// New creates the API server and wires up all routes.
func New(cfg *config.Config, reg *registry.Registry, sweeper *sweep.Sweeper, bus *events.Bus, m *metrics.Metrics, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	s := &Server{
		app:      app,
		config:   cfg,
		registry: reg,
		sweeper:  sweeper,
		bus:      bus,
		metrics:  m,
		logger:   logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Security.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))
	s.app.Use(s.rateLimitMiddleware())
	s.app.Use(s.metricsMiddleware())

	s.app.Get("/api/health", s.handleHealth)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	api := s.app.Group("/api")
	api.Post("/auth/login", s.handleLogin)

	protected := api.Use(s.authMiddleware())

	protected.Get("/medications", s.handleListMedications)
	protected.Post("/medications", s.handleAddMedication)
	protected.Get("/medications/:id", s.handleGetMedication)
	protected.Patch("/medications/:id", s.handleUpdateMedication)
	protected.Put("/medications/:id", s.handleReplaceMedication)
	protected.Delete("/medications/:id", s.handleRemoveMedication)

	protected.Post("/medications/:id/take", s.handleTakeDose)
	protected.Post("/medications/:id/skip", s.handleSkipDose)
	protected.Post("/medications/:id/refill", s.handleRefill)
	protected.Post("/medications/:id/supply", s.handleSetSupply)

	protected.Get("/calendar", s.handleCalendar)
	protected.Post("/sweep", s.handleSweep)

	s.app.Get("/ws", websocket.New(s.handleWebSocket))
}

// Start starts the server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   "0.1.0",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "default",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(7 * 24 * time.Hour).Unix(),
	})

	tokenString, err := token.SignedString([]byte(s.config.Security.JWTSecret))
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to generate token"})
	}

	return c.JSON(fiber.Map{"token": tokenString})
}

// handleWebSocket streams registry events to the client until it hangs up.
func (s *Server) handleWebSocket(c *websocket.Conn) {
	defer c.Close()

	ch, cancel := s.bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if err := c.WriteJSON(evt); err != nil {
				s.logger.Warn("WebSocket write error", zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) authMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth := c.Get("Authorization")
		if auth == "" {
			return c.Status(401).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenString := strings.TrimPrefix(auth, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			return []byte(s.config.Security.JWTSecret), nil
		})

		if err != nil || !token.Valid {
			return c.Status(401).JSON(fiber.Map{"error": "invalid token"})
		}

		return c.Next()
	}
}
