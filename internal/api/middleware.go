package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// rateLimitMiddleware throttles the whole API with a token bucket. The rate
// comes from configuration; burst is double the sustained rate so short UI
// bursts pass.
func (s *Server) rateLimitMiddleware() fiber.Handler {
	rps := s.config.Security.RequestsPerSec
	if rps <= 0 {
		rps = 20
	}
	limiter := rate.NewLimiter(rate.Limit(rps), int(rps*2))

	return func(c *fiber.Ctx) error {
		if !limiter.Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}

func (s *Server) metricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		s.metrics.HTTPRequestsTotal.
			WithLabelValues(c.Method(), strconv.Itoa(c.Response().StatusCode())).
			Inc()
		return err
	}
}
