package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gmsas95/medtrack-cli/internal/calendar"
	apperrors "github.com/gmsas95/medtrack-cli/internal/errors"
	"github.com/gmsas95/medtrack-cli/internal/medication"
	"github.com/gmsas95/medtrack-cli/internal/registry"
)

// respondError maps engine error codes onto HTTP statuses.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	status := 500
	switch apperrors.GetCode(err) {
	case apperrors.CodeValidation:
		status = 400
	case apperrors.CodeNotFound:
		status = 404
	case apperrors.CodePrecondition:
		status = 409
	case apperrors.CodePersistence:
		status = 500
	}
	if status == 500 {
		s.logger.Error("Request failed", zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  apperrors.GetCode(err),
	})
}

func (s *Server) handleListMedications(c *fiber.Ctx) error {
	return c.JSON(s.registry.ListAll())
}

func (s *Server) handleAddMedication(c *fiber.Ctx) error {
	var data medication.Data
	if err := c.BodyParser(&data); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	snap, err := s.registry.Add(c.Context(), data)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(201).JSON(snap)
}

func (s *Server) handleGetMedication(c *fiber.Ctx) error {
	snap, err := s.registry.Get(c.Params("id"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(snap)
}

func (s *Server) handleUpdateMedication(c *fiber.Ctx) error {
	var patch registry.Patch
	if err := c.BodyParser(&patch); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	snap, err := s.registry.Update(c.Context(), c.Params("id"), patch)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(snap)
}

func (s *Server) handleReplaceMedication(c *fiber.Ctx) error {
	var data medication.Data
	if err := c.BodyParser(&data); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	snap, err := s.registry.Replace(c.Context(), c.Params("id"), data)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(snap)
}

func (s *Server) handleRemoveMedication(c *fiber.Ctx) error {
	if err := s.registry.Remove(c.Context(), c.Params("id")); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(204)
}

// doseRequest is the body for take and skip. A missing timestamp means now;
// a past one backfills a dose that was logged late.
type doseRequest struct {
	At    *time.Time `json:"at,omitempty"`
	Notes string     `json:"notes,omitempty"`
}

func (s *Server) handleTakeDose(c *fiber.Ctx) error {
	var req doseRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
	}

	snap, err := s.registry.Take(c.Context(), c.Params("id"), req.At, req.Notes)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(snap)
}

func (s *Server) handleSkipDose(c *fiber.Ctx) error {
	var req doseRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
		}
	}

	snap, err := s.registry.Skip(c.Context(), c.Params("id"), req.At, req.Notes)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(snap)
}

func (s *Server) handleRefill(c *fiber.Ctx) error {
	var req struct {
		Amount int `json:"amount"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	snap, err := s.registry.Refill(c.Context(), c.Params("id"), req.Amount)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(snap)
}

func (s *Server) handleSetSupply(c *fiber.Ctx) error {
	var req struct {
		Value int `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	snap, err := s.registry.SetSupply(c.Context(), c.Params("id"), req.Value)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(snap)
}

func (s *Server) handleCalendar(c *fiber.Ctx) error {
	now := time.Now()
	start, err := parseTimeParam(c.Query("start"), medication.StartOfDay(now))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid start parameter"})
	}
	end, err := parseTimeParam(c.Query("end"), medication.EndOfDay(now.AddDate(0, 0, 7)))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid end parameter"})
	}

	events := calendar.Range(s.registry.Documents(), start, end, now)
	return c.JSON(fiber.Map{"events": events})
}

func (s *Server) handleSweep(c *fiber.Ctx) error {
	result := s.sweeper.RunOnce(c.Context())
	return c.JSON(result)
}

// parseTimeParam accepts RFC3339 or a bare date.
func parseTimeParam(v string, fallback time.Time) (time.Time, error) {
	if v == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", v, time.Local)
}
