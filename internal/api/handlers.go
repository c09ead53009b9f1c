package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/metrics"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/progress"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/store"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   "0.1.0",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleMetricsJSON(c *fiber.Ctx) error {
	return c.JSON(metrics.GetSnapshot())
}

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	if s.config.Security.AdminPassword != "" && req.Password != s.config.Security.AdminPassword {
		return c.Status(401).JSON(fiber.Map{"error": "invalid password"})
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

func (s *Server) handleToday(c *fiber.Ctx) error {
	view, err := s.engine.Today()
	if err != nil {
		s.logger.Error("Failed to build today view", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to load today"})
	}
	return c.JSON(view)
}

func (s *Server) handleScheduleToday(c *fiber.Ctx) error {
	count, err := s.engine.ScheduleToday(c.Context())
	if err != nil {
		s.logger.Warn("Scheduling finished with errors", zap.Error(err))
	}
	return c.JSON(fiber.Map{"scheduled": count})
}

func (s *Server) handleCancelAll(c *fiber.Ctx) error {
	count, err := s.engine.CancelAllToday()
	if err != nil {
		s.logger.Error("Failed to cancel reminders", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to cancel reminders"})
	}
	return c.JSON(fiber.Map{"cancelled": count})
}

func (s *Server) handleMarkTaken(c *fiber.Ctx) error {
	var req struct {
		MedicineID string `json:"medicineId"`
		Time       string `json:"time"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	message, completed, err := s.engine.MarkTaken(req.MedicineID, req.Time)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	resp := fiber.Map{"completed": completed}
	if completed {
		resp["message"] = message
	}
	return c.JSON(resp)
}

func (s *Server) handleGetSettings(c *fiber.Ctx) error {
	settings, err := s.store.GetSettings()
	if err != nil {
		s.logger.Error("Failed to load settings", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to load settings"})
	}
	return c.JSON(settings)
}

func (s *Server) handleUpdateSettings(c *fiber.Ctx) error {
	var settings store.Settings
	if err := c.BodyParser(&settings); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	if err := s.store.SaveSettings(settings); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	// New times or nag interval take effect right away.
	if _, err := s.engine.ScheduleToday(c.Context()); err != nil {
		s.logger.Warn("Rescheduling after settings change failed", zap.Error(err))
	}

	return c.JSON(settings)
}

func (s *Server) handleGetMedicines(c *fiber.Ctx) error {
	meds, err := s.store.GetMedicines()
	if err != nil {
		s.logger.Error("Failed to load medicines", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to load medicines"})
	}
	return c.JSON(meds)
}

func (s *Server) handleUpdateMedicines(c *fiber.Ctx) error {
	var meds []store.Medicine
	if err := c.BodyParser(&meds); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	if err := s.store.SaveMedicines(meds); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": err.Error()})
	}

	if _, err := s.engine.ScheduleToday(c.Context()); err != nil {
		s.logger.Warn("Rescheduling after medicine change failed", zap.Error(err))
	}

	return c.JSON(meds)
}

func (s *Server) handleHistory(c *fiber.Ctx) error {
	from := c.Query("from")
	to := c.Query("to")

	if from != "" && to != "" {
		if _, err := progress.ParseDate(from); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid from date"})
		}
		if _, err := progress.ParseDate(to); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid to date"})
		}
		events, err := s.history.Range(from, to)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "failed to load history"})
		}
		return c.JSON(events)
	}

	limit := c.QueryInt("limit", 50)
	events, err := s.history.Recent(limit)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to load history"})
	}
	return c.JSON(events)
}

func (s *Server) handleHistorySummary(c *fiber.Ctx) error {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		return c.Status(400).JSON(fiber.Map{"error": "from and to are required"})
	}

	summary, err := s.history.Summary(from, to)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to load summary"})
	}
	return c.JSON(summary)
}

func (s *Server) handleAdherence(c *fiber.Ctx) error {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		return c.Status(400).JSON(fiber.Map{"error": "from and to are required"})
	}

	fromDay, err := progress.ParseDate(from)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid from date"})
	}
	toDay, err := progress.ParseDate(to)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid to date"})
	}
	days := progress.DaysBetween(fromDay, toDay) + 1
	if days < 1 {
		return c.Status(400).JSON(fiber.Map{"error": "to must not be before from"})
	}

	doses, err := s.engine.DeriveTodaysDoses()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to load medicines"})
	}

	rate, err := s.history.AdherenceRate(from, to, len(doses), days)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to compute adherence"})
	}

	return c.JSON(fiber.Map{"from": from, "to": to, "adherence": rate})
}

// ScheduleOnStartup regenerates today's reminders in the background.
func (s *Server) ScheduleOnStartup() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		count, err := s.engine.ScheduleToday(ctx)
		if err != nil {
			s.logger.Warn("Startup scheduling finished with errors", zap.Error(err))
		}
		s.logger.Info("Scheduled reminders on startup", zap.Int("count", count))
	}()
}
