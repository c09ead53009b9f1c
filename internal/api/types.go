package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/config"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/history"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/notify"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/reminder"
	"github.com/kristoffersk85-png/ivf-medicinpaminnare/internal/store"
)

type Server struct {
	app      *fiber.App
	config   *config.Config
	store    *store.Store
	engine   *reminder.Engine
	history  *history.History
	notifier *notify.Notifier
	logger   *zap.Logger
	hub      *wsHub
}

func New(cfg *config.Config, st *store.Store, engine *reminder.Engine, hist *history.History, notifier *notify.Notifier, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	s := &Server{
		app:      app,
		config:   cfg,
		store:    st,
		engine:   engine,
		history:  hist,
		notifier: notifier,
		logger:   logger,
		hub:      newWSHub(logger),
	}

	// Push engine activity and fired notifications to connected
	// clients: scheduling passes, taken doses, day completions.
	engine.AddObserver(func(ev reminder.TakenEvent) {
		s.hub.broadcast(fiber.Map{"type": "taken", "event": ev})
	})
	engine.AddScheduleObserver(func(date string, count int) {
		s.hub.broadcast(fiber.Map{"type": "scheduled", "date": date, "count": count})
	})
	engine.AddCompletionObserver(func(date, message string) {
		s.hub.broadcast(fiber.Map{"type": "completion", "date": date, "message": message})
	})
	notifier.OnDelivered(func(n notify.Notification, firedAt time.Time) {
		s.hub.broadcast(fiber.Map{
			"type":    "notification",
			"title":   n.Title,
			"body":    n.Body,
			"firedAt": firedAt.Unix(),
		})
	})

	s.setupRoutes()
	return s
}
