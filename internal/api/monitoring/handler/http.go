package monitoringHandler

import (
	monitoringService "DrowsinessMonitor/internal/api/monitoring/service"
	"DrowsinessMonitor/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type MonitoringHandler struct {
	log               *logrus.Logger
	validator         *validator.Validate
	middleware        middleware.Middleware
	monitoringService monitoringService.IMonitoringService
}

func New(
	log *logrus.Logger,
	validate *validator.Validate,
	middleware middleware.Middleware,
	ms monitoringService.IMonitoringService,
) *MonitoringHandler {
	return &MonitoringHandler{
		log:               log,
		validator:         validate,
		middleware:        middleware,
		monitoringService: ms,
	}
}

func (h *MonitoringHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	monitor := srv.Group("/monitor", h.middleware.NewRateLimiter, h.middleware.NewTokenMiddleware)

	monitor.Post("/sessions", h.CreateSession)
	monitor.Get("/sessions/:id", h.GetSnapshot)
	monitor.Delete("/sessions/:id", h.EndSession)
	monitor.Post("/sessions/:id/frames", h.AnalyzeFrame)
	monitor.Post("/sessions/:id/reset", h.ResetSession)
	monitor.Get("/sessions/:id/events", h.ListEvents)

	monitor.Use("/sessions/:id/ws", wsMiddleware)
	monitor.Get("/sessions/:id/ws", websocket.New(h.handleSessionWebSocket))
}
