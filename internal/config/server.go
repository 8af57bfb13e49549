package config

import (
	"DrowsinessMonitor/database/postgres"
	monitoringHandler "DrowsinessMonitor/internal/api/monitoring/handler"
	monitoringRepository "DrowsinessMonitor/internal/api/monitoring/repository"
	monitoringService "DrowsinessMonitor/internal/api/monitoring/service"
	"DrowsinessMonitor/internal/middleware"
	"DrowsinessMonitor/pkg/alert"
	"DrowsinessMonitor/pkg/audio"
	"DrowsinessMonitor/pkg/drowsiness"
	"DrowsinessMonitor/pkg/mqtt"
	"DrowsinessMonitor/pkg/redis"
	"DrowsinessMonitor/pkg/s3"
	"DrowsinessMonitor/pkg/telegram"
	"DrowsinessMonitor/pkg/utils"
	websocketPkg "DrowsinessMonitor/pkg/websocket"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"os"
	"time"
)

type ServerOption func(*Server) error

type Server struct {
	engine           *fiber.App
	db               *sqlx.DB
	log              *logrus.Logger
	middleware       middleware.Middleware
	validator        *validator.Validate
	utils            utils.IUtils
	handlers         []handler
	analyzerConfig   drowsiness.Config
	redisServer      redis.IRedis
	landmarkProvider websocketPkg.ILandmarkProvider
	mqttPublisher    mqtt.IPublisher
	sinks            []alert.Sink
	monitoring       monitoringService.IMonitoringService
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{analyzerConfig: drowsiness.DefaultConfig()}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.middleware == nil {
		return nil, fmt.Errorf("middleware is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

// WithAnalyzerConfig loads server-wide thresholds from path, or uses the
// defaults when path is empty.
func WithAnalyzerConfig(path string) ServerOption {
	return func(s *Server) error {
		cfg, err := LoadAnalyzerConfig(path)
		if err != nil {
			return err
		}
		s.analyzerConfig = cfg
		return nil
	}
}

// WithRedisServer shares the alert cooldown through Redis. Without
// REDIS_ADDRESS the cooldown stays in process memory.
func WithRedisServer() ServerOption {
	return func(s *Server) error {
		if os.Getenv("REDIS_ADDRESS") == "" {
			s.log.Warn("REDIS_ADDRESS not set, using in-memory alert cooldown")
			return nil
		}
		client, err := redis.New()
		if err != nil {
			return fmt.Errorf("failed to create Redis client: %w", err)
		}
		s.redisServer = client
		return nil
	}
}

func WithLandmarkProvider(provider websocketPkg.ILandmarkProvider) ServerOption {
	return func(s *Server) error {
		s.landmarkProvider = provider
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

// WithSpeechAlerts speaks alerts through OpenAI TTS and archives the clips to
// S3 when AWS_BUCKET_NAME is set.
func WithSpeechAlerts() ServerOption {
	return func(s *Server) error {
		tts, err := audio.NewTTSService()
		if err != nil {
			s.log.Warnf("Speech alerts disabled: %v", err)
			return nil
		}

		var archive alert.Archiver
		if os.Getenv("AWS_BUCKET_NAME") != "" {
			client, err := s3.New()
			if err != nil {
				return fmt.Errorf("failed to create S3 client: %w", err)
			}
			archive = client
		}

		s.sinks = append(s.sinks, alert.NewSpeechSink(tts, archive))
		return nil
	}
}

func WithMQTTAlerts() ServerOption {
	return func(s *Server) error {
		if os.Getenv("MQTT_BROKER") == "" {
			return nil
		}
		publisher, err := mqtt.New(s.log)
		if err != nil {
			return fmt.Errorf("failed to create MQTT publisher: %w", err)
		}
		s.mqttPublisher = publisher
		s.sinks = append(s.sinks, alert.NewPublishSink(publisher, os.Getenv("MQTT_ALERT_TOPIC")))
		return nil
	}
}

func WithTelegramAlerts() ServerOption {
	return func(s *Server) error {
		if os.Getenv("TELEGRAM_BOT_TOKEN") == "" {
			return nil
		}
		sender, err := telegram.New()
		if err != nil {
			return fmt.Errorf("failed to create Telegram sender: %w", err)
		}
		s.sinks = append(s.sinks, alert.NewChatSink(sender))
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) newNotifier() alert.INotifier {
	opts := []alert.Option{alert.WithSinks(s.sinks...)}
	if s.redisServer != nil {
		opts = append(opts, alert.WithCooldown(s.redisServer))
	}
	if raw := os.Getenv("ALERT_COOLDOWN"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil {
			opts = append(opts, alert.WithWindow(d))
		} else {
			s.log.Warnf("Ignoring invalid ALERT_COOLDOWN %q: %v", raw, err)
		}
	}
	return alert.New(s.log, opts...)
}

func (s *Server) RegisterHandler() {
	if s.utils == nil {
		s.utils = utils.New()
	}

	// Monitoring Domain
	monitoringRepo := monitoringRepository.New(s.db, s.log)
	s.monitoring = monitoringService.NewMonitoringService(s.log, monitoringRepo, s.landmarkProvider, s.newNotifier(), s.utils, s.analyzerConfig)
	monitoringHandlers := monitoringHandler.New(s.log, s.validator, s.middleware, s.monitoring)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, monitoringHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops accepting requests, ends live sessions and releases clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.engine.ShutdownWithContext(ctx)

	if s.monitoring != nil {
		s.monitoring.Shutdown(ctx)
	}
	if s.landmarkProvider != nil {
		s.landmarkProvider.Close()
	}
	if s.mqttPublisher != nil {
		s.mqttPublisher.Disconnect()
	}
	if s.redisServer != nil {
		s.redisServer.Close()
	}
	if s.db != nil {
		s.db.Close()
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		body := fiber.Map{
			"message":       "Server is Healthy!",
			"alert_sinks":   len(s.sinks),
			"shared_alerts": s.redisServer != nil,
		}
		if s.landmarkProvider != nil {
			body["landmark_provider"] = s.landmarkProvider.IsConnected()
		}
		if s.mqttPublisher != nil {
			body["mqtt"] = s.mqttPublisher.Stats()
		}
		return ctx.JSON(body)
	})
}
