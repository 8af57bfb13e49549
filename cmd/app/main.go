package main

import (
	"DrowsinessMonitor/internal/config"
	"DrowsinessMonitor/pkg/log"
	websocketPkg "DrowsinessMonitor/pkg/websocket"
	"github.com/joho/godotenv"
	"golang.org/x/net/context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.NewLogger().Fatalf("Error loading .env file: %v", err)
	}
	logger := log.NewLogger()

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()

	options := []config.ServerOption{
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithAnalyzerConfig(os.Getenv("ANALYZER_CONFIG_FILE")),
		config.WithDatabase(),
		config.WithRedisServer(),
		config.WithMiddleware(),
		config.WithSpeechAlerts(),
		config.WithMQTTAlerts(),
		config.WithTelegramAlerts(),
		config.WithUtils(),
	}
	if os.Getenv("FACE_MESH_WS_URL") != "" {
		options = append(options, config.WithLandmarkProvider(websocketPkg.NewFaceMeshClient(logger)))
	}

	server, err := config.NewServer(options...)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
