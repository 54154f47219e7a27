package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"notification-service/internal/config"
	"notification-service/internal/modules/notifications/application/handler"
	"notification-service/internal/modules/notifications/application/port"
	"notification-service/internal/modules/notifications/application/usecase"
	"notification-service/internal/modules/notifications/domain"
	"notification-service/internal/modules/notifications/infrastructure"
	transport "notification-service/internal/modules/notifications/interface"
	"notification-service/internal/platform/broker"
	"notification-service/internal/shared/auth"
	"notification-service/internal/shared/logging"
)

func main() {
	// Attempt to load variables from .env so local runs honour configuration tweaks.
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logFile, logger, err := setupLogging(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(logger)
	slog.Info("logging initialized", slog.String("directory", cfg.Logging.Directory), slog.String("level", cfg.Logging.Level), slog.String("format", cfg.Logging.Format))
	slog.Info("kafka config resolved", slog.Any("brokers", cfg.Kafka.Brokers), slog.String("subscription", cfg.Kafka.Subscription))

	// Redis backs both the distributed presence registry and the fanout
	// bridge. Without it the service still runs with this-instance scope.
	presenceClient, pubClient, subClient := redisClients(cfg.Redis.URL)

	hub := infrastructure.NewHub()
	presence := infrastructure.NewPresenceRegistry(presenceClient)

	var bridge port.FanoutBridge
	redisBridge := infrastructure.NewRedisBridge(pubClient, subClient, hub)
	if pubClient != nil {
		connectCtx, cancelConnect := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisBridge.Connect(connectCtx); err != nil {
			slog.Warn("fanout bridge unavailable, delivery stays instance local", slog.Any("error", err))
		} else {
			bridge = redisBridge
		}
		cancelConnect()
	}

	gateway := usecase.NewGatewayUseCase(presence, hub, bridge)
	validator := auth.NewJWTValidatorWithPublicKey(cfg.Security.JWTSecret, cfg.Security.JWTPublicKey)

	// One handler per task topic, all feeding the same gateway.
	registry := infrastructure.NewHandlerRegistry()
	for _, topic := range domain.RoutedTopics() {
		registry.Register(handler.NewTaskEventsHandler(topic, gateway))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	consumer := broker.NewConsumer(cfg.Kafka.Brokers)
	broker.StartConsumers(ctx, consumer, registry, cfg.Kafka.Subscription, domain.RoutedTopics())

	e := echo.New()
	e.Logger.SetOutput(log.Writer())
	e.GET("/ws/notifications", transport.NewNotificationsWSHandler(hub, gateway, validator, cfg.Websocket.SendBuffer))
	e.POST("/broadcast", transport.NewBroadcastHTTPHandler(gateway), transport.RequireToken(validator))
	e.GET("/stats", transport.NewStatsHTTPHandler(gateway))

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil {
			slog.Error("http server stopped", slog.Any("error", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down")
	cancel()
	consumer.Close()
	_ = redisBridge.Close()
	e.Close()
}

// redisClients builds the three connections the service needs. Pub/sub holds
// the subscriber connection open, so the bridge gets dedicated clients.
func redisClients(url string) (presence, pub, sub *redis.Client) {
	if url == "" {
		return nil, nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		slog.Warn("invalid REDIS_URL, continuing without redis", slog.Any("error", err))
		return nil, nil, nil
	}
	return redis.NewClient(opts), redis.NewClient(opts), redis.NewClient(opts)
}

func setupLogging(cfg config.LoggingConfig) (*os.File, *slog.Logger, error) {
	dir := cfg.Directory
	if dir == "" {
		dir = "./logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	fileName := filepath.Join(dir, time.Now().UTC().Format("2006-01-02")+".log")
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	writer := io.MultiWriter(os.Stdout, file)
	logger := logging.New(writer, logging.Config{
		Level:     cfg.Level,
		Format:    cfg.Format,
		AddSource: true,
	})
	log.SetOutput(writer)
	log.SetFlags(0)
	log.SetPrefix("")

	return file, logger, nil
}
