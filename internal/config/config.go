package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type ServerConfig struct {
	Port string
}

type KafkaConfig struct {
	Brokers []string
	// Subscription prefixes the consumer group of every topic subscription.
	Subscription string
}

type RedisConfig struct {
	// URL is a redis:// connection string. Empty disables the distributed
	// presence registry and the cross-instance fanout bridge.
	URL string
}

type SecurityConfig struct {
	JWTSecret    string
	JWTPublicKey string
}

type LoggingConfig struct {
	Directory string
	Level     string
	Format    string
}

type WebsocketConfig struct {
	SendBuffer int
}

type Config struct {
	Server    ServerConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Websocket WebsocketConfig
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "3003"),
		},
		Kafka: KafkaConfig{
			Brokers:      splitList(getEnv("KAFKA_BROKERS", getEnv("KAFKA_BROKER", "localhost:9092"))),
			Subscription: getEnv("KAFKA_SUBSCRIPTION", "notification-service"),
		},
		Redis: RedisConfig{
			URL: strings.TrimSpace(os.Getenv("REDIS_URL")),
		},
		Security: SecurityConfig{
			JWTSecret:    os.Getenv("JWT_SECRET"),
			JWTPublicKey: os.Getenv("JWT_PUBLIC_KEY"),
		},
		Logging: LoggingConfig{
			Directory: getEnv("LOG_DIR", "./logs"),
			Level:     getEnv("LOG_LEVEL", "info"),
			Format:    getEnv("LOG_FORMAT", "text"),
		},
		Websocket: WebsocketConfig{
			SendBuffer: 8,
		},
	}

	if raw := strings.TrimSpace(os.Getenv("WS_SEND_BUFFER")); raw != "" {
		buf, err := strconv.Atoi(raw)
		if err != nil || buf <= 0 {
			return nil, fmt.Errorf("invalid WS_SEND_BUFFER %q", raw)
		}
		cfg.Websocket.SendBuffer = buf
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if cfg.Security.JWTSecret == "" && cfg.Security.JWTPublicKey == "" {
		return nil, fmt.Errorf("JWT_SECRET or JWT_PUBLIC_KEY must be set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
