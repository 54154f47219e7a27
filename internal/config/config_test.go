package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	for _, key := range []string{"PORT", "KAFKA_BROKERS", "KAFKA_BROKER", "KAFKA_SUBSCRIPTION", "WS_SEND_BUFFER"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "3003" {
		t.Fatalf("unexpected port %q", cfg.Server.Port)
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Brokers[0] != "localhost:9092" {
		t.Fatalf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.Subscription != "notification-service" {
		t.Fatalf("unexpected subscription %q", cfg.Kafka.Subscription)
	}
	if cfg.Websocket.SendBuffer != 8 {
		t.Fatalf("unexpected send buffer %d", cfg.Websocket.SendBuffer)
	}
}

func TestLoadBrokerList(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092 ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
}

func TestLoadRequiresJWTKey(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("JWT_PUBLIC_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without jwt key material")
	}
}

func TestLoadRejectsInvalidSendBuffer(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("WS_SEND_BUFFER", "zero")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid send buffer")
	}
}
