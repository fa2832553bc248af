package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env              string
	HTTPAddr         string
	WSEndpoint       string
	APIBaseURL       string
	AuthToken        string
	ReconnectDelay   time.Duration
	HandshakeTimeout time.Duration
	CallTimeout      time.Duration
	KafkaBrokers     []string
	KafkaTopicPrefix string
	KafkaGroupID     string
}

// Load parses configuration from the current environment. Kafka brokers are
// optional: without them the relay fans out locally only.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		WSEndpoint:       getEnv("CHAT_WS_ENDPOINT", "http://localhost:8080/ws"),
		APIBaseURL:       getEnv("CHAT_API_BASE_URL", "http://localhost:8080"),
		AuthToken:        os.Getenv("CHAT_AUTH_TOKEN"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaGroupID:     getEnv("KAFKA_GROUP_ID", ""),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		for _, raw := range strings.Split(brokers, ",") {
			if b := strings.TrimSpace(raw); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	reconnect, err := parseDurationEnv("CHAT_RECONNECT_DELAY", 3*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.ReconnectDelay = reconnect

	handshake, err := parseDurationEnv("CHAT_HANDSHAKE_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.HandshakeTimeout = handshake

	call, err := parseDurationEnv("CHAT_API_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.CallTimeout = call

	if cfg.WSEndpoint == "" {
		return Config{}, fmt.Errorf("CHAT_WS_ENDPOINT is required")
	}
	if cfg.ReconnectDelay <= 0 {
		return Config{}, fmt.Errorf("CHAT_RECONNECT_DELAY must be positive")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}
