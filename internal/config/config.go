package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppPort    string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	CartBackend     string
	RedisAddr       string
	RedisPassword   string
	RedisDB         string
	CartSnapshotTTL string

	KafkaBrokers           string
	KafkaClientID          string
	KafkaTopicPartitions   string
	KafkaReplicationFactor string
	EventDrivenEnabled     string

	TracingEnabled string
	JaegerEndpoint string

	AllowedOrigins string
}

func Load() *Config {
	return &Config{
		AppPort:    getEnv("APP_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "storefrontdb"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		CartBackend:     getEnv("CART_BACKEND", "redis"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnv("REDIS_DB", "0"),
		CartSnapshotTTL: getEnv("CART_SNAPSHOT_TTL", "720h"),

		KafkaBrokers:           getEnv("KAFKA_BROKERS", "kafka:9092"),
		KafkaClientID:          getEnv("KAFKA_CLIENT_ID", "storefront-checkout"),
		KafkaTopicPartitions:   getEnv("KAFKA_TOPIC_PARTITIONS", "3"),
		KafkaReplicationFactor: getEnv("KAFKA_REPLICATION_FACTOR", "1"),
		EventDrivenEnabled:     getEnv("EVENT_DRIVEN_ENABLED", "false"),

		TracingEnabled: getEnv("TRACING_ENABLED", "false"),
		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),

		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "*"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) TopicPartitions() int {
	return parseInt(c.KafkaTopicPartitions, 3)
}

func (c *Config) ReplicationFactor() int16 {
	value := parseInt(c.KafkaReplicationFactor, 1)
	return int16(value)
}

func (c *Config) RedisDBNumber() int {
	parsed, err := strconv.Atoi(c.RedisDB)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

// SnapshotTTL parses CART_SNAPSHOT_TTL; carts outlive browser sessions, so
// the fallback is 30 days.
func (c *Config) SnapshotTTL() time.Duration {
	parsed, err := time.ParseDuration(c.CartSnapshotTTL)
	if err != nil || parsed <= 0 {
		return 720 * time.Hour
	}
	return parsed
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
