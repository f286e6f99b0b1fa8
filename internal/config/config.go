package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds application configuration from environment.
type Config struct {
	HTTPPort              string
	DatabaseURL           string
	DBPoolSize            int
	RedisURL              string
	RedisPoolSize         int
	CacheTTL              int // seconds
	KafkaBrokers          []string
	KafkaAuditTopic       string
	KafkaPartitions       int
	JWTSecret             string
	TokenTTLHours         int
	BcryptCost            int
	NotificationRetention int // max persisted notifications per user
	MissedWindowDays      int // lookback for notifications:missed on reconnect
}

var (
	cfg     *Config
	cfgOnce sync.Once
)

// Get returns the application config (loads once from env).
func Get() *Config {
	cfgOnce.Do(func() {
		cfg = &Config{
			HTTPPort:              getEnv("HTTP_PORT", "8080"),
			DatabaseURL:           os.Getenv("DATABASE_URL"),
			DBPoolSize:            getIntEnv("DB_POOL_SIZE", 50),
			RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
			RedisPoolSize:         getIntEnv("REDIS_POOL_SIZE", 100),
			CacheTTL:              getIntEnv("CACHE_TTL_SEC", 300),
			KafkaBrokers:          getSliceEnv("KAFKA_BROKERS", "localhost:9092"),
			KafkaAuditTopic:       getEnv("KAFKA_AUDIT_TOPIC", "task-audit"),
			KafkaPartitions:       getIntEnv("KAFKA_PARTITIONS", 4),
			JWTSecret:             os.Getenv("JWT_SECRET"),
			TokenTTLHours:         getIntEnv("TOKEN_TTL_HOURS", 24),
			BcryptCost:            getIntEnv("BCRYPT_COST", 10),
			NotificationRetention: getIntEnv("NOTIFICATION_RETENTION", 15),
			MissedWindowDays:      getIntEnv("MISSED_WINDOW_DAYS", 7),
		}
	})
	return cfg
}

// GetJWTSecret returns JWT secret from config (for middleware that only has context).
func GetJWTSecret(ctx context.Context) string {
	return Get().JWTSecret
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func getSliceEnv(key, defaultVal string) []string {
	if v := os.Getenv(key); v != "" {
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{defaultVal}
}
