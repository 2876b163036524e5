package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN          string `mapstructure:"DB_DSN"`
	Environment    string `mapstructure:"ENV"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	HTTPAddr       string `mapstructure:"HTTP_ADDR"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`

	// Telegram admin bot and notifications are disabled when empty.
	TelegramToken string `mapstructure:"TELEGRAM_TOKEN"`

	// The sweep guard falls back to an in-process lock when empty.
	RedisAddr string `mapstructure:"REDIS_ADDR"`

	// Kafka notifications are disabled when no brokers are set.
	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`

	SweepInterval    time.Duration `mapstructure:"SWEEP_INTERVAL"`
	SweepLockTTL     time.Duration `mapstructure:"SWEEP_LOCK_TTL"`
	NotifyMaxRetries uint64        `mapstructure:"NOTIFY_MAX_RETRIES"`
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds the config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		Environment:    getEnv("ENV", "development"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "venue.bookings"),
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	var err error
	if cfg.SweepInterval, err = getDuration("SWEEP_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.SweepLockTTL, err = getDuration("SWEEP_LOCK_TTL", 10*time.Minute); err != nil {
		return nil, err
	}

	cfg.NotifyMaxRetries = 3
	if v := os.Getenv("NOTIFY_MAX_RETRIES"); v != "" {
		cfg.NotifyMaxRetries, err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("NOTIFY_MAX_RETRIES: %w", err)
		}
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
