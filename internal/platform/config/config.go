package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr                  string
	Environment           string
	LogLevel              string
	SeedFile              string
	WeekendDays           []int
	ShortLeaveHoursPerDay float64
	KafkaBrokers          []string
	KafkaTopic            string
	MetricsEnabled        bool
	RateLimitPerMinute    int
	MaxBodyBytes          int64
}

// Load reads the process environment. A .env file in the working directory,
// when present, fills variables that are not already set.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:                  getEnv("APP_ADDR", ":8080"),
		Environment:           getEnv("APP_ENV", "development"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		SeedFile:              getEnv("SEED_FILE", ""),
		WeekendDays:           getEnvInts("WEEKEND_DAYS", []int{0, 6}),
		ShortLeaveHoursPerDay: getEnvFloat("SHORT_LEAVE_HOURS_PER_DAY", 8),
		KafkaBrokers:          getEnvList("KAFKA_BROKERS", nil),
		KafkaTopic:            getEnv("KAFKA_TOPIC", "hr.leave.workflow.v1"),
		MetricsEnabled:        getEnvBool("METRICS_ENABLED", true),
		RateLimitPerMinute:    getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		MaxBodyBytes:          int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvInts treats a set-but-empty variable as an explicit empty list.
func getEnvInts(key string, fallback []int) []int {
	if _, ok := os.LookupEnv(key); !ok {
		return fallback
	}
	out := []int{}
	for _, part := range getEnvList(key, nil) {
		parsed, err := strconv.Atoi(part)
		if err != nil {
			return fallback
		}
		out = append(out, parsed)
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("APP_ADDR is required")
	}
	for _, day := range c.WeekendDays {
		if day < 0 || day > 6 {
			return fmt.Errorf("WEEKEND_DAYS entries must be between 0 and 6, got %d", day)
		}
	}
	if c.ShortLeaveHoursPerDay <= 0 {
		return fmt.Errorf("SHORT_LEAVE_HOURS_PER_DAY must be positive")
	}
	if len(c.KafkaBrokers) > 0 && strings.TrimSpace(c.KafkaTopic) == "" {
		return fmt.Errorf("KAFKA_TOPIC must be set when KAFKA_BROKERS is set")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}
