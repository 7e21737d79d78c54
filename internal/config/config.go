package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port                      string
	AllowedOrigin             string
	DatabaseURL               string
	AutoMigrate               bool
	RedisAddr                 string
	RedisPassword             string
	RedisDB                   int
	PermissionCacheTTLSeconds int
	AuthSecret                string
	AccessTokenTTLMinutes     int
	CookieSecure              bool
	RabbitMQURL               string
	StockEventsExchange       string
	LogLevel                  string
	LogPretty                 bool
}

// Load reads configuration from the environment. A .env file in the working
// directory, if present, fills in variables that are not already set.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port:                      getEnv("PORT", "8080"),
		AllowedOrigin:             getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		AutoMigrate:               getBool("AUTO_MIGRATE", true),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		RedisDB:                   getInt("REDIS_DB", 0, 0),
		PermissionCacheTTLSeconds: getInt("PERMISSION_CACHE_TTL_SECONDS", 30, 1),
		AuthSecret:                strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:     getInt("ACCESS_TOKEN_TTL_MINUTES", 10080, 1),
		CookieSecure:              getBool("COOKIE_SECURE", false),
		RabbitMQURL:               os.Getenv("RABBITMQ_URL"),
		StockEventsExchange:       getEnv("STOCK_EVENTS_EXCHANGE", "inventory.stock"),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		LogPretty:                 getBool("LOG_PRETTY", false),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getBool(key string, fallback bool) bool {
	val, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return val
}

// getInt parses key as an integer no smaller than min. Unset values use
// fallback silently; malformed or out-of-range values use it with a warning.
func getInt(key string, fallback int, min int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < min {
		log.Warn().Str("key", key).Str("value", raw).Int("fallback", fallback).Msg("config: invalid integer, using fallback")
		return fallback
	}
	return val
}
