package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	LogLevel        slog.Level
	HTTPAddr        string        `validate:"required"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`

	StoreDriver     string `validate:"oneof=memory sqlite mongo"`
	StoreSeedFile   string
	SQLitePath      string `validate:"required_if=StoreDriver sqlite"`
	MongoURI        string `validate:"required_if=StoreDriver mongo"`
	MongoDatabase   string `validate:"required_if=StoreDriver mongo"`
	MongoCollection string `validate:"required_if=StoreDriver mongo"`

	LookupTimeout time.Duration `validate:"gt=0"`
	RenderWait    time.Duration `validate:"gt=0"`

	ResolveTimeout      time.Duration `validate:"gt=0,ltfield=WriteTimeout"`
	ResolveMaxRedirects int           `validate:"gte=1,lte=50"`
	ResolveCacheTTL     time.Duration `validate:"gt=0"`
	ResolveCacheSize    int           `validate:"gt=0"`

	RedisEnabled  bool
	RedisAddr     string `validate:"required_if=RedisEnabled true"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	AMQPURL      string `validate:"omitempty,url"`
	AMQPExchange string `validate:"required_with=AMQPURL"`

	RateLimitPerWindow int           `validate:"gt=0"`
	RateLimitWindow    time.Duration `validate:"gt=0"`
	RateLimitWhitelist []string
	TrustedProxies     []string `validate:"dive,ip"`

	PublicBaseURL  string `validate:"omitempty,url"`
	AllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:        getLogLevelEnv("LOG_LEVEL", slog.LevelInfo),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		ReadTimeout:     getDurationEnv("READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),

		StoreDriver:     strings.ToLower(getEnv("STORE_DRIVER", "memory")),
		StoreSeedFile:   getEnv("STORE_SEED_FILE", ""),
		SQLitePath:      getEnv("SQLITE_PATH", "stopdesk.db"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "stopdesk"),
		MongoCollection: getEnv("MONGO_COLLECTION", "EcoStop"),

		LookupTimeout: getDurationEnv("LOOKUP_TIMEOUT", 5*time.Second),
		RenderWait:    getDurationEnv("RENDER_WAIT", 3*time.Second),

		ResolveTimeout:      getDurationEnv("RESOLVE_TIMEOUT", 8*time.Second),
		ResolveMaxRedirects: getIntEnv("RESOLVE_MAX_REDIRECTS", 10),
		ResolveCacheTTL:     getDurationEnv("RESOLVE_CACHE_TTL", 24*time.Hour),
		ResolveCacheSize:    getIntEnv("RESOLVE_CACHE_SIZE", 1024),

		RedisEnabled:  getBoolEnv("REDIS_ENABLED", false),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "stopdesk.visits"),

		RateLimitPerWindow: getIntEnv("RATE_LIMIT_PER_WINDOW", 60),
		RateLimitWindow:    getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitWhitelist: getCSVEnv("RATE_LIMIT_WHITELIST"),
		TrustedProxies:     getCSVEnv("TRUSTED_PROXIES"),

		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		AllowedOrigins: getCSVEnv("ALLOWED_ORIGINS"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getLogLevelEnv(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}

	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return defaultVal
	}
}

func getCSVEnv(key string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			result = append(result, t)
		}
	}
	return result
}
