package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds every runtime setting of the onboarding service
type Config struct {
	Port    string
	GinMode string
	LogMode string

	DBDriver   string // "postgres" or "sqlite"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	SQLitePath string

	JWTSecret     string
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string

	CORSOrigins []string

	RedisAddr    string
	RedisChannel string

	SessionTTL          time.Duration
	CompletionDelay     time.Duration
	QuizMaxAttempts     int
	QuizPassingScore    decimal.Decimal
	SeedDefaultsOnStart bool
}

// Load reads configs/.env (when present) and the process environment
func Load(envFile string) (*Config, bool) {
	loaded := godotenv.Load(envFile) == nil

	cfg := &Config{
		Port:    String("PORT", "8080"),
		GinMode: String("GIN_MODE", "debug"),
		LogMode: String("LOG_MODE", "development"),

		DBDriver:   strings.ToLower(String("DB_DRIVER", "postgres")),
		DBHost:     String("DB_HOST", "localhost"),
		DBPort:     String("DB_PORT", "5432"),
		DBUser:     String("DB_USER", "postgres"),
		DBPassword: String("DB_PASSWORD", "postgres"),
		DBName:     String("DB_NAME", "onboarding"),
		DBSslMode:  String("DB_SSLMODE", "disable"),
		SQLitePath: String("SQLITE_PATH", "onboarding.db"),

		JWTSecret:     String("JWT_SECRET", ""),
		TokenTTL:      Duration("TOKEN_TTL", 24*time.Hour),
		AdminUsername: String("ADMIN_USERNAME", "admin"),
		AdminPassword: String("ADMIN_PASSWORD", "admin"),

		CORSOrigins: List("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"}),

		RedisAddr:    String("REDIS_ADDR", ""),
		RedisChannel: String("REDIS_CHANNEL", "catalog-events"),

		SessionTTL:          Duration("SESSION_TTL", 2*time.Hour),
		CompletionDelay:     Duration("COMPLETION_DISPLAY_DELAY", 2*time.Second),
		QuizMaxAttempts:     Int("QUIZ_MAX_ATTEMPTS", 2),
		QuizPassingScore:    Decimal("QUIZ_PASSING_SCORE", decimal.NewFromInt(1)),
		SeedDefaultsOnStart: Bool("SEED_DEFAULTS", true),
	}

	if cfg.JWTSecret == "" && cfg.GinMode != "release" {
		cfg.JWTSecret = "default_super_secret_key" // development fallback only
	}
	return cfg, loaded
}

// DSN returns the connection string for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSslMode
}

func String(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func Int(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func Bool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func Duration(name string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func Decimal(name string, def decimal.Decimal) decimal.Decimal {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return def
	}
	return d
}

// List splits a comma separated variable, dropping blanks
func List(name string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
