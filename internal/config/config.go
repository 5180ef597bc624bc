package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port       string
	Env        string
	DBAdapter  string
	SQLiteFile string

	// Token signing secrets. Both are required; a missing secret is a
	// startup error, not a per-request condition.
	AccessTokenSecret  string
	RefreshTokenSecret string

	// PostgreSQL connection settings
	PostgresDSN      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// External learning-platform API
	AnalyticsAPIURL string
	AnalyticsAPIKey string

	// Global per-IP request limit
	RateLimitPerMinute int
	RateLimitBurst     int

	// Failed-login throttle
	LoginMaxAttempts  int
	LoginBlockMinutes int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// BuildPostgresDSN constructs a PostgreSQL DSN from individual components or
// returns the provided DSN.
func (c *Config) BuildPostgresDSN() (string, error) {
	if c.PostgresDSN != "" {
		return c.PostgresDSN, nil
	}

	if c.PostgresHost == "" {
		return "", errors.New("POSTGRES_HOST or POSTGRES_DSN must be set")
	}
	if c.PostgresUser == "" {
		return "", errors.New("POSTGRES_USER must be set")
	}
	if c.PostgresDB == "" {
		return "", errors.New("POSTGRES_DB must be set")
	}

	port := c.PostgresPort
	if port == "" {
		port = "5432"
	}

	sslMode := c.PostgresSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		c.PostgresHost, port, c.PostgresUser, c.PostgresDB, sslMode)

	if c.PostgresPassword != "" {
		dsn += " password=" + c.PostgresPassword
	}

	return dsn, nil
}

// Production reports whether the process runs with ENV=production, which
// turns on the Secure attribute on session cookies.
func (c *Config) Production() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

func New() (*Config, error) {
	c := &Config{
		Port:       getenv("PORT", "8080"),
		Env:        getenv("ENV", getenv("NODE_ENV", "development")),
		DBAdapter:  getenv("DB_ADAPTER", "postgres"),
		SQLiteFile: getenv("SQLITE_FILE", "./data/learnboard.db"),

		AccessTokenSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),

		PostgresDSN:      getenv("POSTGRES_DSN", ""),
		PostgresHost:     getenv("POSTGRES_HOST", getenv("DB_HOST", "localhost")),
		PostgresPort:     getenv("POSTGRES_PORT", getenv("DB_PORT", "5432")),
		PostgresUser:     getenv("POSTGRES_USER", getenv("DB_USER", "learnboard")),
		PostgresPassword: getenv("POSTGRES_PASSWORD", getenv("DB_PASSWORD", "")),
		PostgresDB:       getenv("POSTGRES_DB", getenv("DB_NAME", "learnboard")),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", getenv("DB_SSLMODE", "disable")),

		AnalyticsAPIURL: getenv("ANALYTICS_API_URL", ""),
		AnalyticsAPIKey: getenv("ANALYTICS_API_KEY", ""),

		RateLimitPerMinute: getenvInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:     getenvInt("RATE_LIMIT_BURST", 30),

		LoginMaxAttempts:  getenvInt("LOGIN_MAX_ATTEMPTS", 5),
		LoginBlockMinutes: getenvInt("LOGIN_BLOCK_MINUTES", 15),
	}

	if c.AccessTokenSecret == "" {
		return nil, errors.New("ACCESS_TOKEN_SECRET must be set")
	}
	if c.RefreshTokenSecret == "" {
		return nil, errors.New("REFRESH_TOKEN_SECRET must be set")
	}

	if c.DBAdapter == "postgres" {
		dsn, err := c.BuildPostgresDSN()
		if err != nil {
			return nil, fmt.Errorf("postgres configuration error: %w", err)
		}
		c.PostgresDSN = dsn
	}

	if c.DBAdapter == "sqlite" && c.SQLiteFile == "" {
		return nil, errors.New("SQLITE_FILE must be set when DB_ADAPTER=sqlite")
	}

	if _, err := strconv.Atoi(c.Port); err != nil {
		return nil, fmt.Errorf("invalid PORT: %s", c.Port)
	}

	return c, nil
}
