// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"jobmate/hh-collector/internal/model"
)

// ErrMissingEnv is returned when a required variable is unset or empty.
var ErrMissingEnv = errors.New("required environment variable is not set")

const (
	defaultDBHost          = "localhost"
	defaultDBPort          = 5432
	defaultSSLMode         = "disable"
	defaultBaseURL         = "https://api.hh.ru"
	defaultUserAgent       = "jobmate-hh-collector/1.0"
	defaultHTTPTimeout     = 10 * time.Second
	defaultRefreshInterval = 6
	defaultLogLevel        = "info"
)

// Config holds all runtime configuration for the collector.
type Config struct {
	DBName     string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     int
	DBSSLMode  string

	HH           HHConfig
	Employers    []model.Employer
	ExcludeTerms []string // titles containing any of these are not stored
	RefreshHours int
	RedisURL     string // optional; empty disables sync notifications
	LogLevel     string
}

// HHConfig configures the hh.ru API client.
type HHConfig struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Load reads .env (if present) and the process environment and returns a
// validated Config. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	name := required("DB_NAME")
	user := required("DB_USER")
	password := required("DB_PASSWORD")
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	port := defaultDBPort
	if s := os.Getenv("DB_PORT"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 || v > 65535 {
			return nil, fmt.Errorf("DB_PORT must be a valid port number, got %q", s)
		}
		port = v
	}

	hh, err := hhFromEnv()
	if err != nil {
		return nil, err
	}

	interval := defaultRefreshInterval
	if s := os.Getenv("HH_REFRESH_INTERVAL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("HH_REFRESH_INTERVAL_HOURS must be a positive integer, got %q", s)
		}
		interval = v
	}

	employers := model.DefaultEmployers()
	if s := os.Getenv("HH_EMPLOYERS"); s != "" {
		parsed, err := ParseEmployers(s)
		if err != nil {
			return nil, fmt.Errorf("HH_EMPLOYERS: %w", err)
		}
		employers = parsed
	}

	return &Config{
		DBName:       name,
		DBUser:       user,
		DBPassword:   password,
		DBHost:       getenv("DB_HOST", defaultDBHost),
		DBPort:       port,
		DBSSLMode:    getenv("DB_SSLMODE", defaultSSLMode),
		HH:           *hh,
		Employers:    employers,
		ExcludeTerms: splitList(os.Getenv("HH_EXCLUDE_TERMS")),
		RefreshHours: interval,
		RedisURL:     os.Getenv("REDIS_URL"),
		LogLevel:     getenv("LOG_LEVEL", defaultLogLevel),
	}, nil
}

// LoadHH reads only the hh.ru client settings. Commands that never touch the
// database use it so they do not require DB credentials.
func LoadHH() (*HHConfig, error) {
	_ = godotenv.Load()
	return hhFromEnv()
}

// LoadRedisURL reads REDIS_URL for commands that only talk to Redis.
func LoadRedisURL() (string, error) {
	_ = godotenv.Load()
	u := os.Getenv("REDIS_URL")
	if u == "" {
		return "", fmt.Errorf("%w: REDIS_URL", ErrMissingEnv)
	}
	return u, nil
}

func hhFromEnv() (*HHConfig, error) {
	timeout := defaultHTTPTimeout
	if s := os.Getenv("HH_HTTP_TIMEOUT_SECONDS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("HH_HTTP_TIMEOUT_SECONDS must be a positive integer, got %q", s)
		}
		timeout = time.Duration(v) * time.Second
	}

	return &HHConfig{
		BaseURL:   strings.TrimSuffix(getenv("HH_BASE_URL", defaultBaseURL), "/"),
		UserAgent: getenv("HH_USER_AGENT", defaultUserAgent),
		Timeout:   timeout,
	}, nil
}

// DatabaseURL returns the connection URL for the configured database.
func (c *Config) DatabaseURL() string {
	return c.urlFor(c.DBName)
}

// MaintenanceURL returns the connection URL for the "postgres" maintenance
// database, used to create the target database when it does not exist.
func (c *Config) MaintenanceURL() string {
	return c.urlFor("postgres")
}

func (c *Config) urlFor(dbName string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:     "/" + dbName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

// ParseEmployers parses a comma-separated "id:name" list.
func ParseEmployers(s string) ([]model.Employer, error) {
	var out []model.Employer
	seen := make(map[string]bool)
	for _, part := range splitList(s) {
		id, name, ok := strings.Cut(part, ":")
		id, name = strings.TrimSpace(id), strings.TrimSpace(name)
		if !ok || id == "" || name == "" {
			return nil, fmt.Errorf("invalid employer entry %q, want id:name", part)
		}
		if seen[id] {
			return nil, fmt.Errorf("duplicate employer id %q", id)
		}
		seen[id] = true
		out = append(out, model.Employer{ExternalID: id, Name: name})
	}
	if len(out) == 0 {
		return nil, errors.New("no employers listed")
	}
	return out, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
