package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/domain/route"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	JWT      JWTConfig
	API      APIConfig
	Channel  ChannelConfig
	Tracking TrackingConfig
	Routes   RoutesConfig
	Database DatabaseConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Name           string
	Version        string
	Port           int
	Env            string
	LogLevel       string
	AllowedOrigins []string
	RateLimit      int // API requests per minute per IP
	MetricsEnabled bool
}

// JWTConfig holds JWT configuration. The secret is shared with the HRIS
// backend that issues access tokens.
type JWTConfig struct {
	Secret           string
	AccessExpiration string
	ChannelTokenTTL  time.Duration
}

// APIConfig points the agent at the HRIS REST backend
type APIConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Token    string
	Email    string
	Password string
}

// ChannelConfig holds presence/location channel configuration
type ChannelConfig struct {
	URL            string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	QueueSize      int
	ObserversOnly  bool
}

// TrackingConfig holds the agent's geolocation configuration
type TrackingConfig struct {
	Source       string // static or file
	Latitude     float64
	Longitude    float64
	PositionFile string
	Interval     time.Duration
	Timeout      time.Duration
	MinDistance  float64
}

// RoutesConfig holds the redirect destinations
type RoutesConfig struct {
	Landing           string
	Home              string
	EmployeeDashboard string
	LeaderDashboard   string
}

// DatabaseConfig is optional; an empty URL disables persistence
type DatabaseConfig struct {
	URL      string
	MaxConns int32
}

// Load reads the environment, optionally seeded from a .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	config := &Config{}

	config.App = AppConfig{
		Name:           getEnv("APP_NAME", "hris-portal"),
		Version:        getEnv("APP_VERSION", "v1.0.0"),
		Port:           getEnvInt("APP_PORT", 8080, &errs),
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", "http://localhost:3000"),
		RateLimit:      getEnvInt("RATE_LIMIT_PER_MINUTE", 200, &errs),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true, &errs),
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
		ChannelTokenTTL:  getEnvDuration("JWT_CHANNEL_TOKEN_TTL", 5*time.Minute, &errs),
	}

	config.API = APIConfig{
		BaseURL:  getEnv("API_BASE_URL", "http://localhost:8000/api/v1"),
		Timeout:  getEnvDuration("API_TIMEOUT", 15*time.Second, &errs),
		Token:    getEnv("API_TOKEN", ""),
		Email:    getEnv("API_EMAIL", ""),
		Password: getEnv("API_PASSWORD", ""),
	}

	config.Channel = ChannelConfig{
		URL:            getEnv("CHANNEL_URL", "ws://localhost:8080/ws"),
		ReconnectDelay: getEnvDuration("CHANNEL_RECONNECT_DELAY", 2*time.Second, &errs),
		PingInterval:   getEnvDuration("CHANNEL_PING_INTERVAL", 30*time.Second, &errs),
		WriteTimeout:   getEnvDuration("CHANNEL_WRITE_TIMEOUT", 10*time.Second, &errs),
		QueueSize:      getEnvInt("CHANNEL_QUEUE_SIZE", 32, &errs),
		ObserversOnly:  getEnvBool("CHANNEL_OBSERVERS_ONLY", false, &errs),
	}

	config.Tracking = TrackingConfig{
		Source:       getEnv("TRACKING_SOURCE", "static"),
		Latitude:     getEnvFloat("TRACKING_LATITUDE", 0, &errs),
		Longitude:    getEnvFloat("TRACKING_LONGITUDE", 0, &errs),
		PositionFile: getEnv("TRACKING_POSITION_FILE", ""),
		Interval:     getEnvDuration("TRACKING_INTERVAL", 10*time.Second, &errs),
		Timeout:      getEnvDuration("TRACKING_TIMEOUT", 5*time.Second, &errs),
		MinDistance:  getEnvFloat("TRACKING_MIN_DISTANCE", 0, &errs),
	}

	defaults := route.DefaultPaths()
	config.Routes = RoutesConfig{
		Landing:           getEnv("ROUTE_LANDING", defaults.Landing),
		Home:              getEnv("ROUTE_HOME", defaults.Home),
		EmployeeDashboard: getEnv("ROUTE_EMPLOYEE_DASHBOARD", defaults.EmployeeDashboard),
		LeaderDashboard:   getEnv("ROUTE_LEADER_DASHBOARD", defaults.LeaderDashboard),
	}

	config.Database = DatabaseConfig{
		URL:      getEnv("DATABASE_URL", ""),
		MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10, &errs)),
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return config, nil
}

// ValidatePortal checks what the portal server needs
func (c *Config) ValidatePortal() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.App.Port <= 0 {
		return fmt.Errorf("APP_PORT must be positive")
	}
	if c.App.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	return c.validateRoutes()
}

// ValidateAgent checks what the tracking agent needs
func (c *Config) ValidateAgent() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if c.Channel.URL == "" {
		return fmt.Errorf("CHANNEL_URL is required")
	}
	switch c.Tracking.Source {
	case "static":
	case "file":
		if c.Tracking.PositionFile == "" {
			return fmt.Errorf("TRACKING_POSITION_FILE is required when TRACKING_SOURCE=file")
		}
	default:
		return fmt.Errorf("unsupported TRACKING_SOURCE %q", c.Tracking.Source)
	}
	return c.validateRoutes()
}

func (c *Config) validateRoutes() error {
	for name, p := range map[string]string{
		"ROUTE_LANDING":            c.Routes.Landing,
		"ROUTE_HOME":               c.Routes.Home,
		"ROUTE_EMPLOYEE_DASHBOARD": c.Routes.EmployeeDashboard,
		"ROUTE_LEADER_DASHBOARD":   c.Routes.LeaderDashboard,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%s must be an absolute path", name)
		}
	}
	return nil
}

// Paths returns the configured redirect destinations
func (c *Config) Paths() route.Paths {
	return route.Paths{
		Landing:           c.Routes.Landing,
		Home:              c.Routes.Home,
		EmployeeDashboard: c.Routes.EmployeeDashboard,
		LeaderDashboard:   c.Routes.LeaderDashboard,
	}
}

// SlogLevel maps LOG_LEVEL to a slog level
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64, errs *[]error) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return d
}

func getEnvSlice(key, fallback string) []string {
	value := getEnv(key, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
