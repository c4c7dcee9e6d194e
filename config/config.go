// Package config loads the service configuration from environment variables
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment is the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment accepts the short and long spellings of each environment
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
}

// Store drivers for the dismissal records
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes
	CORSOrigins       []string

	// Backend serving the medicine snapshot
	BackendURL     string
	BackendToken   string
	BackendTimeout time.Duration

	PollInterval        time.Duration
	BadgeHorizonMonths  int
	AlertsHorizonMonths int
	ReportHorizonDays   int

	StoreDriver   string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               env,
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576),    // 1MB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default
		CORSOrigins:       getListEnvWithDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),

		BackendURL:     getEnvWithDefault("BACKEND_URL", "http://127.0.0.1:8080/api"),
		BackendToken:   os.Getenv("BACKEND_TOKEN"),
		BackendTimeout: getDurationEnvWithDefault("BACKEND_TIMEOUT", 10*time.Second),

		PollInterval:        getDurationEnvWithDefault("POLL_INTERVAL", 60*time.Second),
		BadgeHorizonMonths:  getIntEnvWithDefault("BADGE_HORIZON_MONTHS", 3),
		AlertsHorizonMonths: getIntEnvWithDefault("ALERTS_HORIZON_MONTHS", 6),
		ReportHorizonDays:   getIntEnvWithDefault("REPORT_HORIZON_DAYS", 30),

		StoreDriver:   strings.ToLower(getEnvWithDefault("STORE_DRIVER", StoreSQLite)),
		SQLitePath:    getEnvWithDefault("SQLITE_PATH", "data/dismissals.db"),
		RedisAddr:     getEnvWithDefault("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getIntEnvWithDefault("REDIS_DB", 0),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	// Validate PORT
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	// Validate ADDRESS
	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	// Validate LOG_LEVEL
	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	// Validate MAX_REQUEST_BODY
	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	// Validate MAX_HEADER_SIZE
	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	// Validate LOG_RETENTION_WEEKS
	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	// Validate MAX_LOG_FILE_SIZE
	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validateBackendURL(cfg.BackendURL); err != nil {
		return fmt.Errorf("invalid BACKEND_URL: %w", err)
	}

	if err := validateDuration(cfg.BackendTimeout, time.Second, 5*time.Minute, "BACKEND_TIMEOUT"); err != nil {
		return fmt.Errorf("invalid BACKEND_TIMEOUT: %w", err)
	}

	if err := validateDuration(cfg.PollInterval, time.Second, 24*time.Hour, "POLL_INTERVAL"); err != nil {
		return fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}

	if err := validateHorizon(cfg.BadgeHorizonMonths, 1, 24, "BADGE_HORIZON_MONTHS"); err != nil {
		return fmt.Errorf("invalid BADGE_HORIZON_MONTHS: %w", err)
	}

	if err := validateHorizon(cfg.AlertsHorizonMonths, 1, 24, "ALERTS_HORIZON_MONTHS"); err != nil {
		return fmt.Errorf("invalid ALERTS_HORIZON_MONTHS: %w", err)
	}

	if err := validateHorizon(cfg.ReportHorizonDays, 1, 730, "REPORT_HORIZON_DAYS"); err != nil {
		return fmt.Errorf("invalid REPORT_HORIZON_DAYS: %w", err)
	}

	if err := validateStore(cfg); err != nil {
		return fmt.Errorf("invalid STORE_DRIVER: %w", err)
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	// Check for privileged ports
	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	// Check for localhost/loopback addresses first
	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	// Only loopback and private ranges (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16)
	if !ip.IsLoopback() && !ip.IsPrivate() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 { // 1 year maximum
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateBackendURL requires an absolute http(s) URL
func validateBackendURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("BACKEND_URL must be a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("BACKEND_URL must use http or https, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("BACKEND_URL must include a host, got: %s", raw)
	}
	return nil
}

func validateDuration(d, minimum, maximum time.Duration, configName string) error {
	if d < minimum || d > maximum {
		return fmt.Errorf("%s must be between %s and %s, got: %s", configName, minimum, maximum, d)
	}
	return nil
}

func validateHorizon(n, minimum, maximum int, configName string) error {
	if n < minimum || n > maximum {
		return fmt.Errorf("%s must be between %d and %d, got: %d", configName, minimum, maximum, n)
	}
	return nil
}

// validateStore checks the driver name and the settings it needs
func validateStore(cfg *Config) error {
	switch cfg.StoreDriver {
	case StoreMemory:
		return nil
	case StoreSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH cannot be empty with the sqlite driver")
		}
		return nil
	case StoreRedis:
		if _, _, err := net.SplitHostPort(cfg.RedisAddr); err != nil {
			return fmt.Errorf("REDIS_ADDR must be host:port: %w", err)
		}
		if cfg.RedisDB < 0 || cfg.RedisDB > 15 {
			return fmt.Errorf("REDIS_DB must be between 0 and 15, got: %d", cfg.RedisDB)
		}
		return nil
	}
	return fmt.Errorf("STORE_DRIVER must be one of: [%s %s %s], got: %s", StoreMemory, StoreSQLite, StoreRedis, cfg.StoreDriver)
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getListEnvWithDefault splits a comma separated variable, dropping empty entries
func getListEnvWithDefault(key string, defaultValue []string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getDurationEnvWithDefault accepts Go durations ("90s") or plain seconds ("90")
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"CORS_ALLOWED_ORIGINS",
		"BACKEND_URL",
		"BACKEND_TOKEN",
		"BACKEND_TIMEOUT",
		"POLL_INTERVAL",
		"BADGE_HORIZON_MONTHS",
		"ALERTS_HORIZON_MONTHS",
		"REPORT_HORIZON_DAYS",
		"STORE_DRIVER",
		"SQLITE_PATH",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
	}
}
