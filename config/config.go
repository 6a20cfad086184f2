// Package config loads and validates the service configuration from the environment.
package config

import (
	"fmt"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Environment names the deployment the service runs in.
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

const (
	mb = 1024 * 1024
	gb = 1024 * mb
)

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes

	ExtractionDelay   time.Duration // Simulated latency of the extraction backend
	ExtractionTimeout time.Duration
	SessionTTL        time.Duration // Idle time after which a session is evicted
	MaxSessions       int

	ReferenceDataDir         string // Empty means the built-in dataset
	ReferenceRefreshInterval time.Duration

	CORSAllowedOrigins []string
	RateLimitRate      float64 // Tokens refilled per second per client
	RateLimitCapacity  int64
	ProxyOnly          bool
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               Environment(strings.ToLower(getEnvWithDefault("ENV", string(EnvDevelopment)))),
		LogLevel:          strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 100*mb),
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", mb),
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", mb),

		ExtractionDelay:   getDurationEnvWithDefault("EXTRACTION_DELAY", 2*time.Second),
		ExtractionTimeout: getDurationEnvWithDefault("EXTRACTION_TIMEOUT", 30*time.Second),
		SessionTTL:        getDurationEnvWithDefault("SESSION_TTL", 30*time.Minute),
		MaxSessions:       getIntEnvWithDefault("MAX_SESSIONS", 10000),

		ReferenceDataDir:         os.Getenv("REFERENCE_DATA_DIR"),
		ReferenceRefreshInterval: getDurationEnvWithDefault("REFERENCE_REFRESH_INTERVAL", 12*time.Hour),

		CORSAllowedOrigins: getListEnvWithDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRate:      getFloatEnvWithDefault("RATE_LIMIT_RATE", 3),
		RateLimitCapacity:  getInt64EnvWithDefault("RATE_LIMIT_CAPACITY", 1000),
		ProxyOnly:          getBoolEnvWithDefault("PROXY_ONLY", false),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	checks := []struct {
		name string
		err  error
	}{
		{"PORT", validatePort(cfg.Port)},
		{"ADDRESS", validateAddress(cfg.Address)},
		{"ENV", validateEnv(cfg.Env)},
		{"LOG_LEVEL", validateLogLevel(cfg.LogLevel)},
		{"LOG_DIR", validateNotEmpty(cfg.LogDir)},
		{"MAX_REQUEST_BODY", validateSizeLimit(cfg.MaxRequestBody)},
		{"MAX_HEADER_SIZE", validateSizeLimit(cfg.MaxHeaderSize)},
		{"LOG_RETENTION_WEEKS", validateLogRetentionWeeks(cfg.LogRetentionWeeks)},
		{"MAX_LOG_FILE_SIZE", validateMaxLogFileSize(cfg.MaxLogFileSize)},
		{"EXTRACTION_DELAY", validateDurationRange(cfg.ExtractionDelay, 0, time.Minute)},
		{"EXTRACTION_TIMEOUT", validateExtractionTimeout(cfg.ExtractionTimeout, cfg.ExtractionDelay)},
		{"SESSION_TTL", validateDurationRange(cfg.SessionTTL, time.Minute, 7*24*time.Hour)},
		{"MAX_SESSIONS", validatePositive(int64(cfg.MaxSessions))},
		{"REFERENCE_DATA_DIR", validateReferenceDir(cfg.ReferenceDataDir)},
		{"REFERENCE_REFRESH_INTERVAL", validateDurationRange(cfg.ReferenceRefreshInterval, time.Minute, 7*24*time.Hour)},
		{"CORS_ALLOWED_ORIGINS", validateOrigins(cfg.CORSAllowedOrigins)},
		{"RATE_LIMIT_RATE", validateRate(cfg.RateLimitRate)},
		{"RATE_LIMIT_CAPACITY", validatePositive(cfg.RateLimitCapacity)},
	}

	for _, c := range checks {
		if c.err != nil {
			return fmt.Errorf("invalid %s: %w", c.name, c.err)
		}
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

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress accepts loopback and private network addresses only.
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

func validateEnv(env Environment) error {
	valid := []Environment{EnvDevelopment, EnvStaging, EnvProduction, EnvTest}
	if !slices.Contains(valid, env) {
		return fmt.Errorf("ENV must be one of: %v, got: %q", valid, env)
	}
	return nil
}

func validateLogLevel(logLevel string) error {
	valid := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(valid, logLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %q", valid, logLevel)
	}
	return nil
}

func validateNotEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}

// validateSizeLimit validates request size limits
func validateSizeLimit(size int64) error {
	if size <= 0 {
		return fmt.Errorf("must be positive, got: %d", size)
	}

	if size > 100*mb {
		return fmt.Errorf("too large (max 100MB), got: %d bytes", size)
	}

	return nil
}

func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("must be positive, got: %d", weeks)
	}

	if weeks > 52 {
		return fmt.Errorf("too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

func validateMaxLogFileSize(size int64) error {
	if size < mb {
		return fmt.Errorf("too small (min 1MB), got: %d bytes", size)
	}

	if size > gb {
		return fmt.Errorf("too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

func validateDurationRange(d, lo, hi time.Duration) error {
	if d < lo || d > hi {
		return fmt.Errorf("must be between %s and %s, got: %s", lo, hi, d)
	}
	return nil
}

func validateExtractionTimeout(timeout, delay time.Duration) error {
	if timeout <= delay {
		return fmt.Errorf("must be greater than EXTRACTION_DELAY (%s), got: %s", delay, timeout)
	}
	return validateDurationRange(timeout, time.Second, 10*time.Minute)
}

func validatePositive(n int64) error {
	if n <= 0 {
		return fmt.Errorf("must be positive, got: %d", n)
	}
	return nil
}

func validateRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("must be positive, got: %g", rate)
	}
	return nil
}

// validateReferenceDir checks that a configured reference directory exists.
func validateReferenceDir(dir string) error {
	if dir == "" {
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

func validateOrigins(origins []string) error {
	if len(origins) == 0 {
		return fmt.Errorf("at least one origin is required")
	}
	for _, o := range origins {
		if o == "*" {
			continue
		}
		if !strings.HasPrefix(o, "http://") && !strings.HasPrefix(o, "https://") {
			return fmt.Errorf("origin %q must start with http:// or https://", o)
		}
	}
	return nil
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

func getFloatEnvWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault accepts Go duration strings ("2s", "30m").
// A malformed value yields -1 so validation reports it instead of silently
// using the default.
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return -1
	}
	return d
}

func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getListEnvWithDefault splits a comma separated variable, dropping blanks.
func getListEnvWithDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"EXTRACTION_DELAY",
		"EXTRACTION_TIMEOUT",
		"SESSION_TTL",
		"MAX_SESSIONS",
		"REFERENCE_DATA_DIR",
		"REFERENCE_REFRESH_INTERVAL",
		"CORS_ALLOWED_ORIGINS",
		"RATE_LIMIT_RATE",
		"RATE_LIMIT_CAPACITY",
		"PROXY_ONLY",
	}
}

// IsProduction reports whether the service runs in a production-like environment.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction || c.Env == EnvStaging
}
