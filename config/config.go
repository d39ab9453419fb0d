// Package config has the configuration file for the app
package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. Values are read once at
// startup; client packages receive their own explicit config structs built
// from these fields, never the environment directly.
type Config struct {
	Port              string
	Address           string
	Env               string
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes

	// ReferenceDir overrides the embedded reference tables when set.
	ReferenceDir string

	// External sources
	BdpmURL        string
	AnnuaireURL    string
	AnnuaireAPIKey string
	OdisseURL      string
	SourceTimeout  time.Duration
	ResultLimit    int

	// Interpretation fallback
	LLMBaseURL       string
	LLMAPIKey        string // empty disables the LLM fallback
	LLMModel         string
	LLMTimeout       time.Duration
	LLMRatePerMinute int
	ConfidenceFloor  float64

	// Response cache
	CacheTTL      time.Duration
	RedisAddr     string // empty selects the in-memory cache
	RedisPassword string
	RedisDB       int

	// ProfileSeed optionally points at a YAML file of session profiles.
	ProfileSeed string
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               getEnvWithDefault("ENV", "dev"),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 65536),      // 64KB default, queries are small
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default

		ReferenceDir: getEnvWithDefault("REFERENCE_DIR", ""),

		BdpmURL:        getEnvWithDefault("BDPM_URL", "https://api-bdpm-graphql.axel-op.fr/graphql"),
		AnnuaireURL:    getEnvWithDefault("ANNUAIRE_URL", "https://gateway.api.esante.gouv.fr/fhir/v1"),
		AnnuaireAPIKey: getEnvWithDefault("ANNUAIRE_API_KEY", ""),
		OdisseURL:      getEnvWithDefault("ODISSE_URL", "https://odisse.santepubliquefrance.fr/api"),
		SourceTimeout:  getDurationEnvWithDefault("SOURCE_TIMEOUT", 5*time.Second),
		ResultLimit:    getIntEnvWithDefault("RESULT_LIMIT", 10),

		LLMBaseURL:       getEnvWithDefault("LLM_BASE_URL", "https://api.x.ai/v1"),
		LLMAPIKey:        getEnvWithDefault("LLM_API_KEY", ""),
		LLMModel:         getEnvWithDefault("LLM_MODEL", "grok-2-1212"),
		LLMTimeout:       getDurationEnvWithDefault("LLM_TIMEOUT", 12*time.Second),
		LLMRatePerMinute: getIntEnvWithDefault("LLM_RATE_PER_MINUTE", 30),
		ConfidenceFloor:  getFloatEnvWithDefault("CONFIDENCE_FLOOR", 0.5),

		CacheTTL:      getDurationEnvWithDefault("CACHE_TTL", 30*time.Minute),
		RedisAddr:     getEnvWithDefault("REDIS_ADDR", ""),
		RedisPassword: getEnvWithDefault("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnvWithDefault("REDIS_DB", 0),

		ProfileSeed: getEnvWithDefault("PROFILE_SEED", ""),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SlogLevel maps the configured log level to its slog value.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	for name, value := range map[string]string{
		"BDPM_URL":     cfg.BdpmURL,
		"ANNUAIRE_URL": cfg.AnnuaireURL,
		"ODISSE_URL":   cfg.OdisseURL,
		"LLM_BASE_URL": cfg.LLMBaseURL,
	} {
		if err := validateBaseURL(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	if err := validateTimeout(cfg.SourceTimeout, "SOURCE_TIMEOUT"); err != nil {
		return fmt.Errorf("invalid SOURCE_TIMEOUT: %w", err)
	}

	if err := validateTimeout(cfg.LLMTimeout, "LLM_TIMEOUT"); err != nil {
		return fmt.Errorf("invalid LLM_TIMEOUT: %w", err)
	}

	if err := validateResultLimit(cfg.ResultLimit); err != nil {
		return fmt.Errorf("invalid RESULT_LIMIT: %w", err)
	}

	if cfg.ConfidenceFloor < 0 || cfg.ConfidenceFloor > 1 {
		return fmt.Errorf("invalid CONFIDENCE_FLOOR: must be within [0,1], got: %v", cfg.ConfidenceFloor)
	}

	if cfg.LLMRatePerMinute < 1 || cfg.LLMRatePerMinute > 600 {
		return fmt.Errorf("invalid LLM_RATE_PER_MINUTE: must be between 1 and 600, got: %d", cfg.LLMRatePerMinute)
	}

	if cfg.CacheTTL < time.Minute || cfg.CacheTTL > 24*time.Hour {
		return fmt.Errorf("invalid CACHE_TTL: must be between 1m and 24h, got: %s", cfg.CacheTTL)
	}

	if cfg.RedisDB < 0 || cfg.RedisDB > 15 {
		return fmt.Errorf("invalid REDIS_DB: must be between 0 and 15, got: %d", cfg.RedisDB)
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

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env string) error {
	if env == "" {
		return fmt.Errorf("ENV cannot be empty")
	}

	validEnvs := []string{"dev", "staging", "prod", "test"}
	env = strings.ToLower(env)

	for _, validEnv := range validEnvs {
		if env == validEnv {
			return nil
		}
	}

	return fmt.Errorf("ENV must be one of: %v, got: %s", validEnvs, env)
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

// validateBaseURL validates an external source base URL
func validateBaseURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("base URL is not parseable: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base URL must use http or https, got: %s", raw)
	}

	if u.Host == "" {
		return fmt.Errorf("base URL has no host: %s", raw)
	}

	return nil
}

// validateTimeout validates an external call timeout
func validateTimeout(d time.Duration, configName string) error {
	if d < time.Second {
		return fmt.Errorf("%s is too short (min 1s), got: %s", configName, d)
	}

	if d > 2*time.Minute {
		return fmt.Errorf("%s is too long (max 2m), got: %s", configName, d)
	}

	return nil
}

// validateResultLimit validates the RESULT_LIMIT environment variable
func validateResultLimit(limit int) error {
	if limit < 1 || limit > 100 {
		return fmt.Errorf("RESULT_LIMIT must be between 1 and 100, got: %d", limit)
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

// getDurationEnvWithDefault gets an environment variable as a duration with a default value
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getFloatEnvWithDefault gets an environment variable as float64 with a default value
func getFloatEnvWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
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
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"REFERENCE_DIR",
		"BDPM_URL",
		"ANNUAIRE_URL",
		"ANNUAIRE_API_KEY",
		"ODISSE_URL",
		"SOURCE_TIMEOUT",
		"RESULT_LIMIT",
		"LLM_BASE_URL",
		"LLM_API_KEY",
		"LLM_MODEL",
		"LLM_TIMEOUT",
		"LLM_RATE_PER_MINUTE",
		"CONFIDENCE_FLOOR",
		"CACHE_TTL",
		"REDIS_ADDR",
		"REDIS_PASSWORD",
		"REDIS_DB",
		"PROFILE_SEED",
	}
}

// ValidateAllEnvVars checks if all required environment variables are set
func ValidateAllEnvVars() error {
	requiredVars := []string{"PORT"} // Only PORT is truly required
	missingVars := []string{}

	for _, varName := range requiredVars {
		if os.Getenv(varName) == "" {
			missingVars = append(missingVars, varName)
		}
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missingVars)
	}

	return nil
}
