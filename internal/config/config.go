// Package config loads server configuration from command-line flags,
// environment variables and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App         AppConfig
	Logger      LoggerConfig
	Data        DataConfig
	Server      ServerConfig
	Sync        SyncConfig
	Preferences PreferencesConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds on-disk storage locations.
type DataConfig struct {
	BasePath string
}

// DatabasePath is the SQLite database file.
func (d DataConfig) DatabasePath() string {
	return filepath.Join(d.BasePath, "taskline.db")
}

// PreferencesPath is the badger preference directory.
func (d DataConfig) PreferencesPath() string {
	return filepath.Join(d.BasePath, "prefs")
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed CORS origins (default: *)
	RateLimit    float64       // Requests per second per client IP (default: 50)
	RateBurst    int           // Request burst per client IP (default: 100)
}

// SyncConfig holds inbound sync configuration.
type SyncConfig struct {
	// InboxEnabled turns the payload inbox watcher on (default: true)
	InboxEnabled bool
	// InboxPath is the directory watched for payload files (default: {data}/inbox)
	InboxPath string
	// SettleDelay is how long a payload must stay unchanged before it is read (default: 500ms)
	SettleDelay time.Duration
	// RateLimit is the sustained number of syncs per second allowed for one tag (default: 5)
	RateLimit float64
	// RateBurst is the burst allowance per tag (default: 10)
	RateBurst int
}

// PreferencesConfig holds preference seeding configuration.
type PreferencesConfig struct {
	// MarketStrategy selects distribution defaults: generic or phone (default: generic)
	MarketStrategy string
	// SeedOnBoot writes unset defaults at startup (default: true)
	SeedOnBoot bool
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("taskline", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := fs.String("data-path", "", "Base path for data storage")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins (default: *)")
	apiRateLimit := fs.String("rate-limit", "", "Requests per second per client (default: 50)")
	apiRateBurst := fs.String("rate-burst", "", "Request burst per client (default: 100)")

	// Sync flags
	inboxEnabled := fs.String("inbox-enabled", "", "Watch the sync inbox (default: true)")
	inboxPath := fs.String("inbox-path", "", "Sync inbox directory (default: {data}/inbox)")
	settleDelay := fs.String("inbox-settle-delay", "", "Inbox settle delay (default: 500ms)")
	rateLimit := fs.String("sync-rate-limit", "", "Syncs per second per tag (default: 5)")
	rateBurst := fs.String("sync-rate-burst", "", "Sync burst per tag (default: 10)")

	// Preference flags
	marketStrategy := fs.String("market-strategy", "", "Preference defaults: generic or phone")
	seedOnBoot := fs.String("seed-preferences", "", "Seed unset preferences at startup (default: true)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
			RateBurst:   getIntConfigValue(*apiRateBurst, "SERVER_RATE_BURST", 100),
		},
		Sync: SyncConfig{
			InboxEnabled: getBoolConfigValue(*inboxEnabled, "SYNC_INBOX_ENABLED", true),
			InboxPath:    getConfigValue(*inboxPath, "SYNC_INBOX_PATH", ""),
			RateBurst:    getIntConfigValue(*rateBurst, "SYNC_RATE_BURST", 10),
		},
		Preferences: PreferencesConfig{
			MarketStrategy: strings.ToLower(getConfigValue(*marketStrategy, "MARKET_STRATEGY", "generic")),
			SeedOnBoot:     getBoolConfigValue(*seedOnBoot, "SEED_PREFERENCES", true),
		},
	}

	rate, err := getFloatConfigValue(*rateLimit, "SYNC_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}
	cfg.Sync.RateLimit = rate

	apiRate, err := getFloatConfigValue(*apiRateLimit, "SERVER_RATE_LIMIT", 50)
	if err != nil {
		return nil, err
	}
	cfg.Server.RateLimit = apiRate

	durations := []struct {
		flagValue, envKey, def string
		dest                   *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{*settleDelay, "SYNC_INBOX_SETTLE_DELAY", "500ms", &cfg.Sync.SettleDelay},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dest = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Defaults to {data}/inbox.
	if cfg.Sync.InboxPath, err = expandPath(cfg.Sync.InboxPath, filepath.Join(cfg.Data.BasePath, "inbox")); err != nil {
		return nil, fmt.Errorf("invalid inbox path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	switch c.Preferences.MarketStrategy {
	case "generic", "phone":
	default:
		return fmt.Errorf("invalid market strategy: %s (must be generic or phone)", c.Preferences.MarketStrategy)
	}

	if c.Sync.RateLimit <= 0 || c.Sync.RateBurst <= 0 {
		return errors.New("sync rate limit and burst must be positive")
	}

	if c.Server.RateLimit <= 0 || c.Server.RateBurst <= 0 {
		return errors.New("server rate limit and burst must be positive")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
// Defaults to ~/Taskline/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Taskline", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) (float64, error) {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return result, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
