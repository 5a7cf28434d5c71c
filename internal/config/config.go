// Package config provides application configuration management with support
// for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Data     DataConfig
	Server   ServerConfig
	Engine   EngineConfig
	Provider ProviderConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds storage path configuration.
type DataConfig struct {
	// BasePath is the root for the database, audio cache, and inbox
	// (default: ~/ReadAlong).
	BasePath string
	// InboxPath is watched for dropped documents to auto-import
	// (default: {data}/inbox).
	InboxPath string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Name         string
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// EngineConfig holds sync engine tuning.
type EngineConfig struct {
	// TickInterval is the sync loop cadence (default: 50ms, max 100ms).
	TickInterval time.Duration
	// DriftThresholdMs is the drift beyond which the clock snaps to the
	// client-reported position (default: 200).
	DriftThresholdMs int64
	// WordsPerMinute drives the initial duration estimate before the client
	// reports the real audio length (default: 165).
	WordsPerMinute int
}

// ProviderConfig holds TTS provider credentials and defaults.
type ProviderConfig struct {
	// Default names the provider used when a session doesn't pick one
	// (default: mock; set to elevenlabs or openai once a key is configured).
	Default string

	ElevenLabsAPIKey string
	ElevenLabsVoice  string // voice ID (default: 21m00Tcm4TlvDq8ikWAM)
	ElevenLabsModel  string // (default: eleven_multilingual_v2)

	OpenAIAPIKey string
	OpenAIVoice  string // (default: alloy)
	OpenAIModel  string // speech model (default: tts-1)
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for server data")
	inboxPath := flag.String("inbox-path", "", "Directory watched for documents to import")
	serverName := flag.String("server-name", "", "Name for the server")

	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	tickInterval := flag.String("tick-interval", "", "Sync loop cadence (default: 50ms)")
	driftThreshold := flag.String("drift-threshold-ms", "", "Resync drift threshold in ms (default: 200)")
	wordsPerMinute := flag.String("words-per-minute", "", "Speech rate for duration estimates (default: 165)")

	defaultProvider := flag.String("provider", "", "Default TTS provider (mock, elevenlabs, openai)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

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
			BasePath:  getConfigValue(*dataPath, "DATA_PATH", ""),
			InboxPath: getConfigValue(*inboxPath, "INBOX_PATH", ""),
		},
		Server: ServerConfig{
			Name: getConfigValue(*serverName, "SERVER_NAME", "ReadAlong Server"),
			Port: getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Engine: EngineConfig{
			DriftThresholdMs: int64(getIntConfigValue(*driftThreshold, "DRIFT_THRESHOLD_MS", 200)),
			WordsPerMinute:   getIntConfigValue(*wordsPerMinute, "WORDS_PER_MINUTE", 165),
		},
		Provider: ProviderConfig{
			Default:          getConfigValue(*defaultProvider, "TTS_PROVIDER", "mock"),
			ElevenLabsAPIKey: getConfigValue("", "ELEVENLABS_API_KEY", ""),
			ElevenLabsVoice:  getConfigValue("", "ELEVENLABS_VOICE", "21m00Tcm4TlvDq8ikWAM"),
			ElevenLabsModel:  getConfigValue("", "ELEVENLABS_MODEL", "eleven_multilingual_v2"),
			OpenAIAPIKey:     getConfigValue("", "OPENAI_API_KEY", ""),
			OpenAIVoice:      getConfigValue("", "OPENAI_VOICE", "alloy"),
			OpenAIModel:      getConfigValue("", "OPENAI_MODEL", "tts-1"),
		},
	}

	// Parse durations.
	var err error
	if cfg.Server.ReadTimeout, err = parseDurationValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = parseDurationValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = parseDurationValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	if cfg.Engine.TickInterval, err = parseDurationValue(*tickInterval, "TICK_INTERVAL", "50ms"); err != nil {
		return nil, fmt.Errorf("invalid tick interval: %w", err)
	}

	// Expand and validate data paths.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	if err := cfg.expandInboxPath(); err != nil {
		return nil, fmt.Errorf("invalid inbox path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
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

	if c.Engine.TickInterval <= 0 || c.Engine.TickInterval > 100*time.Millisecond {
		return fmt.Errorf("tick interval must be within (0, 100ms], got %s", c.Engine.TickInterval)
	}
	if c.Engine.DriftThresholdMs < 1 {
		return fmt.Errorf("drift threshold must be at least 1ms, got %d", c.Engine.DriftThresholdMs)
	}
	if c.Engine.WordsPerMinute < 1 {
		return fmt.Errorf("words per minute must be positive, got %d", c.Engine.WordsPerMinute)
	}

	switch c.Provider.Default {
	case "mock", "elevenlabs", "openai":
	default:
		return fmt.Errorf("unknown provider: %s (must be mock, elevenlabs, or openai)", c.Provider.Default)
	}
	if c.Provider.Default == "elevenlabs" && c.Provider.ElevenLabsAPIKey == "" {
		return errors.New("ELEVENLABS_API_KEY is required when elevenlabs is the default provider")
	}
	if c.Provider.Default == "openai" && c.Provider.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is required when openai is the default provider")
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

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
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "ReadAlong")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// expandInboxPath defaults to {data}/inbox if not specified.
func (c *Config) expandInboxPath() error {
	defaultPath := filepath.Join(c.Data.BasePath, "inbox")

	expanded, err := expandPath(c.Data.InboxPath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.InboxPath = expanded
	return nil
}

// parseDurationValue resolves flag > env > default, then parses.
func parseDurationValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", raw, err)
	}
	return d, nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
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

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		value = strings.Trim(value, `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
