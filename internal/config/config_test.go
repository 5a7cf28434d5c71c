package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Data:   DataConfig{BasePath: "/some/path"},
		Engine: EngineConfig{
			TickInterval:     50 * time.Millisecond,
			DriftThresholdMs: 200,
			WordsPerMinute:   165,
		},
		Provider: ProviderConfig{Default: "mock"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},  // case insensitive
		{"trace", false}, // not supported
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_EngineBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Engine.TickInterval = 250 * time.Millisecond
	assert.Error(t, cfg.Validate(), "tick interval above 100ms must be rejected")

	cfg = validConfig()
	cfg.Engine.TickInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Engine.DriftThresholdMs = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Engine.WordsPerMinute = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_ProviderRequiresKey(t *testing.T) {
	cfg := validConfig()
	cfg.Provider.Default = "elevenlabs"
	assert.Error(t, cfg.Validate(), "elevenlabs without API key must be rejected")

	cfg.Provider.ElevenLabsAPIKey = "key"
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.Provider.Default = "openai"
	assert.Error(t, cfg.Validate())

	cfg.Provider.OpenAIAPIKey = "key"
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.Provider.Default = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Data.BasePath = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "data base path cannot be empty")
}

func TestExpandDataPath_EmptyUsesDefault(t *testing.T) {
	cfg := &Config{}

	err := cfg.expandDataPath()
	require.NoError(t, err)

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "ReadAlong"), cfg.Data.BasePath)
}

func TestExpandDataPath_TildeExpansion(t *testing.T) {
	cfg := &Config{Data: DataConfig{BasePath: "~/my-data"}}

	err := cfg.expandDataPath()
	require.NoError(t, err)

	homeDir, _ := os.UserHomeDir() //nolint:errcheck // Test setup
	assert.Equal(t, filepath.Join(homeDir, "my-data"), cfg.Data.BasePath)
}

func TestExpandInboxPath_DefaultsUnderDataPath(t *testing.T) {
	cfg := &Config{Data: DataConfig{BasePath: "/srv/readalong"}}

	err := cfg.expandInboxPath()
	require.NoError(t, err)

	assert.Equal(t, "/srv/readalong/inbox", cfg.Data.InboxPath)
}

func TestGetConfigValue_Precedence(t *testing.T) {
	result := getConfigValue("flag-value", "ENV_KEY", "default-value")
	assert.Equal(t, "flag-value", result)

	os.Setenv("TEST_ENV_KEY", "env-value") //nolint:errcheck // Test setup
	defer os.Unsetenv("TEST_ENV_KEY")      //nolint:errcheck // Test cleanup

	result = getConfigValue("", "TEST_ENV_KEY", "default-value")
	assert.Equal(t, "env-value", result)

	result = getConfigValue("", "NONEXISTENT_KEY", "default-value")
	assert.Equal(t, "default-value", result)
}

func TestParseDurationValue(t *testing.T) {
	d, err := parseDurationValue("", "NONEXISTENT_DURATION", "50ms")
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, d)

	_, err = parseDurationValue("not-a-duration", "NONEXISTENT_DURATION", "50ms")
	assert.Error(t, err)
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `# Test env file
ENV=staging
LOG_LEVEL=debug
DATA_PATH=/test/path
QUOTED_VALUE="some value"
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	for _, key := range []string{"ENV", "LOG_LEVEL", "DATA_PATH", "QUOTED_VALUE"} {
		os.Unsetenv(key) //nolint:errcheck // Test cleanup
	}
	defer func() {
		for _, key := range []string{"ENV", "LOG_LEVEL", "DATA_PATH", "QUOTED_VALUE"} {
			os.Unsetenv(key) //nolint:errcheck // Test cleanup
		}
	}()

	err = loadEnvFile(envFile)
	require.NoError(t, err)

	assert.Equal(t, "staging", os.Getenv("ENV"))
	assert.Equal(t, "debug", os.Getenv("LOG_LEVEL"))
	assert.Equal(t, "/test/path", os.Getenv("DATA_PATH"))
	assert.Equal(t, "some value", os.Getenv("QUOTED_VALUE"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	content := `VALID_KEY=valid_value
INVALID LINE WITHOUT EQUALS
`
	err := os.WriteFile(envFile, []byte(content), 0o644)
	require.NoError(t, err)

	err = loadEnvFile(envFile)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	os.Setenv("TEST_VAR", "original-value") //nolint:errcheck // Test setup
	defer os.Unsetenv("TEST_VAR")           //nolint:errcheck // Test cleanup

	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte(`TEST_VAR=new-value`), 0o644)
	require.NoError(t, err)

	err = loadEnvFile(envFile)
	require.NoError(t, err)

	assert.Equal(t, "original-value", os.Getenv("TEST_VAR"))
}
