package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aleister1102/filecompare/internal/common"
	"github.com/aleister1102/filecompare/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultGlobalConfig(t *testing.T) {
	cfg := NewDefaultGlobalConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, models.DefaultComparisonConfig(), cfg.ComparisonConfig)
	assert.True(t, cfg.DispatcherConfig.WorkerEnabled)
	assert.Equal(t, DefaultHistoryMaxEntries, cfg.HistoryConfig.MaxEntries)
	assert.Equal(t, "sqlite", cfg.HistoryConfig.Backend)
	assert.Equal(t, int64(100*1024*1024), cfg.ParserConfig.MaxFileSizeBytes())
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoadGlobalConfig_NoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnv, "")

	cfg, err := LoadGlobalConfig("", zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, NewDefaultGlobalConfig(), cfg)
}

func TestLoadGlobalConfig_NonExistentFile(t *testing.T) {
	cfg, err := LoadGlobalConfig("/nonexistent/config.json", zerolog.Nop())

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestLoadGlobalConfig_JSONFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.json")
	configData := `{
		"log_config": {"log_level": "debug"},
		"comparison_config": {"ignoreWhitespace": true, "caseSensitive": false, "granularity": "line"},
		"dispatcher_config": {"worker_enabled": false}
	}`
	require.NoError(t, os.WriteFile(configFile, []byte(configData), 0644))

	cfg, err := LoadGlobalConfig(configFile, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogConfig.LogLevel)
	assert.True(t, cfg.ComparisonConfig.IgnoreWhitespace)
	assert.False(t, cfg.ComparisonConfig.CaseSensitive)
	assert.False(t, cfg.DispatcherConfig.WorkerEnabled)
	assert.Equal(t, DefaultHistoryBackend, cfg.HistoryConfig.Backend)
}

func TestLoadGlobalConfig_YAMLFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	configData := `
log_config:
  log_level: warn
  log_format: json
comparison_config:
  ignore_empty_lines: true
history_config:
  backend: parquet
  parquet_path: /tmp/h.parquet
`
	require.NoError(t, os.WriteFile(configFile, []byte(configData), 0644))

	cfg, err := LoadGlobalConfig(configFile, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogConfig.LogLevel)
	assert.Equal(t, "json", cfg.LogConfig.LogFormat)
	assert.True(t, cfg.ComparisonConfig.IgnoreEmptyLines)
	assert.True(t, cfg.ComparisonConfig.CaseSensitive)
	assert.Equal(t, "parquet", cfg.HistoryConfig.Backend)
	assert.Equal(t, "/tmp/h.parquet", cfg.HistoryConfig.ParquetPath)
}

func TestLoadGlobalConfig_TOMLFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.toml")
	configData := `
[server_config]
listen_address = "0.0.0.0:9090"

[monitor_config]
debounce_ms = 50
`
	require.NoError(t, os.WriteFile(configFile, []byte(configData), 0644))

	cfg, err := LoadGlobalConfig(configFile, zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ServerConfig.ListenAddress)
	assert.Equal(t, 50, cfg.MonitorConfig.DebounceMs)
	assert.Equal(t, DefaultServerReadTimeoutSecs, cfg.ServerConfig.ReadTimeoutSecs)
}

func TestLoadGlobalConfig_InvalidContent(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("log_config: [unclosed"), 0644))

	_, err := LoadGlobalConfig(configFile, zerolog.Nop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config content")
}

func TestGetConfigPath_EnvVariable(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("{}"), 0644))
	t.Setenv(ConfigPathEnv, configFile)

	assert.Equal(t, configFile, GetConfigPath(""))
}

func TestValidateConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GlobalConfig)
		rule   string
	}{
		{"bad log level", func(c *GlobalConfig) { c.LogConfig.LogLevel = "verbose" }, "loglevel"},
		{"bad log format", func(c *GlobalConfig) { c.LogConfig.LogFormat = "xml" }, "logformat"},
		{"bad granularity", func(c *GlobalConfig) { c.ComparisonConfig.Granularity = "word" }, "granularity"},
		{"bad history backend", func(c *GlobalConfig) { c.HistoryConfig.Backend = "redis" }, "historybackend"},
		{"bad listen address", func(c *GlobalConfig) { c.ServerConfig.ListenAddress = "nowhere" }, "hostname_port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultGlobalConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.rule)
			assert.ErrorIs(t, err, common.ErrInvalidConfiguration)
		})
	}
}

func TestValidateComparisonConfig(t *testing.T) {
	assert.NoError(t, ValidateComparisonConfig(models.DefaultComparisonConfig()))
	assert.NoError(t, ValidateComparisonConfig(models.ComparisonConfig{}))

	err := ValidateComparisonConfig(models.ComparisonConfig{Granularity: "char"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "granularity")
}
