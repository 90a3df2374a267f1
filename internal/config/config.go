package config

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/aleister1102/filecompare/internal/common"
	"github.com/aleister1102/filecompare/internal/models"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type GlobalConfig struct {
	ComparisonConfig models.ComparisonConfig `json:"comparison_config" yaml:"comparison_config" toml:"comparison_config"`
	DispatcherConfig DispatcherConfig        `json:"dispatcher_config" yaml:"dispatcher_config" toml:"dispatcher_config"`
	HistoryConfig    HistoryConfig           `json:"history_config" yaml:"history_config" toml:"history_config"`
	LogConfig        LogConfig               `json:"log_config" yaml:"log_config" toml:"log_config"`
	MonitorConfig    MonitorConfig           `json:"monitor_config" yaml:"monitor_config" toml:"monitor_config"`
	ParserConfig     ParserConfig            `json:"parser_config" yaml:"parser_config" toml:"parser_config"`
	ServerConfig     ServerConfig            `json:"server_config" yaml:"server_config" toml:"server_config"`
}

func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		ComparisonConfig: models.DefaultComparisonConfig(),
		DispatcherConfig: NewDefaultDispatcherConfig(),
		HistoryConfig:    NewDefaultHistoryConfig(),
		LogConfig:        NewDefaultLogConfig(),
		MonitorConfig:    NewDefaultMonitorConfig(),
		ParserConfig:     NewDefaultParserConfig(),
		ServerConfig:     NewDefaultServerConfig(),
	}
}

type LogConfig struct {
	LogFile       string `json:"log_file,omitempty" yaml:"log_file,omitempty" toml:"log_file" validate:"omitempty,filepath"`
	LogFormat     string `json:"log_format,omitempty" yaml:"log_format,omitempty" toml:"log_format" validate:"omitempty,logformat"`
	LogLevel      string `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level" validate:"omitempty,loglevel"`
	MaxLogBackups int    `json:"max_log_backups,omitempty" yaml:"max_log_backups,omitempty" toml:"max_log_backups" validate:"omitempty,min=0"`
	MaxLogSizeMB  int    `json:"max_log_size_mb,omitempty" yaml:"max_log_size_mb,omitempty" toml:"max_log_size_mb" validate:"omitempty,min=1"`
}

func NewDefaultLogConfig() LogConfig {
	return LogConfig{
		LogFile:       DefaultLogFile,
		LogFormat:     DefaultLogFormat,
		LogLevel:      DefaultLogLevel,
		MaxLogBackups: DefaultMaxLogBackups,
		MaxLogSizeMB:  DefaultMaxLogSizeMB,
	}
}

// DispatcherConfig controls where comparisons execute.
type DispatcherConfig struct {
	// WorkerEnabled=false forces the synchronous in-process path.
	WorkerEnabled bool `json:"worker_enabled" yaml:"worker_enabled" toml:"worker_enabled"`
	QueueSize     int  `json:"queue_size,omitempty" yaml:"queue_size,omitempty" toml:"queue_size" validate:"omitempty,min=1"`
}

func NewDefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		WorkerEnabled: DefaultDispatcherWorkerEnabled,
		QueueSize:     DefaultDispatcherQueueSize,
	}
}

type ParserConfig struct {
	MaxFileSizeMB int `json:"max_file_size_mb,omitempty" yaml:"max_file_size_mb,omitempty" toml:"max_file_size_mb" validate:"omitempty,min=1"`
}

func NewDefaultParserConfig() ParserConfig {
	return ParserConfig{
		MaxFileSizeMB: DefaultParserMaxFileSizeMB,
	}
}

// MaxFileSizeBytes returns the configured limit in bytes, 0 meaning unlimited.
func (pc ParserConfig) MaxFileSizeBytes() int64 {
	if pc.MaxFileSizeMB <= 0 {
		return 0
	}
	return int64(pc.MaxFileSizeMB) * 1024 * 1024
}

type HistoryConfig struct {
	Backend     string `json:"backend,omitempty" yaml:"backend,omitempty" toml:"backend" validate:"omitempty,historybackend"`
	SQLitePath  string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty" toml:"sqlite_path"`
	ParquetPath string `json:"parquet_path,omitempty" yaml:"parquet_path,omitempty" toml:"parquet_path"`
	MaxEntries  int    `json:"max_entries,omitempty" yaml:"max_entries,omitempty" toml:"max_entries" validate:"omitempty,min=1"`
}

func NewDefaultHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Backend:     DefaultHistoryBackend,
		SQLitePath:  DefaultHistorySQLitePath,
		ParquetPath: DefaultHistoryParquetPath,
		MaxEntries:  DefaultHistoryMaxEntries,
	}
}

type ServerConfig struct {
	ListenAddress    string `json:"listen_address,omitempty" yaml:"listen_address,omitempty" toml:"listen_address" validate:"omitempty,hostname_port"`
	ReadTimeoutSecs  int    `json:"read_timeout_secs,omitempty" yaml:"read_timeout_secs,omitempty" toml:"read_timeout_secs" validate:"omitempty,min=1"`
	WriteTimeoutSecs int    `json:"write_timeout_secs,omitempty" yaml:"write_timeout_secs,omitempty" toml:"write_timeout_secs" validate:"omitempty,min=1"`
	MaxUploadMB      int    `json:"max_upload_mb,omitempty" yaml:"max_upload_mb,omitempty" toml:"max_upload_mb" validate:"omitempty,min=1"`
}

func NewDefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddress:    DefaultServerListenAddress,
		ReadTimeoutSecs:  DefaultServerReadTimeoutSecs,
		WriteTimeoutSecs: DefaultServerWriteTimeoutSecs,
		MaxUploadMB:      DefaultServerMaxUploadMB,
	}
}

type MonitorConfig struct {
	DebounceMs int `json:"debounce_ms,omitempty" yaml:"debounce_ms,omitempty" toml:"debounce_ms" validate:"omitempty,min=1"`
	// MaxCycles stops watching after that many re-comparisons; 0 watches until cancelled.
	MaxCycles int `json:"max_cycles,omitempty" yaml:"max_cycles,omitempty" toml:"max_cycles" validate:"omitempty,min=0"`
}

// Debounce returns the quiet period before a change triggers a comparison.
func (mc MonitorConfig) Debounce() time.Duration {
	if mc.DebounceMs <= 0 {
		return time.Duration(DefaultMonitorDebounceMs) * time.Millisecond
	}
	return time.Duration(mc.DebounceMs) * time.Millisecond
}

func NewDefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		DebounceMs: DefaultMonitorDebounceMs,
		MaxCycles:  DefaultMonitorMaxCycles,
	}
}

// LoadGlobalConfig loads the configuration from a file or default locations.
// It determines the config file path using GetConfigPath and picks the
// decoder (YAML, TOML or JSON) from the file extension.
func LoadGlobalConfig(providedPath string, logger zerolog.Logger) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		if providedPath != "" {
			return nil, common.NewValidationError("config_file", providedPath, "config file does not exist")
		}
		logger.Debug().Msg("No config file found, using defaults")
		return cfg, nil
	}

	fileManager := common.NewFileManager(logger)
	opts := common.DefaultFileReadOptions()
	opts.MaxSize = 10 * 1024 * 1024 // 10MB max config file size

	data, err := fileManager.ReadFile(filePath, opts)
	if err != nil {
		return nil, common.WrapError(err, "failed to load config file content")
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, common.WrapError(err, "failed to parse config content")
	}

	logger.Debug().Str("path", filePath).Msg("Loaded config file")
	return cfg, nil
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	switch ext := strings.ToLower(filepath.Ext(filePath)); {
	case isYAMLFile(ext):
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return common.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
		}
	case ext == ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return common.NewError("failed to unmarshal TOML from '%s': %w", filePath, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return common.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
		}
	}
	return nil
}

// isYAMLFile checks if the file extension indicates a YAML file
func isYAMLFile(ext string) bool {
	return ext == ".yaml" || ext == ".yml"
}
