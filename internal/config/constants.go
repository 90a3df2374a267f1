package config

const (
	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3

	// Dispatcher Defaults
	DefaultDispatcherWorkerEnabled = true
	DefaultDispatcherQueueSize     = 64

	// Parser Defaults
	DefaultParserMaxFileSizeMB = 100

	// History Defaults
	DefaultHistoryBackend     = "sqlite"
	DefaultHistorySQLitePath  = "database/history/history.db"
	DefaultHistoryParquetPath = "database/history/history.parquet"
	DefaultHistoryMaxEntries  = 50

	// Server Defaults
	DefaultServerListenAddress    = "127.0.0.1:8080"
	DefaultServerReadTimeoutSecs  = 30
	DefaultServerWriteTimeoutSecs = 60
	DefaultServerMaxUploadMB      = 200

	// Monitor Defaults
	DefaultMonitorDebounceMs = 300
	DefaultMonitorMaxCycles  = 0

	// ConfigPathEnv overrides the config file search.
	ConfigPathEnv = "FILECOMPARE_CONFIG_PATH"
)
