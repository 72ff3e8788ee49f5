package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TLSConfig holds TLS-specific configuration for the remote journal client.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// JournalSpec describes one entry to be wired into the journal set at
// startup: where it lives, and which role flags it carries.
type JournalSpec struct {
	// Kind selects the journal implementation: "local" or "remote".
	Kind string `yaml:"kind"`
	// Directory is the storage directory for a "local" journal.
	Directory string `yaml:"directory"`
	// Endpoint is the gRPC address for a "remote" journal.
	Endpoint string `yaml:"endpoint"`

	Required bool `yaml:"required"`
	Shared   bool `yaml:"shared"`
}

// JournalSetConfig holds the quorum thresholds and the list of journals the
// Journal Set Facade is constructed with.
type JournalSetConfig struct {
	MinJournals         int           `yaml:"min_journals"`
	MinNonLocalJournals int           `yaml:"min_nonlocal_journals"`
	ParallelFanout      bool          `yaml:"parallel_fanout"`
	Journals            []JournalSpec `yaml:"journals"`
}

// LocalJournalConfig holds settings for "local" journal entries. Only
// SyncMode is applied to the journals built from it; MaxSegmentSizeBytes,
// FlushInterval and PurgeKeepSegments are parsed but not read.
type LocalJournalConfig struct {
	MaxSegmentSizeBytes int64  `yaml:"max_segment_size_bytes"`
	SyncMode            string `yaml:"sync_mode"`
	FlushInterval       string `yaml:"flush_interval"`
	PurgeKeepSegments   int    `yaml:"purge_keep_segments"`
}

// RemoteConfig holds defaults applied to every "remote" journal entry.
type RemoteConfig struct {
	DialTimeout string    `yaml:"dial_timeout"`
	CallTimeout string    `yaml:"call_timeout"`
	Codec       string    `yaml:"codec"` // "none", "snappy", "lz4", "zstd"
	TLS         TLSConfig `yaml:"tls"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // e.g., "debug", "info", "warn", "error"
	Output string `yaml:"output"` // e.g., "stdout", "file", "none"
	File   string `yaml:"file"`   // Path to the log file, used if output is "file"
}

// DebugConfig holds debugging-related configuration for the metrics/
// statsviz HTTP mux.
type DebugConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ListenAddress    string `yaml:"listen_address"`
	PProfEnabled     bool   `yaml:"pprof_enabled"`
	MetricsEnabled   bool   `yaml:"metrics_enabled"`
	MonitorUIEnabled bool   `yaml:"monitor_ui_enabled"`
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"` // e.g., "localhost:4317" for gRPC OTLP collector
	Protocol string `yaml:"protocol"` // "grpc" or "http"
}

// StorageConfig holds configuration for the storage registry's disk-usage
// and local/non-local classification bookkeeping.
type StorageConfig struct {
	ErrorReportIntervalDisabled bool   `yaml:"error_report_interval_disabled"`
	SyncLatencyWindowSize       int    `yaml:"sync_latency_window_size"`
	NonLocalStatfsMagicHex      string `yaml:"non_local_statfs_magic_hex"`
}

// Config is the top-level configuration struct for journalsetctl.
type Config struct {
	JournalSet JournalSetConfig   `yaml:"journal_set"`
	Local      LocalJournalConfig `yaml:"local"`
	Remote     RemoteConfig       `yaml:"remote"`
	Storage    StorageConfig      `yaml:"storage"`
	Logging    LoggingConfig      `yaml:"logging"`
	Tracing    TracingConfig      `yaml:"tracing"`
	Debug      DebugConfig        `yaml:"debug"`
}

// ParseDuration parses a duration string. Returns the default duration if
// the string is empty or invalid. Logs a warning if the string is invalid
// but not empty.
func ParseDuration(durationStr string, defaultDuration time.Duration, logger *slog.Logger) time.Duration {
	if durationStr == "" || durationStr == "0" {
		return defaultDuration
	}
	d, err := time.ParseDuration(durationStr)
	if err != nil {
		if logger != nil {
			logger.Warn("invalid duration format, using default", "input", durationStr, "default", defaultDuration.String(), "error", err)
		}
		return defaultDuration
	}
	return d
}

// Load reads configuration from an io.Reader. This is the core logic,
// separated for testability.
func Load(r io.Reader) (*Config, error) {
	cfg := &Config{
		JournalSet: JournalSetConfig{
			MinJournals:         1,
			MinNonLocalJournals: 0,
			ParallelFanout:      true,
		},
		Local: LocalJournalConfig{
			MaxSegmentSizeBytes: 32 * 1024 * 1024, // 32 MiB
			SyncMode:            "always",
			FlushInterval:       "1s",
			PurgeKeepSegments:   4,
		},
		Remote: RemoteConfig{
			DialTimeout: "5s",
			CallTimeout: "10s",
			Codec:       "none",
			TLS: TLSConfig{
				Enabled: false,
			},
		},
		Storage: StorageConfig{
			ErrorReportIntervalDisabled: false,
			SyncLatencyWindowSize:       100,
			NonLocalStatfsMagicHex:      "0x6969", // NFS_SUPER_MAGIC
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
			File:   "journalsetctl.log",
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "localhost:4317",
			Protocol: "grpc",
		},
		Debug: DebugConfig{
			Enabled:          true,
			ListenAddress:    "0.0.0.0:6060",
			PProfEnabled:     true,
			MetricsEnabled:   true,
			MonitorUIEnabled: true,
		},
	}

	if r == nil {
		return cfg, nil
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config data: %w", err)
	}

	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
	}

	return cfg, nil
}

// LoadFile reads configuration from a YAML file by path. A missing file is
// not an error: it is treated the same as an empty file, returning defaults.
func LoadFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Load(nil)
		}
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	return Load(file)
}
