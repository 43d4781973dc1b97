// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads oatty's on-disk configuration: logging,
// telemetry, plugin lifecycle defaults, and storage locations for the
// catalog and history stores.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	oerrors "github.com/oattyio/oatty/pkg/errors"
)

// ErrInvalidConfig is returned when configuration validation fails.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Config is oatty's complete on-disk configuration.
type Config struct {
	Version int `yaml:"version,omitempty"`

	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Plugin    PluginConfig    `yaml:"plugin"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	History   HistoryConfig   `yaml:"history"`
}

// LogConfig configures internal/logging.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	// Environment: OATTY_LOG_LEVEL. Default: info.
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	// Environment: OATTY_LOG_FORMAT. Default: json.
	Format string `yaml:"format"`

	// AddSource adds source file and line information to logs.
	// Environment: OATTY_LOG_SOURCE. Default: false.
	AddSource bool `yaml:"add_source"`
}

// TelemetryConfig configures internal/telemetry.
type TelemetryConfig struct {
	// Enabled turns on trace export. Default: false.
	Enabled bool `yaml:"enabled"`

	// OTLPEndpoint sends spans via OTLP/gRPC when set; otherwise a
	// console exporter is used. Environment: OATTY_OTLP_ENDPOINT.
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`

	// Insecure disables TLS for the OTLP exporter (development only).
	Insecure bool `yaml:"insecure,omitempty"`

	// MetricsAddr, when set, serves /metrics on this address for
	// Prometheus scraping (e.g. "127.0.0.1:9090").
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// PluginConfig holds defaults applied to every plugin.Config that does
// not set its own value (spec §4.10).
type PluginConfig struct {
	StartupTimeout     time.Duration `yaml:"startup_timeout,omitempty"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout,omitempty"`
	RestartDelay       time.Duration `yaml:"restart_delay,omitempty"`
	MaxRestartAttempts int           `yaml:"max_restart_attempts,omitempty"`
	ToolCallTimeout    time.Duration `yaml:"tool_call_timeout,omitempty"`

	// AuditLogPath is where plugin lifecycle/tool-call audit entries
	// are written as JSONL. Empty disables audit logging.
	AuditLogPath string `yaml:"audit_log_path,omitempty"`
}

// CatalogConfig locates the command catalog store.
type CatalogConfig struct {
	// StoragePath is the YAML file persisted catalogs are loaded
	// from and saved to.
	StoragePath string `yaml:"storage_path,omitempty"`
}

// HistoryConfig locates and configures the history-defaults store.
type HistoryConfig struct {
	// DatabasePath is the SQLite file backing pkg/history/sqlitestore.
	DatabasePath string `yaml:"database_path,omitempty"`

	// EnableEncryption turns on AES-256-GCM encryption at rest,
	// keyed by OATTY_HISTORY_KEY.
	EnableEncryption bool `yaml:"enable_encryption"`
}

// Default returns a Config with every field set to its documented
// default, rooted at dataDir for file-backed stores.
func Default(dataDir string) *Config {
	return &Config{
		Version: 1,
		Log:     LogConfig{Level: "info", Format: "json"},
		Plugin: PluginConfig{
			StartupTimeout:     30 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			RestartDelay:       5 * time.Second,
			MaxRestartAttempts: 3,
			ToolCallTimeout:    30 * time.Second,
		},
		Catalog: CatalogConfig{StoragePath: dataDir + "/catalogs.yaml"},
		History: HistoryConfig{DatabasePath: dataDir + "/history.db"},
	}
}

// Load reads and parses the YAML config file at path, applying
// environment overrides on top. A missing file is not an error: the
// defaults (rooted at the XDG data directory) are returned instead.
func Load(path string) (*Config, error) {
	dataDir, err := DataDir()
	if err != nil {
		return nil, fmt.Errorf("config: failed to resolve data directory: %w", err)
	}
	cfg := Default(dataDir)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, Validate(cfg)
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	return cfg, Validate(cfg)
}

// Save writes cfg as YAML to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides layers environment variables on top of cfg,
// matching internal/logging.FromEnv's variable names for the log
// section and adding oatty-specific overrides for the rest.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OATTY_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("OATTY_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if os.Getenv("OATTY_LOG_SOURCE") == "1" {
		cfg.Log.AddSource = true
	}
	if v := os.Getenv("OATTY_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.Enabled = true
		cfg.Telemetry.OTLPEndpoint = v
	}
	if v := os.Getenv("OATTY_CATALOG_PATH"); v != "" {
		cfg.Catalog.StoragePath = v
	}
	if v := os.Getenv("OATTY_HISTORY_DB_PATH"); v != "" {
		cfg.History.DatabasePath = v
	}
}

// Validate checks cfg for internally inconsistent values.
func Validate(cfg *Config) error {
	switch cfg.Log.Format {
	case "", "json", "text":
	default:
		return configError("log.format", fmt.Sprintf("must be \"json\" or \"text\", got %q", cfg.Log.Format))
	}
	if cfg.Plugin.MaxRestartAttempts < 0 {
		return configError("plugin.max_restart_attempts", "must not be negative")
	}
	if cfg.Catalog.StoragePath == "" {
		return configError("catalog.storage_path", "must not be empty")
	}
	if cfg.History.DatabasePath == "" {
		return configError("history.database_path", "must not be empty")
	}
	return nil
}

// configError builds a pkg/errors.ConfigError whose Cause still chains
// to ErrInvalidConfig, so callers using errors.Is(err, ErrInvalidConfig)
// keep working unchanged.
func configError(key, reason string) error {
	return &oerrors.ConfigError{
		Key:    key,
		Reason: reason,
		Cause:  fmt.Errorf("%w: %s: %s", ErrInvalidConfig, key, reason),
	}
}
