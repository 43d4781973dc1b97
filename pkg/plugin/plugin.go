// Package plugin implements the lifecycle manager and registry for
// external tool plugins (§4.10): starting, stopping, restarting, and
// health-checking MCP connections, with per-plugin serialization and
// a broadcast of lifecycle events.
package plugin

import (
	"errors"
	"time"
)

// Status is a plugin's lifecycle state.
type Status string

const (
	StatusUnknown  Status = "unknown"
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

// Sentinel errors returned by lifecycle operations.
var (
	ErrClientAlreadyExists       = errors.New("plugin: client already exists")
	ErrClientNotFound            = errors.New("plugin: client not found")
	ErrPluginDisabled            = errors.New("plugin: plugin is disabled")
	ErrMaxRestartAttemptsExceeded = errors.New("plugin: max restart attempts exceeded")
)

// Config describes a configured plugin's connection parameters.
type Config struct {
	Name     string
	Command  string
	Args     []string
	Env      []string
	Disabled bool

	StartupTimeout      time.Duration
	ShutdownTimeout     time.Duration
	RestartDelay        time.Duration
	MaxRestartAttempts  int
	ToolCallTimeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.StartupTimeout == 0 {
		c.StartupTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.RestartDelay == 0 {
		c.RestartDelay = 5 * time.Second
	}
	if c.MaxRestartAttempts == 0 {
		c.MaxRestartAttempts = 3
	}
	if c.ToolCallTimeout == 0 {
		c.ToolCallTimeout = 30 * time.Second
	}
	return c
}

// State is the externally observable snapshot of a plugin's lifecycle
// (spec §4.1's PluginState).
type State struct {
	Status          Status
	Healthy         bool
	RestartAttempts int
	StartupTime     *time.Time
	ShutdownTime    *time.Time
	LastRestart     *time.Time
	LastError       string
	Tools           []string
}

// HealthCheck is the transport-level health probe result.
type HealthCheck struct {
	Healthy   bool
	LatencyMS *int64
	Error     string
}

// EventKind identifies a lifecycle broadcast event.
type EventKind string

const (
	EventStarting      EventKind = "starting"
	EventStarted       EventKind = "started"
	EventStartFailed   EventKind = "start_failed"
	EventStopping      EventKind = "stopping"
	EventStopped       EventKind = "stopped"
	EventToolsUpdated  EventKind = "tools_updated"
	EventRestarting    EventKind = "restarting"
)

// Event is one lifecycle transition broadcast over the manager's bus.
type Event struct {
	Kind   EventKind
	Name   string
	Tools  []string
	Error  string
}
