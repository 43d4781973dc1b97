package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	oerrors "github.com/oattyio/oatty/pkg/errors"

	"github.com/oattyio/oatty/pkg/bus"
	"github.com/oattyio/oatty/pkg/plugin/audit"
	"github.com/oattyio/oatty/pkg/plugin/transport"
	"github.com/oattyio/oatty/pkg/value"
)

// connection tracks a live plugin's client and derived state. Access
// is guarded by Manager.mu; the membership sets (starting/stopping/
// active) are the source of truth for "in flight" status, not this
// struct's presence alone.
type connection struct {
	config Config
	client *transport.StdioClient
	state  State
}

// Manager manages the lifecycle of plugin connections: start, stop,
// restart, and tool invocation, with per-plugin serialization and a
// broadcast of lifecycle events (spec §4.10).
//
// Invariant: a plugin name is in at most one of starting, stopping,
// active at any instant. A single mutex (mu) guards all three maps;
// connect/disconnect I/O runs outside the lock.
type Manager struct {
	mu       sync.Mutex
	configs  map[string]Config
	active   map[string]*connection
	starting map[string]struct{}
	stopping map[string]struct{}

	// breakers survives stop/start cycles so Restart's attempt count
	// accumulates across restarts instead of resetting every time
	// StartPlugin builds a fresh connection.
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]

	bus    *bus.Bus[Event]
	audit  *audit.Logger
	logger *slog.Logger
}

// NewManager builds a manager over the given plugin configs.
func NewManager(configs []Config, auditLog *audit.Logger, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	cfgMap := make(map[string]Config, len(configs))
	for _, c := range configs {
		cfgMap[c.Name] = c.withDefaults()
	}
	return &Manager{
		configs:  cfgMap,
		active:   make(map[string]*connection),
		starting: make(map[string]struct{}),
		stopping: make(map[string]struct{}),
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
		bus:      bus.New[Event](),
		audit:    auditLog,
		logger:   logger,
	}
}

// Events returns a subscription to the manager's lifecycle broadcast.
func (m *Manager) Events() *bus.Subscription[Event] { return m.bus.Subscribe() }

func (m *Manager) onLag(subscriberID int) {
	m.logger.Warn("plugin event subscriber lagging, events dropped", "subscriber", subscriberID)
}

// StartPlugin connects to the named plugin: reserve-in-starting,
// handshake with a startup timeout, then promote to active.
func (m *Manager) StartPlugin(ctx context.Context, name string) error {
	cfg, ok := m.configs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrClientNotFound, name)
	}
	if cfg.Disabled {
		return fmt.Errorf("%w: %s", ErrPluginDisabled, name)
	}

	m.mu.Lock()
	if _, exists := m.active[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrClientAlreadyExists, name)
	}
	if _, exists := m.starting[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrClientAlreadyExists, name)
	}
	m.starting[name] = struct{}{}
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventStarting, Name: name}, m.onLag)
	m.logger.Info("plugin starting", "plugin", name)

	startCtx, cancel := context.WithTimeout(ctx, cfg.StartupTimeout)
	defer cancel()

	client, err := transport.Connect(startCtx, transport.StdioConfig{
		PluginName: name,
		Command:    cfg.Command,
		Args:       cfg.Args,
		Env:        cfg.Env,
		Timeout:    cfg.ToolCallTimeout,
	})
	if err != nil {
		err = startupError(name, cfg.StartupTimeout, startCtx, err)
		m.mu.Lock()
		delete(m.starting, name)
		m.mu.Unlock()
		m.bus.Publish(Event{Kind: EventStartFailed, Name: name, Error: err.Error()}, m.onLag)
		m.auditEvent(audit.EventStart, name, false, err)
		return err
	}

	tools, err := client.ListTools(startCtx)
	if err != nil {
		_ = client.Close()
		err = startupError(name, cfg.StartupTimeout, startCtx, err)
		m.mu.Lock()
		delete(m.starting, name)
		m.mu.Unlock()
		m.bus.Publish(Event{Kind: EventStartFailed, Name: name, Error: err.Error()}, m.onLag)
		m.auditEvent(audit.EventStart, name, false, err)
		return err
	}
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}

	startedAt := time.Now()
	conn := &connection{
		config: cfg,
		client: client,
		state: State{
			Status:      StatusRunning,
			Healthy:     true,
			StartupTime: &startedAt,
			Tools:       names,
		},
	}

	m.mu.Lock()
	delete(m.starting, name)
	m.active[name] = conn
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventStarted, Name: name}, m.onLag)
	m.bus.Publish(Event{Kind: EventToolsUpdated, Name: name, Tools: names}, m.onLag)
	m.auditEvent(audit.EventStart, name, true, nil)
	m.logger.Info("plugin started", "plugin", name, "tools", len(names))
	return nil
}

// StopPlugin disconnects the named plugin: demote from active into
// stopping, disconnect with a shutdown timeout, then clear.
func (m *Manager) StopPlugin(ctx context.Context, name string) error {
	m.mu.Lock()
	conn, exists := m.active[name]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrClientNotFound, name)
	}
	delete(m.active, name)
	m.stopping[name] = struct{}{}
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventStopping, Name: name}, m.onLag)

	stopCtx, cancel := context.WithTimeout(ctx, conn.config.ShutdownTimeout)
	defer cancel()

	closeErr := closeWithTimeout(stopCtx, conn.client)
	if closeErr != nil && conn.client.Process() != nil {
		m.logger.Warn("plugin shutdown timed out, force-killing", "plugin", name,
			"error", shutdownError(name, conn.config.ShutdownTimeout, stopCtx, closeErr))
		_ = conn.client.Process().Kill()
	}

	m.mu.Lock()
	delete(m.stopping, name)
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventStopped, Name: name}, m.onLag)
	m.bus.Publish(Event{Kind: EventToolsUpdated, Name: name, Tools: nil}, m.onLag)
	m.auditEvent(audit.EventStop, name, true, nil)
	m.logger.Info("plugin stopped", "plugin", name)
	return nil
}

// startupError reports a plugin start failure as a TimeoutError (spec
// §7's StartupTimeout kind) when startCtx expired before err occurred,
// otherwise wraps err plainly.
func startupError(name string, timeout time.Duration, startCtx context.Context, err error) error {
	if startCtx.Err() == context.DeadlineExceeded {
		return &oerrors.TimeoutError{Operation: fmt.Sprintf("plugin start %s", name), Duration: timeout, Cause: err}
	}
	return fmt.Errorf("plugin: start %q: %w", name, err)
}

// shutdownError reports a plugin stop failure as a TimeoutError (spec
// §7's ShutdownTimeout kind) when stopCtx expired before err occurred,
// otherwise wraps err plainly.
func shutdownError(name string, timeout time.Duration, stopCtx context.Context, err error) error {
	if stopCtx.Err() == context.DeadlineExceeded {
		return &oerrors.TimeoutError{Operation: fmt.Sprintf("plugin stop %s", name), Duration: timeout, Cause: err}
	}
	return fmt.Errorf("plugin: stop %q: %w", name, err)
}

func closeWithTimeout(ctx context.Context, c *transport.StdioClient) error {
	done := make(chan error, 1)
	go func() { done <- c.Close() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Restart stops then restarts a plugin after the configured delay,
// tracking attempts via a circuit breaker keyed per plugin.
func (m *Manager) Restart(ctx context.Context, name string) error {
	m.mu.Lock()
	conn, exists := m.active[name]
	m.mu.Unlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrClientNotFound, name)
	}

	m.bus.Publish(Event{Kind: EventRestarting, Name: name}, m.onLag)

	breaker := m.breakerFor(name, conn.config.MaxRestartAttempts)
	_, err := breaker.Execute(func() (struct{}, error) {
		if stopErr := m.StopPlugin(ctx, name); stopErr != nil {
			return struct{}{}, stopErr
		}
		select {
		case <-time.After(conn.config.RestartDelay):
		case <-ctx.Done():
			return struct{}{}, ctx.Err()
		}
		return struct{}{}, m.StartPlugin(ctx, name)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return fmt.Errorf("%w: %s", ErrMaxRestartAttemptsExceeded, name)
		}
		return fmt.Errorf("plugin: restart %q: %w", name, err)
	}
	return nil
}

// Status returns a plugin's current lifecycle status, consulting the
// in-flight sets before the active map.
func (m *Manager) Status(name string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.starting[name]; ok {
		return StatusStarting
	}
	if _, ok := m.stopping[name]; ok {
		return StatusStopping
	}
	if conn, ok := m.active[name]; ok {
		return conn.state.Status
	}
	if _, known := m.configs[name]; known {
		return StatusStopped
	}
	return StatusUnknown
}

// State returns a snapshot of a plugin's full state, or ok=false if
// unknown.
func (m *Manager) State(name string) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.active[name]
	if !ok {
		_, known := m.configs[name]
		return State{Status: m.statusLocked(name)}, known
	}
	return conn.state, true
}

func (m *Manager) statusLocked(name string) Status {
	if _, ok := m.starting[name]; ok {
		return StatusStarting
	}
	if _, ok := m.stopping[name]; ok {
		return StatusStopping
	}
	if _, known := m.configs[name]; known {
		return StatusStopped
	}
	return StatusUnknown
}

// CallTool implements runner.PluginGateway: issues a tool call
// against an already-running plugin.
func (m *Manager) CallTool(ctx context.Context, pluginName, toolName string, args value.Value) (value.Value, error) {
	m.mu.Lock()
	conn, ok := m.active[pluginName]
	m.mu.Unlock()
	if !ok {
		return value.Null, fmt.Errorf("%w: %s", ErrClientNotFound, pluginName)
	}

	argMap, _ := args.ToAny().(map[string]interface{})
	resp, err := conn.client.CallTool(ctx, transport.ToolCallRequest{Name: toolName, Arguments: argMap})
	m.auditEvent(audit.EventToolInvoke, pluginName, err == nil, err)
	if err != nil {
		return value.Null, err
	}
	return toolResponseToValue(*resp), nil
}

func toolResponseToValue(resp transport.ToolCallResponse) value.Value {
	items := make([]value.Value, len(resp.Content))
	for i, c := range resp.Content {
		obj := value.NewObject()
		obj = obj.Set("type", value.String(c.Type))
		if c.Text != "" {
			obj = obj.Set("text", value.String(c.Text))
		}
		if c.Data != "" {
			obj = obj.Set("data", value.String(c.Data))
		}
		items[i] = obj
	}
	out := value.NewObject()
	out = out.Set("content", value.Array(items...))
	out = out.Set("is_error", value.Bool(resp.IsError))
	return out
}

// HealthCheckPlugin pings a running plugin and reports latency.
func (m *Manager) HealthCheckPlugin(ctx context.Context, name string) HealthCheck {
	m.mu.Lock()
	conn, ok := m.active[name]
	m.mu.Unlock()
	if !ok {
		return HealthCheck{Healthy: false, Error: "plugin not running"}
	}

	start := time.Now()
	err := conn.client.Ping(ctx)
	latency := time.Since(start).Milliseconds()
	m.auditEvent(audit.EventHealthCheck, name, err == nil, err)
	if err != nil {
		return HealthCheck{Healthy: false, Error: err.Error()}
	}
	return HealthCheck{Healthy: true, LatencyMS: &latency}
}

func (m *Manager) auditEvent(kind audit.EventKind, plugin string, ok bool, err error) {
	if m.audit == nil {
		return
	}
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	m.audit.Record(audit.Event{Kind: kind, Plugin: plugin, Success: ok, Error: errMsg})
}

// breakerFor returns the persistent restart breaker for name, creating
// it on first use. Kept on Manager rather than connection so attempt
// counts accumulate across Restart calls instead of resetting every
// time StartPlugin builds a fresh connection.
func (m *Manager) breakerFor(name string, maxAttempts int) *gobreaker.CircuitBreaker[struct{}] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.breakers[name]; ok {
		return b
	}
	b := newBreaker(name, maxAttempts)
	m.breakers[name] = b
	return b
}

func newBreaker(name string, maxAttempts int) *gobreaker.CircuitBreaker[struct{}] {
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "plugin-restart-" + name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32Safe(maxAttempts)
		},
	})
}

func uint32Safe(n int) uint32 {
	if n < 0 {
		return 0
	}
	return uint32(n)
}
