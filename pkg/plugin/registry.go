package plugin

import (
	"context"
	"log/slog"
	"sync"
)

// Metadata is the static, configured description of a plugin, as
// distinct from its live lifecycle State.
type Metadata struct {
	Name    string
	Command string
	Args    []string
}

// entry is the registry's per-plugin projection.
type entry struct {
	meta   Metadata
	status Status
	tools  []string
}

// Registry projects plugin metadata alongside a per-plugin status
// that it keeps current by listening to the manager's lifecycle
// broadcast (spec §4.10).
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	logger  *slog.Logger
}

// NewRegistry builds a registry seeded with the given metadata, all
// initially Stopped.
func NewRegistry(metas []Metadata, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	entries := make(map[string]*entry, len(metas))
	for _, m := range metas {
		entries[m.Name] = &entry{meta: m, status: StatusStopped}
	}
	return &Registry{entries: entries, logger: logger}
}

// Watch subscribes to mgr's lifecycle broadcast and reconciles this
// registry's projected status until ctx is canceled. Call in a
// goroutine.
func (r *Registry) Watch(ctx context.Context, mgr *Manager) {
	sub := mgr.Events()
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			r.apply(ev)
		}
	}
}

func (r *Registry) apply(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[ev.Name]
	if !ok {
		r.logger.Warn("plugin event for unregistered plugin", "plugin", ev.Name, "kind", ev.Kind)
		return
	}
	switch ev.Kind {
	case EventStarting:
		e.status = StatusStarting
	case EventStarted:
		e.status = StatusRunning
	case EventStartFailed:
		e.status = StatusError
	case EventStopping:
		e.status = StatusStopping
	case EventStopped:
		e.status = StatusStopped
	case EventToolsUpdated:
		e.tools = ev.Tools
	case EventRestarting:
		e.status = StatusStarting
	}
}

// StatusSnapshot represents one plugin's projected metadata and status, as
// returned by List.
type StatusSnapshot struct {
	Metadata Metadata
	Status   Status
	Tools    []string
}

// List returns a snapshot of every registered plugin's status.
func (r *Registry) List() []StatusSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]StatusSnapshot, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, StatusSnapshot{Metadata: e.meta, Status: e.status, Tools: e.tools})
	}
	return out
}

// Get returns one plugin's snapshot, or ok=false if unregistered.
func (r *Registry) Get(name string) (StatusSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return StatusSnapshot{}, false
	}
	return StatusSnapshot{Metadata: e.meta, Status: e.status, Tools: e.tools}, true
}
