// Package history implements history-defaults seeding (§4.11):
// looking up a prior value for a workflow input by profile and
// writing it into a RunContext when it passes a secret-marker check
// and the input's declared validation.
package history

import (
	"strings"
	"time"

	"github.com/oattyio/oatty/pkg/provider"
	"github.com/oattyio/oatty/pkg/runctx"
	"github.com/oattyio/oatty/pkg/value"
)

// Key identifies one stored default value.
type Key struct {
	ProfileID  string
	WorkflowID string
	InputName  string
}

// StoredValue is what the history store returns for a Key.
type StoredValue struct {
	Value     value.Value
	Timestamp time.Time
}

// Store looks up and records per-profile input defaults.
type Store interface {
	Get(key Key) (StoredValue, bool, error)
	Put(key Key, v StoredValue) error
}

// secretMarkers are substrings that, found case-insensitively inside
// a stored string value, mark it as a secret that must never be
// seeded back into a run (spec §4.11 step 2).
var secretMarkers = []string{"password", "secret", "token", "api_key", "apikey", "private_key"}

func looksLikeSecret(v value.Value) bool {
	s, ok := v.AsString()
	if !ok {
		return false
	}
	lower := strings.ToLower(s)
	for _, marker := range secretMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// SeedResult reports what happened for one input during ApplyDefaults.
type SeedResult struct {
	InputName string
	Seeded    bool
	Reason    string // set when Seeded is false
}

// ApplyDefaults seeds ctx.inputs[def.Name] from the history store for
// every input definition whose Default.From is DefaultHistory,
// skipping nulls, secret-marked values, and values that fail the
// input's own validation. Failures are reported, never fatal (spec
// §4.11: "Failures are logged but never fatal").
func ApplyDefaults(store Store, profileID, workflowID string, defs []provider.InputDefinition, rc *runctx.RunContext) []SeedResult {
	results := make([]SeedResult, 0, len(defs))
	for _, def := range defs {
		if def.Default == nil || def.Default.From != provider.DefaultHistory {
			continue
		}
		results = append(results, applyOne(store, profileID, workflowID, def, rc))
	}
	return results
}

func applyOne(store Store, profileID, workflowID string, def provider.InputDefinition, rc *runctx.RunContext) SeedResult {
	key := Key{ProfileID: profileID, WorkflowID: workflowID, InputName: def.Name}
	stored, ok, err := store.Get(key)
	if err != nil {
		return SeedResult{InputName: def.Name, Seeded: false, Reason: "history lookup failed: " + err.Error()}
	}
	if !ok {
		return SeedResult{InputName: def.Name, Seeded: false, Reason: "no stored value"}
	}
	if stored.Value.IsNull() {
		return SeedResult{InputName: def.Name, Seeded: false, Reason: "stored value is null"}
	}
	if looksLikeSecret(stored.Value) {
		return SeedResult{InputName: def.Name, Seeded: false, Reason: "stored value looks like a secret"}
	}
	if reason := provider.ValidateValue(def, stored.Value); reason != "" {
		return SeedResult{InputName: def.Name, Seeded: false, Reason: reason}
	}

	rc.SetInput(def.Name, stored.Value)
	return SeedResult{InputName: def.Name, Seeded: true}
}
