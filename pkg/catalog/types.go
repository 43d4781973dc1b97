// Package catalog implements the catalog patch applier (§4.12):
// deterministic, keyed replacement of command specs inside a
// persisted catalog manifest, with provider-contract re-derivation.
package catalog

import (
	"sort"
	"strings"
)

// ExecutionKind mirrors runner.ExecutionKind without importing
// pkg/runner, which would create an import cycle through the command
// registry that wraps a catalog.
type ExecutionKind string

const (
	ExecutionHTTP   ExecutionKind = "http"
	ExecutionPlugin ExecutionKind = "plugin"
)

// Command is one entry in a catalog's manifest.
type Command struct {
	ID         string `yaml:"id"`
	Group      string `yaml:"group"`
	Name       string `yaml:"name"`
	HTTPMethod string `yaml:"http_method"`
	HTTPPath   string `yaml:"http_path"`

	Kind       ExecutionKind `yaml:"kind"`
	PluginName string        `yaml:"plugin_name,omitempty"`
	ToolName   string        `yaml:"tool_name,omitempty"`

	ServiceID string            `yaml:"service_id,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`
}

// MatchKey identifies a command irrespective of its current
// replacement_command contents.
type MatchKey struct {
	Group      string
	Name       string
	HTTPMethod string
	HTTPPath   string
}

func (k MatchKey) normalized() MatchKey {
	return MatchKey{
		Group:      k.Group,
		Name:       k.Name,
		HTTPMethod: strings.ToUpper(k.HTTPMethod),
		HTTPPath:   strings.TrimSpace(k.HTTPPath),
	}
}

func keyOf(c Command) MatchKey {
	return MatchKey{Group: c.Group, Name: c.Name, HTTPMethod: c.HTTPMethod, HTTPPath: c.HTTPPath}.normalized()
}

// ProviderContract is a derived description of a provider-backed
// argument surfaced by a command, re-derived wholesale after every
// patch rather than merged with stale state.
type ProviderContract struct {
	CommandID string `yaml:"command_id"`
	Argument  string `yaml:"argument"`
}

// Manifest is a catalog's command list plus its derived provider
// contracts and vendor tag.
type Manifest struct {
	Commands         []Command          `yaml:"commands"`
	ProviderContracts []ProviderContract `yaml:"provider_contracts"`
	Vendor           string             `yaml:"vendor,omitempty"`
}

// Catalog is a named, loadable collection of commands.
type Catalog struct {
	ID          string            `yaml:"id"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description,omitempty"`
	Manifest    Manifest          `yaml:"manifest"`
	BaseURLs    map[string]string `yaml:"base_urls,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Enabled     bool              `yaml:"enabled"`
}

// sortAndDedupCommands imposes the canonical total order
// (group, name, method, path) and keeps only the first command for each
// match key, resolving
// spec.md §9's Open Question on canonical ordering: lexicographic over
// the match key is simple, stable, and makes patch output diff
// cleanly (§4.12's "encoding must be stable" requirement).
func sortAndDedupCommands(commands []Command) []Command {
	sorted := make([]Command, len(commands))
	copy(sorted, commands)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := keyOf(sorted[i]), keyOf(sorted[j])
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.HTTPMethod != b.HTTPMethod {
			return a.HTTPMethod < b.HTTPMethod
		}
		return a.HTTPPath < b.HTTPPath
	})

	out := make([]Command, 0, len(sorted))
	seen := make(map[MatchKey]bool, len(sorted))
	for _, c := range sorted {
		k := keyOf(c)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	return out
}

// deriveProviderContracts rebuilds provider_contracts from scratch off
// the resulting command list (§4.12 step 4: never preserve stale
// contracts). A command exposes a provider contract for its ServiceID
// argument when one is set, and for its PluginName/ToolName pairing
// when it is a plugin command — mirroring the two execution kinds
// runner.CommandSpec recognizes.
func deriveProviderContracts(commands []Command) []ProviderContract {
	contracts := make([]ProviderContract, 0, len(commands))
	for _, c := range commands {
		switch c.Kind {
		case ExecutionPlugin:
			if c.PluginName != "" {
				contracts = append(contracts, ProviderContract{CommandID: c.ID, Argument: "plugin_name"})
			}
		default:
			if c.ServiceID != "" {
				contracts = append(contracts, ProviderContract{CommandID: c.ID, Argument: "service_id"})
			}
		}
	}
	return contracts
}
