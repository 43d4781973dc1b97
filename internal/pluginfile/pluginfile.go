// Package pluginfile loads the YAML file naming oatty's configured
// plugins (analogous to the teacher's MCP global config), giving every
// entry config.PluginConfig's timing and restart settings (an entry
// has no timing fields of its own).
package pluginfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oattyio/oatty/internal/config"
	"github.com/oattyio/oatty/pkg/plugin"
)

type file struct {
	Plugins []entry `yaml:"plugins"`
}

type entry struct {
	Name     string   `yaml:"name"`
	Command  string   `yaml:"command"`
	Args     []string `yaml:"args,omitempty"`
	Env      []string `yaml:"env,omitempty"`
	Disabled bool     `yaml:"disabled,omitempty"`
}

// Load reads path and returns one plugin.Config per entry, with
// defaults applied from cfg. A missing file yields an empty slice, not
// an error — a fresh install has no plugins configured yet.
func Load(path string, cfg config.PluginConfig) ([]plugin.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pluginfile: reading %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("pluginfile: parsing %s: %w", path, err)
	}

	out := make([]plugin.Config, len(f.Plugins))
	for i, e := range f.Plugins {
		out[i] = plugin.Config{
			Name:               e.Name,
			Command:            e.Command,
			Args:               e.Args,
			Env:                e.Env,
			Disabled:           e.Disabled,
			StartupTimeout:     cfg.StartupTimeout,
			ShutdownTimeout:    cfg.ShutdownTimeout,
			RestartDelay:       cfg.RestartDelay,
			MaxRestartAttempts: cfg.MaxRestartAttempts,
			ToolCallTimeout:    cfg.ToolCallTimeout,
		}
	}
	return out, nil
}
