package main

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/oattyio/oatty/internal/config"
	"github.com/oattyio/oatty/internal/pluginfile"
	"github.com/oattyio/oatty/internal/style"
	"github.com/oattyio/oatty/pkg/plugin"
)

func newPluginCommand(app *appContext) *cobra.Command {
	root := &cobra.Command{
		Use:   "plugin",
		Short: "Manage configured MCP plugins",
	}
	root.AddCommand(newPluginListCommand(app))
	root.AddCommand(newPluginStartCommand(app))
	root.AddCommand(newPluginStopCommand(app))
	root.AddCommand(newPluginStatusCommand(app))
	return root
}

// loadPlugins reads plugins.yaml from the data directory and returns a
// manager built over it, plus the configs themselves so commands can
// list plugin names before any have been started.
func loadPlugins(app *appContext) (*plugin.Manager, []plugin.Config, error) {
	dir, err := config.DataDir()
	if err != nil {
		return nil, nil, fmt.Errorf("oatty: resolving data directory: %w", err)
	}
	configs, err := pluginfile.Load(dir+"/plugins.yaml", app.cfg.Plugin)
	if err != nil {
		return nil, nil, fmt.Errorf("oatty: loading plugin configs: %w", err)
	}
	return app.ensurePlugins(configs), configs, nil
}

func newPluginListCommand(app *appContext) *cobra.Command {
	var match string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured plugins and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, configs, err := loadPlugins(app)
			if err != nil {
				return err
			}
			for _, c := range configs {
				if match != "" {
					ok, err := doublestar.Match(match, c.Name)
					if err != nil {
						return fmt.Errorf("oatty: invalid --match pattern %q: %w", match, err)
					}
					if !ok {
						continue
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.Name, style.Status(string(mgr.Status(c.Name))))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&match, "match", "", "glob pattern (doublestar syntax) to filter plugin names")
	return cmd
}

func newPluginStartCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start <name>",
		Short: "Start a configured plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := loadPlugins(app)
			if err != nil {
				return err
			}
			return mgr.StartPlugin(cmd.Context(), args[0])
		},
	}
}

func newPluginStopCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <name>",
		Short: "Stop a running plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := loadPlugins(app)
			if err != nil {
				return err
			}
			return mgr.StopPlugin(cmd.Context(), args[0])
		},
	}
}

func newPluginStatusCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <name>",
		Short: "Show a plugin's lifecycle status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := loadPlugins(app)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), style.Status(string(mgr.Status(args[0]))))
			return nil
		},
	}
}
