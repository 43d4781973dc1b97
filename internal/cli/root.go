// Package cli builds oatty's root Cobra command and its global flags.
// Subcommands live under cmd/oatty, grounded on this shared root the
// way the teacher's own conductor binary shares a root command across
// its commands/* packages.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// SetVersion records build-time version information, called from
// main before the root command is built.
func SetVersion(v, c, b string) {
	version, commit, buildDate = v, c, b
}

// GlobalFlags are the persistent flags every oatty subcommand shares.
type GlobalFlags struct {
	Verbose    bool
	ConfigPath string
}

// NewRootCommand builds oatty's root command and registers the global
// flags onto it. Subcommands are attached by the caller.
func NewRootCommand() (*cobra.Command, *GlobalFlags) {
	flags := &GlobalFlags{}

	cmd := &cobra.Command{
		Use:   "oatty",
		Short: "oatty orchestrates declarative, multi-step command workflows",
		Long: `oatty runs declarative workflows that call HTTP APIs and MCP
plugin tools, resolving their inputs from providers, history, and the
environment as they go.

Run 'oatty run <workflow.yaml>' to execute a workflow.
Run 'oatty plugin list' to see configured plugins.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose logging")
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to config file (default: XDG config dir)")

	return cmd, flags
}
