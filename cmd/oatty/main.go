// Command oatty runs declarative command workflows: it resolves their
// inputs from providers, history, and the environment, then dispatches
// each step through an HTTP or MCP plugin command runner.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oattyio/oatty/internal/cli"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildDate)
	rootCmd, flags := cli.NewRootCommand()

	app := &appContext{}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.init(flags)
	}

	rootCmd.AddCommand(newRunCommand(app))
	rootCmd.AddCommand(newPluginCommand(app))
	rootCmd.AddCommand(newCatalogCommand(app))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
