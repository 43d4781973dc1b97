package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oattyio/oatty/internal/catalogwatch"
	"github.com/oattyio/oatty/internal/prompt"
	"github.com/oattyio/oatty/pkg/catalog"
)

func newCatalogCommand(app *appContext) *cobra.Command {
	root := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and patch command catalogs",
	}
	root.AddCommand(newCatalogSearchCommand(app))
	root.AddCommand(newCatalogPatchCommand(app))
	root.AddCommand(newCatalogWatchCommand(app))
	return root
}

// newCatalogWatchCommand blocks, printing a line every time the
// catalog store file changes on disk, so an operator can confirm a
// patch applied by another process (or another oatty invocation)
// landed.
func newCatalogWatchCommand(app *appContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print a line each time the catalog store file changes on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := catalogwatch.New(app.cfg.Catalog.StoragePath)
			if err != nil {
				return fmt.Errorf("oatty: %w", err)
			}
			defer w.Close()

			ctx := cmd.Context()
			stop := make(chan struct{})
			go func() {
				<-ctx.Done()
				close(stop)
			}()
			w.Run(stop, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "catalog store changed: %s\n", app.cfg.Catalog.StoragePath)
			}, func(err error) {
				app.logger.Warn("catalog watch error", "error", err)
			})
			return nil
		},
	}
}

func newCatalogSearchCommand(app *appContext) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a catalog's commands by name or expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := app.catalogs.FindByTitle(title)
			if err != nil {
				return fmt.Errorf("oatty: %w", err)
			}
			matches, err := catalog.Search(cat.Manifest.Commands, args[0])
			if err != nil {
				return fmt.Errorf("oatty: %w", err)
			}
			for _, c := range matches {
				fmt.Fprintf(cmd.OutOrStdout(), "%s.%s\t%s %s\n", c.Group, c.Name, c.HTTPMethod, c.HTTPPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "catalog", "", "title of the catalog to search (required)")
	cmd.MarkFlagRequired("catalog")
	return cmd
}

// patchFile is the on-disk shape of a catalog patch request (§4.12),
// authored alongside the workflow files that need a command replaced.
type patchFile struct {
	TargetCatalogTitle      string `yaml:"target_catalog_title"`
	FailOnMissing           bool   `yaml:"fail_on_missing"`
	FailOnAmbiguous         bool   `yaml:"fail_on_ambiguous"`
	OverwriteExistingCatalog bool  `yaml:"overwrite_existing_catalog"`
	Operations              []struct {
		Key struct {
			Group      string `yaml:"group"`
			Name       string `yaml:"name"`
			HTTPMethod string `yaml:"http_method"`
			HTTPPath   string `yaml:"http_path"`
		} `yaml:"key"`
		Replacement catalog.Command `yaml:"replacement"`
	} `yaml:"operations"`
}

func newCatalogPatchCommand(app *appContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "patch <patch.yaml>",
		Short: "Apply a patch file's command replacements to a catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("oatty: %w", err)
			}
			var pf patchFile
			if err := yaml.Unmarshal(data, &pf); err != nil {
				return fmt.Errorf("oatty: parsing %s: %w", args[0], err)
			}

			if !yes {
				ok, err := prompt.Confirm(fmt.Sprintf("apply %d operation(s) to catalog %q?", len(pf.Operations), pf.TargetCatalogTitle), false)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}

			req := catalog.PatchRequest{
				TargetCatalogTitle:      pf.TargetCatalogTitle,
				FailOnMissing:           pf.FailOnMissing,
				FailOnAmbiguous:         pf.FailOnAmbiguous,
				OverwriteExistingCatalog: pf.OverwriteExistingCatalog,
			}
			for _, op := range pf.Operations {
				req.Operations = append(req.Operations, catalog.Operation{
					Key: catalog.MatchKey{
						Group:      op.Key.Group,
						Name:       op.Key.Name,
						HTTPMethod: op.Key.HTTPMethod,
						HTTPPath:   op.Key.HTTPPath,
					},
					Replacement: op.Replacement,
				})
			}

			result, err := catalog.Apply(app.catalogs, req)
			if err != nil {
				return fmt.Errorf("oatty: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d/%d operations, %d commands in %q\n",
				result.AppliedOperationCount, result.RequestedOperationCount, result.FinalCommandCount, result.CatalogID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "apply without an interactive confirmation prompt")
	return cmd
}
