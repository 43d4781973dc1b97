package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/oattyio/oatty/internal/commandexec"
	"github.com/oattyio/oatty/internal/secretstore"
	"github.com/oattyio/oatty/internal/style"
	"github.com/oattyio/oatty/internal/workflowfile"
	"github.com/oattyio/oatty/pkg/catalog"
	"github.com/oattyio/oatty/pkg/driver"
	"github.com/oattyio/oatty/pkg/history"
	"github.com/oattyio/oatty/pkg/history/sqlitestore"
	"github.com/oattyio/oatty/pkg/runner"
	"github.com/oattyio/oatty/pkg/runstate"
	"github.com/oattyio/oatty/pkg/workflow"
)

func newRunCommand(app *appContext) *cobra.Command {
	var profileID string
	var async bool

	cmd := &cobra.Command{
		Use:   "run <workflow.yaml>",
		Short: "Run a workflow file to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if async {
				return runWorkflowAsync(cmd.Context(), app, args[0], profileID)
			}
			return runWorkflow(cmd.Context(), app, args[0], profileID)
		},
	}
	cmd.Flags().StringVar(&profileID, "profile", "default", "profile id used to key history-defaults lookups")
	cmd.Flags().BoolVar(&async, "async", false, "stream step-by-step lifecycle events instead of waiting for the run to finish")
	return cmd
}

// preparedRun is everything a workflow run needs that doesn't depend
// on whether it executes synchronously or through the driver.
type preparedRun struct {
	spec     workflow.WorkflowSpec
	state    *runstate.State
	stepExec *workflow.StepExecutor
	registry *commandexec.Registry
	closeAll func()
}

func prepareRun(app *appContext, path, profileID string) (*preparedRun, error) {
	spec, bindings, err := workflowfile.Load(path)
	if err != nil {
		return nil, fmt.Errorf("oatty: %w", err)
	}

	cats, err := app.catalogs.All()
	if err != nil {
		return nil, fmt.Errorf("oatty: loading catalogs: %w", err)
	}
	registry := commandexec.NewRegistry(cats)

	var pluginGateway runner.PluginGateway
	if usesPlugins(cats) {
		mgr, _, err := loadPlugins(app)
		if err != nil {
			return nil, err
		}
		pluginGateway = mgr
	}

	services := map[string]commandexec.ServiceConfig{}
	for _, cat := range cats {
		for svcID, baseURL := range cat.BaseURLs {
			services[svcID] = commandexec.ServiceConfig{BaseURL: baseURL, Headers: cat.Headers}
		}
	}

	run := runner.RegistryRunner{
		HTTP:   commandexec.NewHTTPRunner(services, nil, secretstore.New()),
		Plugin: runner.PluginRunner{Gateway: pluginGateway},
	}

	state := runstate.New(bindings)

	closeAll := func() {}
	var store history.Store
	if app.cfg.History.DatabasePath != "" {
		s, err := sqlitestore.New(sqlitestore.Config{
			Path:             app.cfg.History.DatabasePath,
			EnableEncryption: app.cfg.History.EnableEncryption,
		})
		if err != nil {
			return nil, fmt.Errorf("oatty: opening history store: %w", err)
		}
		closeAll = func() { s.Close() }
		store = s
	}

	seeded := state.ApplyInputDefaults(runstate.DefaultsConfig{
		Store:      store,
		ProfileID:  profileID,
		WorkflowID: spec.ID,
	})
	for _, r := range seeded {
		app.logger.Debug("history default seed attempted", "input", r.InputName, "seeded", r.Seeded, "reason", r.Reason)
	}
	state.EvaluateInputProviders()

	stepExec := workflow.NewStepExecutor(run, app.logger)
	return &preparedRun{spec: spec, state: state, stepExec: stepExec, registry: registry, closeAll: closeAll}, nil
}

func runWorkflow(ctx context.Context, app *appContext, path, profileID string) error {
	pr, err := prepareRun(app, path, profileID)
	if err != nil {
		return err
	}
	defer pr.closeAll()

	executor := workflow.NewExecutor(pr.stepExec, pr.registry, app.logger)
	result, err := pr.state.ExecuteWithRunner(ctx, executor, pr.spec)
	printResult(app.logger, result)
	if err != nil {
		return fmt.Errorf("oatty: run %q: %w", pr.spec.ID, err)
	}
	if result.Status == workflow.StepFailed {
		return fmt.Errorf("oatty: workflow %q failed (%d succeeded, %d failed, %d skipped)",
			pr.spec.ID, result.Succeeded, result.Failed, result.Skipped)
	}
	return nil
}

func runWorkflowAsync(ctx context.Context, app *appContext, path, profileID string) error {
	pr, err := prepareRun(app, path, profileID)
	if err != nil {
		return err
	}
	defer pr.closeAll()

	d := driver.New(pr.stepExec, pr.registry, app.logger)
	go d.Run(ctx, pr.spec, pr.state.RunContext)

	var failed bool
	for ev := range d.Events() {
		switch ev.Kind {
		case driver.EventStepStarted:
			fmt.Printf("%s %s\n", style.Muted.Render("->"), style.Bold.Render(ev.StepStarted.StepID))
		case driver.EventStepFinished:
			fmt.Printf("  %s %s\n", style.Bold.Render(ev.StepFinished.StepID), style.Status(string(ev.StepFinished.Status)))
		case driver.EventRunCompleted:
			fmt.Printf("%s: %s\n", style.Bold.Render("workflow"), style.Status(string(ev.RunCompleted.Status)))
			failed = ev.RunCompleted.Status == driver.RunFailed || ev.RunCompleted.Status == driver.RunCanceled
		}
	}
	if failed {
		return fmt.Errorf("oatty: workflow %q did not succeed", pr.spec.ID)
	}
	return nil
}

// usesPlugins reports whether any catalog command requires a plugin
// gateway, so a run over purely HTTP workflows never pays the cost of
// loading plugin configs or building a manager.
func usesPlugins(cats []catalog.Catalog) bool {
	for _, cat := range cats {
		for _, c := range cat.Manifest.Commands {
			if c.Kind == catalog.ExecutionPlugin {
				return true
			}
		}
	}
	return false
}

func printResult(logger *slog.Logger, result workflow.WorkflowResult) {
	for _, step := range result.Steps {
		logger.Info("step finished", "step", step.ID, "status", step.Status, "attempts", step.Attempts)
		fmt.Printf("  %s %s %s\n", style.Bold.Render(step.ID), style.Status(string(step.Status)), style.Muted.Render(fmt.Sprintf("(%d attempt(s))", step.Attempts)))
	}
	logger.Info("workflow finished", "status", result.Status,
		"succeeded", result.Succeeded, "failed", result.Failed, "skipped", result.Skipped)
	fmt.Printf("%s: %s (%d succeeded, %d failed, %d skipped)\n",
		style.Bold.Render("workflow"), style.Status(string(result.Status)), result.Succeeded, result.Failed, result.Skipped)
}
