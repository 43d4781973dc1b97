package main

import (
	"fmt"
	"log/slog"

	"github.com/oattyio/oatty/internal/catalogstore"
	"github.com/oattyio/oatty/internal/cli"
	"github.com/oattyio/oatty/internal/config"
	"github.com/oattyio/oatty/internal/logging"
	"github.com/oattyio/oatty/pkg/plugin"
	"github.com/oattyio/oatty/pkg/plugin/audit"
)

// appContext holds the services every subcommand shares. It is
// constructed empty in main and populated by init once cobra has
// parsed the global flags, before any subcommand's RunE runs.
type appContext struct {
	cfg      *config.Config
	logger   *slog.Logger
	catalogs *catalogstore.Store
	plugins  *plugin.Manager
}

// init loads config, builds the logger, and opens the catalog store,
// populating app in place. It runs from the root command's
// PersistentPreRunE, after cobra has parsed flags.ConfigPath and
// flags.Verbose but before any subcommand's RunE. Plugin configs are
// loaded lazily by commands that need them, since most invocations
// (run, catalog search) never touch a plugin.
func (app *appContext) init(flags *cli.GlobalFlags) error {
	path := flags.ConfigPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return fmt.Errorf("oatty: resolving config path: %w", err)
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("oatty: loading config: %w", err)
	}
	if flags.Verbose {
		cfg.Log.Level = "debug"
	}

	logger := logging.New(&logging.Config{
		Level:     cfg.Log.Level,
		Format:    logging.Format(cfg.Log.Format),
		AddSource: cfg.Log.AddSource,
	})

	cats, err := catalogstore.New(cfg.Catalog.StoragePath)
	if err != nil {
		return fmt.Errorf("oatty: opening catalog store: %w", err)
	}

	app.cfg, app.logger, app.catalogs = cfg, logger, cats
	return nil
}

// ensurePlugins lazily builds the plugin manager, used only by
// commands that actually start/stop/call plugins.
func (app *appContext) ensurePlugins(configs []plugin.Config) *plugin.Manager {
	if app.plugins != nil {
		return app.plugins
	}
	var auditLog *audit.Logger
	if app.cfg.Plugin.AuditLogPath != "" {
		if l, err := audit.NewFileLogger(app.cfg.Plugin.AuditLogPath); err == nil {
			auditLog = l
		} else {
			app.logger.Warn("failed to open plugin audit log, continuing without it", "path", app.cfg.Plugin.AuditLogPath, "error", err)
		}
	}
	app.plugins = plugin.NewManager(configs, auditLog, app.logger)
	return app.plugins
}
