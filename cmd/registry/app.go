package main

import (
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/djb258/client-sub001/internal/config"
	"github.com/djb258/client-sub001/internal/gateway"
	"github.com/djb258/client-sub001/internal/logger"
	"github.com/djb258/client-sub001/internal/registry"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries the state shared by every subcommand. Configuration is read
// once in the root pre-run hook and passed down from here.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// flags; empty means "use the environment"
	root      string
	registry  string
	logLevel  string
	logFormat string

	cfg   *config.Config
	log   *logger.Logger
	ready bool
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "registry",
		Short:         "Column registry pipeline: generate, verify, validate, migrate",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.root, "root", "", "project root (default $REGISTRY_ROOT or .)")
	pf.StringVar(&a.registry, "registry", "", "registry file, relative to --root (default $REGISTRY_PATH)")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (default $LOG_LEVEL)")
	pf.StringVar(&a.logFormat, "log-format", "", "json or console (default $LOG_FORMAT)")

	cmd.AddCommand(
		a.generateCmd(),
		a.verifyCmd(),
		a.validateCmd(),
		a.migrateCmd(),
		a.lintCmd(),
		a.mcpCmd(),
	)
	return cmd
}

func (a *app) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	override(&cfg.Root, a.root)
	override(&cfg.RegistryPath, a.registry)
	override(&cfg.LogLevel, a.logLevel)
	override(&cfg.LogFormat, a.logFormat)
	a.cfg = cfg

	a.log = logger.New(&logger.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		TimeFormat: "rfc3339",
		Output:     a.stderr,
	})
	a.ready = true
	return nil
}

func override(dst *string, flag string) {
	if flag != "" {
		*dst = flag
	}
}

// registryPath resolves the registry file against the project root.
func (a *app) registryPath() string {
	if filepath.IsAbs(a.cfg.RegistryPath) {
		return a.cfg.RegistryPath
	}
	return filepath.Join(a.cfg.Root, a.cfg.RegistryPath)
}

func (a *app) loadRegistry() (*registry.ColumnRegistry, error) {
	reg, err := registry.Load(a.registryPath())
	if err != nil {
		return nil, err
	}
	a.log.Debug("registry loaded",
		logger.F("path", a.registryPath()),
		logger.F("version", reg.Version),
		logger.F("tables", len(reg.Tables)),
	)
	return reg, nil
}

// gateway builds the gateway client. Only validate and migrate need it, so
// its settings are read lazily.
func (a *app) gateway() (*gateway.Client, error) {
	gw, err := config.LoadGateway()
	if err != nil {
		return nil, err
	}
	return gateway.NewClient(gw, gateway.WithLogger(a.log)), nil
}
