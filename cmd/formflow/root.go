package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-formflow/pkg/config"
	"github.com/goliatone/go-formflow/pkg/definitions"
)

// app carries state shared by every subcommand.
type app struct {
	configPath string
	apiURL     string
	token      string
	verbose    bool

	cfg     *config.Config
	logger  *zap.Logger
	catalog *definitions.Catalog
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "formflow",
		Short: "Fill in multi-step governance forms from the terminal",
		Long: `formflow walks the dashboard forms (application registry, AI assessment,
trust center publishing) step by step and submits them to the REST API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "formflow.yaml", "configuration file")
	flags.StringVar(&a.apiURL, "api", "", "API base URL (overrides config)")
	flags.StringVar(&a.token, "token", "", "bearer token (overrides config)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newValidateCmd(a),
		newRunCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.API.BaseURL = a.apiURL
	}
	if a.token != "" {
		cfg.API.Token = a.token
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		return err
	}
	a.logger = logger

	catalog, err := definitions.NewCatalog()
	if err != nil {
		return err
	}
	if cfg.Definitions.Dir != "" {
		if err := catalog.LoadDir(cfg.Definitions.Dir); err != nil {
			return err
		}
	}
	a.catalog = catalog
	return nil
}

func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.DisableStacktrace = true
	}
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("logging level: %w", err)
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
