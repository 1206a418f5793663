// Package cli contains the dqvalidate command definitions.
package cli

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/biomed-dq-validator/internal/config"
	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/internal/logging"
	"github.com/biomed-dq-validator/internal/service"
)

// ErrNotReady is returned by validate --fail-on-not-ready when the dataset
// is not ready for machine learning.
var ErrNotReady = errors.New("dataset is not ready for machine learning")

// app holds the state shared by every subcommand once the root pre-run has
// loaded the configuration.
type app struct {
	configPath string
	logLevel   string
	strict     bool

	cfg    *domain.Config
	logger *logrus.Logger
	engine *service.Engine
}

// NewRootCmd creates and returns the root command for the CLI.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "dqvalidate",
		Short: "Validate biomedical datasets for quality and de-identification",
		Long: `dqvalidate checks a tabular biomedical dataset for protected health
information, de-identification, completeness, outliers, clinical ranges,
duplicates and visit timelines, and scores it for machine-learning readiness.

Input files are JSON, either {"columns": [...], "rows": [...]} or a bare
array of row objects. Use "-" to read from stdin.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level written to stderr")
	flags.BoolVar(&a.strict, "strict", false, "escalate warnings to issues")

	registerValidateCmd(rootCmd, a)
	registerQuickCmd(rootCmd, a)
	registerCleanCmd(rootCmd, a)
	registerRangesCmd(rootCmd, a)
	registerReportsCmd(rootCmd, a)
	registerSetupCmd(rootCmd)

	return rootCmd
}

// load reads the configuration and builds the engine.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	manager, err := config.NewManagerFromFile(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = manager.GetConfig()
	if a.strict {
		a.cfg.Validation.StrictMode = true
	}

	logger, err := logging.New(domain.LoggingConfig{
		Level:  a.logLevel,
		Format: "text",
		Output: logging.OutputStderr,
	})
	if err != nil {
		return err
	}
	logger.SetOutput(cmd.ErrOrStderr())
	a.logger = logger

	a.engine, err = service.NewEngineFromConfig(a.cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create validation engine: %w", err)
	}
	return nil
}
