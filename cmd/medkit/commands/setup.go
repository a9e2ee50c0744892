// Package commands implements the medkit CLI subcommands.
package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/teranos/medkit/config"
	"github.com/teranos/medkit/errors"
	"github.com/teranos/medkit/logger"

	// registers the text operations
	_ "github.com/teranos/medkit/textop"
)

// cfg is the configuration loaded by Setup
var cfg *config.Config

// Setup loads the configuration and initializes the global logger. Each -v
// raises the log level above the configured one.
func Setup(cmd *cobra.Command) error {
	loaded, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg = loaded

	level := logger.ParseLevel(cfg.Log.Level)
	verbosity, _ := cmd.Flags().GetCount("verbose")
	if verbosity > 0 {
		level = minLevel(level, logger.VerbosityToLevel(verbosity))
	}
	if err := logger.InitializeWithLevel(cfg.Log.JSON, level); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadFromFile(path)
	}
	loaded, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	return loaded, nil
}

// currentConfig returns the configuration loaded by Setup, or the defaults
// when a command runs without it (tests).
func currentConfig() *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

func minLevel(a, b zapcore.Level) zapcore.Level {
	if a < b {
		return a
	}
	return b
}
