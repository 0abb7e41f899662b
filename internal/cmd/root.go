// Package cmd implements the factcheck command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rahulmurugan/fact-check/internal/config"
	"github.com/rahulmurugan/fact-check/internal/logger"
)

var (
	// Version is set at build time.
	Version = "dev"

	cfgPath  string
	logLevel string

	appConfig *config.AppConfig
	log       = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "factcheck",
	Short: "Match claims against a corpus of evidence documents",
	Long: `factcheck indexes evidence documents and returns, for each claim, the
passages that are most similar to it.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = log.Sync() }()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/factcheck/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level from the config")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	var (
		cfg  *config.AppConfig
		path string
		err  error
	)
	if cfgPath == "" {
		cfg, path, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
		path = cfgPath
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	l, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	appConfig = cfg
	log = l
	log.Debug("config loaded", zap.String("path", path))
	return nil
}
