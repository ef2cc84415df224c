package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mishannn/tinkoff/internal/config"
	"github.com/mishannn/tinkoff/internal/logging"
)

var (
	cfgFile string
	v       = config.New()
	cfg     *config.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tinkoff",
	Short: "Tinkoff bank API client",
	Long: `tinkoff talks to the Tinkoff bank API.

Example usage:
  tinkoff login                       # Sign in, prompting for the SMS code
  tinkoff accounts --wuid W --session S
  tinkoff serve                       # Start the web login demo`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .tinkoff.yaml)")
	rootCmd.PersistentFlags().String("base-url", "", "bank API base URL")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	_ = v.BindPFlag("base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() error {
	var err error

	cfg, err = config.Load(v, cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}

	logger.Debug("configuration loaded",
		zap.String("base_url", cfg.BaseURL),
		zap.String("listen_addr", cfg.ListenAddr),
		zap.Bool("redis", cfg.RedisURL != ""),
	)

	return nil
}
