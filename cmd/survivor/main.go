// Command survivor recommends survivor contest picks and maintains the
// inputs behind them.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/survivor/internal/config"
	"github.com/okian/survivor/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string

	// cfg is loaded before any subcommand runs.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "survivor",
		Short: "Recommend survivor contest picks",
		Long: `survivor picks one team per remaining week so that no team is used
twice and the chance of surviving every week is as high as possible.

Configuration is read from the file named by --config or SURVIVOR_CONFIG,
then from SURVIVOR_* environment variables.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (overrides SURVIVOR_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(recommendCmd, predictCmd, validateScheduleCmd, evaluateCmd, scrapeCmd, historyCmd)
}

func setup(cmd *cobra.Command, _ []string) error {
	path := configPath
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	loaded, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	cfg = loaded

	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	if err := logger.SetLevelString(level); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log level; falling back to info", logger.String("log_level", level))
		_ = logger.SetLevelString("info")
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
