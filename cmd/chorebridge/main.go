// Package main implements the chorebridge CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dukerupert/chorebridge/internal/config"
	"github.com/dukerupert/chorebridge/internal/donetick"
	"github.com/dukerupert/chorebridge/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "chorebridge",
	Short:         "Bulk import and manage chores on a Donetick server",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.DefaultPath+" if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// exitError reports a run that finished but should exit non-zero.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

// setup loads configuration and builds a logger and client from it.
func setup() (*config.Config, *slog.Logger, *donetick.Client, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("%w\nset the DONETICK_* environment variables or write %s", err, config.DefaultPath)
	}
	client := donetick.NewClient(cfg.Client(), donetick.WithLogger(logger))
	return cfg, logger, client, nil
}
