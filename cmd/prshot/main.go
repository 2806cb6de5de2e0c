package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/williampepple1/pr-snapshot/internal/config"
	"github.com/williampepple1/pr-snapshot/internal/logging"
	"github.com/williampepple1/pr-snapshot/internal/orchestrator"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configFile string
		logLevel   string
		outputDir  string
		batchSize  int
	)

	cmd := &cobra.Command{
		Use:           "prshot",
		Short:         "Screenshot every pull request an author opened in a repository",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = logLevel
			}
			if cmd.Flags().Changed("output") {
				cfg.Output.Dir = outputDir
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.Scheduler.BatchSize = batchSize
			}

			logger, closer, err := logging.Setup(cfg.Log.Level, cfg.Log.File)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
				return err
			}
			defer closer.Close()

			if err := cfg.Validate(); err != nil {
				logger.Error("Invalid configuration", "error", err)
				return err
			}

			if err := orchestrator.New(cfg, logger).Run(cmd.Context()); err != nil {
				logger.Error("Run finished with errors", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (YAML)")
	cmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "Set the logging level (debug, info, warn, error)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", config.DefaultOutputDir, "Directory screenshots are written to")
	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", config.DefaultBatchSize, "Number of pull requests processed at once")

	cmd.AddCommand(newInitCommand())
	return cmd
}

func newInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init [file]",
		Short: "Write a configuration file populated with defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "prshot.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.CreateDefault().Save(path); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return nil
		},
	}
}
