package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/pkg/logging"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

var (
	// Version is set at build time.
	Version = "dev"

	envFile string
)

// app is the process state shared by every command.
type app struct {
	cfg             *config.Config
	logger          ectologger.Logger
	shutdownTracing func(context.Context) error
}

var current app

var rootCmd = &cobra.Command{
	Use:           "fern",
	Short:         "Alberta well data normalization pipeline",
	Long:          "Downloads the AER ST1 and ST37 well lists and Petrinex production volumes, and joins them into one normalized well table.",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       Version,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(envFile)
		if err != nil {
			return err
		}
		logger, err := logging.New(cfg.AppName, cfg.LogLevel, cfg.PrettyLogs)
		if err != nil {
			return err
		}
		shutdown, err := tracing.Setup(cmd.Context(), tracing.Config{
			Enabled:     cfg.OTLPEnabled,
			ServiceName: cfg.AppName,
			Endpoint:    cfg.OTLPEndpoint,
			Protocol:    cfg.OTLPProtocol,
			Insecure:    cfg.OTLPInsecure,
			SampleRatio: cfg.OTLPSampleRatio,
		})
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		current = app{cfg: cfg, logger: logger, shutdownTracing: shutdown}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
		if current.shutdownTracing == nil {
			return nil
		}
		return current.shutdownTracing(context.WithoutCancel(cmd.Context()))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to an optional .env file")
	rootCmd.AddCommand(runCmd, serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		if current.logger != nil {
			current.logger.WithError(err).Error("fern exited with an error")
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
