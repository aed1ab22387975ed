package main

import (
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/pipeline"
)

var runOpts pipeline.Options

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the normalization pipeline once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := buildServices(ctx, current)
		if err != nil {
			return err
		}
		defer s.stop(ctx)

		summary, err := s.runner.Run(ctx, runOpts)
		if err != nil {
			return err
		}
		current.logger.WithContext(ctx).WithFields(map[string]any{
			"run_id":  summary.RunID,
			"rows":    summary.Rows["normalized"],
			"summary": filepath.Join(current.cfg.OutputDir, pipeline.SummaryFile),
		}).Info("Run finished")
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runOpts.SkipDownload, "skip-download", false, "Use the files already in the raw data directory")
	runCmd.Flags().BoolVar(&runOpts.SkipProfile, "skip-profile", false, "Do not write the profile report")
}
