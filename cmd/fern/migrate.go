package main

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/startup"
)

var migrateVersion uint

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		pg := database.NewPostgres(postgresConfig(current.cfg), current.logger)

		st := startup.NewStartup(current.logger, current.cfg.StartupMaxAttempts, current.cfg.StartupRetryUnit)
		st.AddDependency(pg)
		if err := st.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = st.Stop(ctx) }()

		return migrate(pg, current, migrateVersion)
	},
}

func init() {
	migrateCmd.Flags().UintVar(&migrateVersion, "version", 0, "Migrate to this version instead of the latest")
}
