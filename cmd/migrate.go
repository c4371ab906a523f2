package cmd

import (
	"github.com/spf13/cobra"

	"github.com/open-crosspost/scheduler-service/internal/config"
	"github.com/open-crosspost/scheduler-service/internal/store/pg"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequirePostgresURL(); err != nil {
				return err
			}
			return pg.Migrate(cfg.PostgresURL)
		},
	}
}
