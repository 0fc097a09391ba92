package main

import (
	"github.com/spf13/cobra"

	"github.com/deppfellow/escuela/internal/config"
	"github.com/deppfellow/escuela/internal/database"
	"github.com/deppfellow/escuela/internal/logger"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}

			log := logger.NewLogger(cfg.Observability)
			return database.Migrate(cmd.Context(), &log, cfg)
		},
	}
}
