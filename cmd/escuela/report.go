package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deppfellow/escuela/internal/client"
	"github.com/deppfellow/escuela/internal/lib/utils"
)

func newReportCmd() *cobra.Command {
	var (
		baseURL  string
		username string
		password string
		local    bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the dashboard summary of a running API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

			store := client.NewStore(client.New(baseURL), log)
			if err := store.Login(cmd.Context(), username, password); err != nil {
				return err
			}

			if local {
				return utils.PrintJSON(cmd.OutOrStdout(), store.Stats())
			}

			summary, err := store.Client().Summary(cmd.Context())
			if err != nil {
				return err
			}
			return utils.PrintJSON(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "API base URL")
	cmd.Flags().StringVar(&username, "username", os.Getenv("ESCUELA_ADMIN__USERNAME"), "admin username")
	cmd.Flags().StringVar(&password, "password", os.Getenv("ESCUELA_REPORT_PASSWORD"), "admin password")
	cmd.Flags().BoolVar(&local, "local", false, "compute the figures from the fetched collections instead of /resumen")
	return cmd
}
