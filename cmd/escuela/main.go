package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "escuela",
		Short:         "School records API: students, teachers, subjects and enrollments",
		SilenceUsage:  true,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newHashPasswordCmd(),
		newReportCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
