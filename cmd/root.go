package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bptracker",
		Short: "Blood pressure tracker backend",
		Long: `bptracker reads systolic, diastolic and pulse values from photos of a
blood pressure monitor, stores them and produces PDF, HTML, CSV and XLSX
reports.

Configuration is read from the environment (and .env when present).
Run without a subcommand to start the HTTP server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	root.AddCommand(
		newServeCmd(),
		newExtractCmd(),
		newReportCmd(),
		newMigrateCmd(),
	)
	return root
}
