package main

import (
	"github.com/spf13/cobra"

	"csvgrid/internal/config"
)

var exportFlags struct {
	jobs string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run every export of a job file",
	Long: `Run the exports defined in a YAML job file through the worker pool.

Jobs with a destination are moved there; all others are published to the storage
provider selected by STORAGE_TYPE under exports/{job-id}/.

Examples:
  csvgrid export --jobs jobs.yaml`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportFlags.jobs, "jobs", "jobs.yaml", "job file path")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defs, err := config.LoadJobs(exportFlags.jobs)
	if err != nil {
		return err
	}
	return a.runJobs(cmd.Context(), defs)
}
