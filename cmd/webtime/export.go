package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goodtune/webtime/internal/report"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export tracked time as CSV",
	Long: `Export per-domain totals as CSV. Without --output the file is named
website_time_data_<date>.csv in the current directory; "-" writes to stdout.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (\"-\" for stdout)")
	addServerFlag(exportCmd)
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	source, err := openDataSource()
	if err != nil {
		return err
	}
	defer source.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	snap, err := source.Data(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tracking data: %w", err)
	}
	if len(snap.Domains) == 0 {
		return fmt.Errorf("no data available to export")
	}

	var w io.Writer = cmd.OutOrStdout()
	path := exportOutput
	if path == "" {
		path = report.ExportFilename(source.Today())
	}
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}

	if err := report.WriteCSV(w, snap); err != nil {
		return err
	}

	if path != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d domains to %s\n", len(snap.Domains), path)
	}
	return nil
}
