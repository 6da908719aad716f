package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bptracker/internal/models"
	"bptracker/internal/service"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a report or export file for a date range",
		Example: `  # PDF for March
  bptracker report --from 2024-03-01 --to 2024-03-31 -o march.pdf

  # All readings as a spreadsheet
  bptracker report --format xlsx`,
		Args: cobra.NoArgs,
		RunE: runReport,
	}

	cmd.Flags().String("from", "", "First day (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last day (YYYY-MM-DD)")
	cmd.Flags().StringP("format", "f", service.FormatPDF, "Output format: pdf, html, csv or xlsx")
	cmd.Flags().StringP("output", "o", "", "Output file path (default: the format's file name)")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")

	loc := a.cfg.Location()
	dr, err := models.ParseDateRange(from, to, loc)
	if err != nil {
		return err
	}

	if err := a.connect(cmd.Context(), false); err != nil {
		return err
	}
	svc := service.NewReportService(a.readings, nil, loc, a.logger)

	var out *service.Rendered
	switch format {
	case service.FormatPDF, service.FormatHTML:
		out, err = svc.Render(cmd.Context(), dr, format)
	default:
		out, err = svc.Export(cmd.Context(), dr, format)
	}
	if err != nil {
		return err
	}

	if outputPath == "" {
		outputPath = out.Filename
	}
	if err := os.WriteFile(outputPath, out.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	a.logger.Info("report written",
		zap.String("path", outputPath),
		zap.String("format", format),
		zap.String("range", dr.Key()),
		zap.Int("bytes", len(out.Data)),
	)
	return nil
}
