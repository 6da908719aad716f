package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bptracker/internal/ocr"
	"bptracker/internal/service"
)

func newExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [image-file]",
		Short: "Read a monitor photo and print the detected values",
		Long: `Run OCR and extraction on one image and print the result as JSON.
Nothing is stored.`,
		Example: `  # Use the configured engine (OCR_ENGINE)
  bptracker extract monitor.jpg

  # Force Google Cloud Vision
  bptracker extract monitor.jpg --engine vision`,
		Args: cobra.ExactArgs(1),
		RunE: runExtract,
	}

	cmd.Flags().String("engine", "", "OCR engine override (tesseract or vision)")
	cmd.Flags().Bool("text", false, "Print only the recognized text")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	ocrConfig := a.cfg.OCR.Config
	if name, _ := cmd.Flags().GetString("engine"); name != "" {
		ocrConfig.Engine = name
	}

	engine, err := ocr.New(cmd.Context(), ocrConfig, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OCR engine: %w", err)
	}
	defer engine.Close()

	svc := service.NewReadingService(nil, nil, engine, nil, nil,
		service.ReadingConfig{Location: a.cfg.Location(), OCRTimeout: a.cfg.OCR.Timeout}, a.logger)

	result, err := svc.Scan(cmd.Context(), data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if textOnly, _ := cmd.Flags().GetBool("text"); textOnly {
		_, err = fmt.Fprintln(out, result.Text)
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
