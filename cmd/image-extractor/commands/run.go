package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/image-extractor/cmd/image-extractor/ui"
	"github.com/spherical/image-extractor/internal/config"
	"github.com/spherical/image-extractor/internal/domain"
	"github.com/spherical/image-extractor/pkg/extractor"
)

var (
	runFormat    string
	runOCR       bool
	runMetadata  bool
	runOutputDir string
	runWorkers   int
)

var runCmd = &cobra.Command{
	Use:   "run <document>...",
	Short: "Extract images from documents",
	Long: `Extract every embedded image from the given PDF and DOCX documents into a
<name>_images directory, next to each document or under --output-dir.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "", "export format: jpeg, tiff or jpegxl")
	runCmd.Flags().BoolVar(&runOCR, "ocr", false, "create a searchable PDF for each PDF document")
	runCmd.Flags().BoolVar(&runMetadata, "metadata", false, "write descriptive metadata into extracted images")
	runCmd.Flags().StringVarP(&runOutputDir, "output-dir", "o", "", "create output directories under this directory")
	runCmd.Flags().IntVarP(&runWorkers, "workers", "w", 0, "documents processed in parallel")
	rootCmd.AddCommand(runCmd)
}

// applyRunFlags overrides configuration with explicitly set flags.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("format") {
		f, err := domain.ParseExportFormat(runFormat)
		if err != nil {
			return err
		}
		cfg.Output.Format = f
	}
	if flags.Changed("ocr") {
		cfg.OCR.Enabled = runOCR
	}
	if flags.Changed("metadata") {
		cfg.Metadata.Enabled = runMetadata
	}
	if flags.Changed("output-dir") {
		cfg.Output.Destination = domain.DestinationCustomDirectory
		cfg.Output.Directory = runOutputDir
	}
	if flags.Changed("workers") {
		cfg.Pipeline.Workers = runWorkers
	}
	return cfg.Validate()
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	client, err := extractor.NewClientWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize extractor: %w", err)
	}
	defer client.Close()

	added, unsupported := client.Add(args...)
	for _, path := range unsupported {
		ui.Warning("Skipping unsupported file: %s", path)
	}
	if len(added) == 0 {
		return fmt.Errorf("no PDF or DOCX documents to process")
	}

	ui.Info("Processing %d document(s) as %s", len(added), cfg.Output.Format.DisplayName())
	if ui.Verbose() {
		ui.KeyValue("Metadata", strconv.FormatBool(cfg.Metadata.Enabled))
		ui.KeyValue("OCR", strconv.FormatBool(cfg.OCR.Enabled))
		ui.KeyValue("Workers", strconv.Itoa(cfg.Pipeline.Workers))
	}

	start := time.Now()
	events, err := client.Process(ctx)
	if err != nil {
		return err
	}

	progress := ui.NewRunProgress(len(added))
	for evt := range events {
		progress.Update(evt)
	}
	finished := progress.Finish()

	images, failed := 0, 0
	for _, evt := range finished {
		if evt.State.Phase == extractor.PhaseCompleted {
			images += evt.State.ImageCount
		} else {
			failed++
		}
	}

	ui.Section("Summary")
	ui.Table([]string{"Metric", "Value"}, [][]string{
		{"Documents", strconv.Itoa(len(added))},
		{"Completed", strconv.Itoa(len(finished) - failed)},
		{"Failed", strconv.Itoa(failed)},
		{"Not started", strconv.Itoa(len(added) - len(finished))},
		{"Images", strconv.Itoa(images)},
		{"Duration", ui.FormatDuration(time.Since(start))},
	})

	if ctx.Err() != nil {
		return fmt.Errorf("interrupted")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed", failed, len(added))
	}
	return nil
}
