package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/spherical/image-extractor/cmd/image-extractor/ui"
	"github.com/spherical/image-extractor/pkg/extractor"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <document>...",
	Short: "Show document details and the tools that will be used",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	// inspection needs neither the OCR engine nor the run history
	cfg.OCR.Enabled = false
	cfg.History.Enabled = false

	client, err := extractor.NewClientWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize extractor: %w", err)
	}
	defer client.Close()

	ui.Section("Documents")
	var rows [][]string
	for _, path := range args {
		in, err := client.Inspect(path)
		if err != nil {
			ui.Error("%s: %v", path, err)
			continue
		}
		pages := "-"
		if in.Type == extractor.DocumentTypePDF {
			pages = strconv.Itoa(in.Pages)
		}
		rows = append(rows, []string{in.Path, string(in.Type), pages, in.OutputDir})
	}
	ui.Table([]string{"Document", "Type", "Pages", "Output directory"}, rows)

	ui.Section("Tools")
	tools := cfg.ResolveTools()
	for _, t := range []struct{ name, path string }{
		{"pdfimages", tools.PDFImages},
		{"exiftool", tools.ExifTool},
		{"unzip", tools.Unzip},
	} {
		if t.path == "" {
			ui.Warning("%s not found", t.name)
			continue
		}
		ui.Success("%s: %s", t.name, t.path)
	}
	return nil
}
