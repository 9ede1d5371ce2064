package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/image-extractor/cmd/image-extractor/ui"
	"github.com/spherical/image-extractor/pkg/extractor"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently processed documents",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.History.Enabled {
		ui.Info("Run history is disabled in the configuration")
		return nil
	}
	cfg.OCR.Enabled = false

	client, err := extractor.NewClientWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize extractor: %w", err)
	}
	defer client.Close()

	runs, err := client.History(context.Background(), historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.Info("No runs recorded yet")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		result := r.OutputDir
		if !r.Succeeded() {
			result = ui.Truncate(r.Message, 60)
		}
		rows = append(rows, []string{
			r.FinishedAt.Local().Format(time.DateTime),
			ui.Truncate(r.SourcePath, 50),
			r.Status,
			strconv.Itoa(r.ImageCount),
			result,
		})
	}
	ui.Table([]string{"Finished", "Document", "Status", "Images", "Output / error"}, rows)
	return nil
}
