package commands

import (
	"github.com/spf13/cobra"

	"github.com/spherical/image-extractor/cmd/image-extractor/ui"
)

var (
	cfgFile string
	verbose bool
	noColor bool
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "image-extractor",
	Short: "Extract embedded images from PDF and DOCX documents",
	Long: `image-extractor pulls every embedded image out of PDF and Word documents,
converts them to JPEG, TIFF or JPEG XL, tags them with descriptive metadata
and can produce a searchable copy of each PDF using OCR.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.InitUI(noColor, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
