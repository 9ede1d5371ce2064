package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spherical/image-extractor/internal/domain"
	"github.com/spherical/image-extractor/internal/naming"
	"github.com/spherical/image-extractor/internal/observability"
	"github.com/spherical/image-extractor/internal/process"
)

// pdfImageExtensions are the encodings the extraction tool can emit.
var pdfImageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "tiff": true, "tif": true,
	"ppm": true, "pbm": true, "ccitt": true, "jp2": true, "jb2e": true,
}

// rawRoot is the output root handed to the extraction tool; its files come
// back as image-<page>-<index>.<ext>.
const rawRoot = "image"

// PDFExtractor pulls embedded images out of a PDF with an external tool
type PDFExtractor struct {
	runner process.Runner
	tool   string
	logger *observability.Logger
}

// NewPDFExtractor creates a PDF extraction stage. toolPath may be empty;
// the missing tool is only reported when Extract is called.
func NewPDFExtractor(runner process.Runner, toolPath string, logger *observability.Logger) *PDFExtractor {
	return &PDFExtractor{
		runner: runner,
		tool:   toolPath,
		logger: logger.WithOperation("extract_pdf"),
	}
}

// Extract runs the tool and returns the canonically renamed images sorted
// by file name.
func (e *PDFExtractor) Extract(ctx context.Context, pdfPath, outputDir string, format domain.ExportFormat, docStem string) ([]string, error) {
	if e.tool == "" {
		return nil, domain.ToolNotFound("pdfimages")
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, domain.IOError(fmt.Sprintf("Cannot create output directory: %s", outputDir), err)
	}

	args := []string{"-p"}
	args = append(args, format.ExtractionFlags()...)
	args = append(args, pdfPath, filepath.Join(outputDir, rawRoot))

	e.logger.Debug().Str("tool", e.tool).Strs("args", args).Msg("Running image extraction")

	res, err := e.runner.Run(ctx, e.tool, args...)
	if err != nil {
		return nil, domain.ToolExecutionFailed("pdfimages", err.Error())
	}
	if !res.Success() {
		return nil, domain.ToolExecutionFailed("pdfimages", res.TrimmedStderr())
	}

	files, err := listImages(outputDir, pdfImageExtensions)
	if err != nil {
		return nil, err
	}

	renamed, err := naming.RenameRawFiles(docStem, files)
	if err != nil {
		return nil, err
	}

	e.logger.Info().Str("pdf", filepath.Base(pdfPath)).Int("images", len(renamed)).Msg("Extracted images from PDF")
	return renamed, nil
}

// listImages returns the files in dir whose extension is allowed, sorted
// lexicographically by file name.
func listImages(dir string, allowed map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("Cannot list directory: %s", dir), err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if allowed[naming.Extension(entry.Name())] {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	files := make([]string, len(names))
	for i, name := range names {
		files[i] = filepath.Join(dir, name)
	}
	return files, nil
}

func exitDetail(res *process.Result) string {
	if stderr := strings.TrimSpace(res.Stderr); stderr != "" {
		return stderr
	}
	return fmt.Sprintf("exit code %d", res.ExitCode)
}
