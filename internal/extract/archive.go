package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/image-extractor/internal/domain"
	"github.com/spherical/image-extractor/internal/naming"
	"github.com/spherical/image-extractor/internal/observability"
	"github.com/spherical/image-extractor/internal/process"
)

// mediaDir is where word processing containers keep embedded media.
const mediaDir = "word/media"

var archiveImageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "tiff": true, "tif": true,
	"gif": true, "bmp": true, "emf": true, "wmf": true, "svg": true,
}

// ArchiveExtractor copies embedded media out of a zip based container
type ArchiveExtractor struct {
	runner  process.Runner
	tool    string
	tempDir string
	logger  *observability.Logger
}

// NewArchiveExtractor creates an archive extraction stage using the given
// unzip executable. tempDir may be empty to use the system default.
func NewArchiveExtractor(runner process.Runner, unzipPath, tempDir string, logger *observability.Logger) *ArchiveExtractor {
	return &ArchiveExtractor{
		runner:  runner,
		tool:    unzipPath,
		tempDir: tempDir,
		logger:  logger.WithOperation("extract_archive"),
	}
}

// Extract unpacks the container into a private temp directory and copies the
// media files to outputDir as <doc>_I###.<ext>.
func (e *ArchiveExtractor) Extract(ctx context.Context, containerPath, outputDir, docStem string) ([]string, error) {
	if e.tool == "" {
		return nil, domain.ToolNotFound("unzip")
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, domain.IOError(fmt.Sprintf("Cannot create output directory: %s", outputDir), err)
	}

	tmp, err := os.MkdirTemp(e.tempDir, "image-extractor-*")
	if err != nil {
		return nil, domain.IOError("Failed to create temp directory", err)
	}
	defer os.RemoveAll(tmp)

	res, err := e.runner.Run(ctx, e.tool, "-o", containerPath, "-d", tmp)
	if err != nil {
		return nil, domain.InvalidContainer(err.Error())
	}
	if !res.Success() {
		return nil, domain.InvalidContainer(exitDetail(res))
	}

	media := filepath.Join(tmp, filepath.FromSlash(mediaDir))
	if info, err := os.Stat(media); err != nil || !info.IsDir() {
		return nil, domain.NoImagesFound()
	}

	sources, err := listImages(media, archiveImageExtensions)
	if err != nil {
		return nil, err
	}

	copied := make([]string, 0, len(sources))
	for i, src := range sources {
		ext := strings.TrimPrefix(filepath.Ext(src), ".")
		dst := filepath.Join(outputDir, naming.SequenceImageName(docStem, i+1, ext))
		if err := copyFile(src, dst); err != nil {
			return nil, domain.IOError(fmt.Sprintf("Cannot copy %s", filepath.Base(src)), err)
		}
		copied = append(copied, dst)
	}

	e.logger.Info().Str("container", filepath.Base(containerPath)).Int("images", len(copied)).Msg("Extracted images from container")
	return copied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
