// Package convert re-encodes extracted images into the export format.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif" // register decoders
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/jpegxl"
	"github.com/hhrutter/tiff"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/spherical/image-extractor/internal/domain"
	"github.com/spherical/image-extractor/internal/naming"
	"github.com/spherical/image-extractor/internal/observability"
)

const (
	// DefaultJPEGQuality corresponds to a 0.92 compression factor.
	DefaultJPEGQuality = 92

	// jxlLossless is the jpegxl quality that selects lossless coding.
	jxlLossless = 100
)

// Encoder writes an image in one export format
type Encoder func(img image.Image) ([]byte, error)

// Converter implements the conversion stage
type Converter struct {
	jpegQuality int
	jxlEffort   int
	logger      *observability.Logger
}

// NewConverter creates a converter with the default JPEG quality.
func NewConverter(logger *observability.Logger) *Converter {
	return &Converter{
		jpegQuality: DefaultJPEGQuality,
		jxlEffort:   7,
		logger:      logger.WithOperation("convert"),
	}
}

// NeedsConversion reports whether any file is not already in the format.
func NeedsConversion(files []string, format domain.ExportFormat) bool {
	for _, f := range files {
		if !format.Accepts(naming.Extension(f)) {
			return true
		}
	}
	return false
}

// Convert re-encodes every file that does not already match format into
// outputDir, deleting each original after its replacement is written.
// Conforming files are passed through untouched. The returned list keeps the
// input order.
func (c *Converter) Convert(ctx context.Context, files []string, format domain.ExportFormat, outputDir string, progress domain.ProgressFunc) ([]string, error) {
	total := float64(len(files))
	out := make([]string, 0, len(files))

	for i, file := range files {
		if format.Accepts(naming.Extension(file)) {
			out = append(out, file)
			report(progress, float64(i+1)/total)
			continue
		}

		base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		target := filepath.Join(outputDir, base+"."+format.FileExtension())

		if err := c.convertFile(file, target, format); err != nil {
			return nil, err
		}
		if err := os.Remove(file); err != nil {
			c.logger.Warn().Err(err).Str("file", filepath.Base(file)).Msg("Failed to remove original after conversion")
		}

		out = append(out, target)
		report(progress, float64(i+1)/total)
	}

	c.logger.Info().Int("files", len(out)).Str("format", format.DisplayName()).Msg("Conversion complete")
	return out, nil
}

func (c *Converter) convertFile(input, output string, format domain.ExportFormat) error {
	data, err := os.ReadFile(input)
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("Cannot read image: %s", filepath.Base(input)), err)
	}

	img, kind, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("Cannot read image: %s", filepath.Base(input)), err)
	}

	encoded, err := c.encoder(format)(img)
	if err != nil {
		return domain.ConversionFailed(fmt.Sprintf("Cannot encode %s", filepath.Base(input)), err)
	}
	if len(encoded) == 0 {
		return domain.ConversionFailed(fmt.Sprintf("Conversion produced no data for: %s", filepath.Base(input)), nil)
	}

	if err := os.WriteFile(output, encoded, 0644); err != nil {
		return domain.IOError(fmt.Sprintf("Cannot write %s", filepath.Base(output)), err)
	}

	c.logger.Debug().Str("input", filepath.Base(input)).Str("decoded_as", kind).Str("output", filepath.Base(output)).Msg("Converted image")
	return nil
}

func (c *Converter) encoder(format domain.ExportFormat) Encoder {
	switch format {
	case domain.FormatTIFF:
		return func(img image.Image) ([]byte, error) {
			var buf bytes.Buffer
			err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.LZW})
			return buf.Bytes(), err
		}
	case domain.FormatJPEGXL:
		return func(img image.Image) ([]byte, error) {
			var buf bytes.Buffer
			err := jpegxl.Encode(&buf, img, jpegxl.Options{Quality: jxlLossless, Effort: c.jxlEffort})
			return buf.Bytes(), err
		}
	default:
		return func(img image.Image) ([]byte, error) {
			var buf bytes.Buffer
			err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: c.jpegQuality})
			return buf.Bytes(), err
		}
	}
}

func report(progress domain.ProgressFunc, p float64) {
	if progress != nil {
		progress(p)
	}
}
