// Package ocr recognizes the text on PDF pages.
package ocr

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"github.com/spherical/image-extractor/internal/domain"
	"github.com/spherical/image-extractor/internal/observability"
)

// DefaultDPI is the rasterization resolution used for recognition.
const DefaultDPI = 300.0

// Service implements the OCR stage
type Service struct {
	rasterizer domain.Rasterizer
	recognizer domain.Recognizer
	dpi        float64
	logger     *observability.Logger
}

// NewService creates an OCR stage. dpi <= 0 selects DefaultDPI.
func NewService(r domain.Rasterizer, rec domain.Recognizer, dpi float64, logger *observability.Logger) *Service {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Service{
		rasterizer: r,
		recognizer: rec,
		dpi:        dpi,
		logger:     logger.WithOperation("ocr"),
	}
}

// Recognize runs text recognition on every page of pdfPath. Pages that cannot
// be rendered are skipped; pages without text are left out of the result.
func (s *Service) Recognize(ctx context.Context, pdfPath string, progress domain.ProgressFunc) ([]domain.OCRResult, error) {
	doc, err := s.rasterizer.Open(ctx, pdfPath)
	if err != nil {
		return nil, domain.OCRFailed("cannot open document", err)
	}
	defer doc.Close()

	pages := doc.NumPages()
	var results []domain.OCRResult

	for page := 0; page < pages; page++ {
		obs, err := s.recognizePage(ctx, doc, page)
		if err != nil {
			return nil, err
		}
		if len(obs) > 0 {
			results = append(results, domain.OCRResult{PageIndex: page, Observations: obs})
		}
		if progress != nil {
			progress(float64(page+1) / float64(pages))
		}
	}

	s.logger.Info().
		Str("document", filepath.Base(pdfPath)).
		Int("pages", pages).
		Int("pages_with_text", len(results)).
		Msg("OCR complete")
	return results, nil
}

func (s *Service) recognizePage(ctx context.Context, doc domain.RasterDocument, page int) ([]domain.Observation, error) {
	img, err := doc.Render(ctx, page, s.dpi)
	if err != nil {
		s.logger.Warn().Err(err).Int("page", page+1).Msg("Skipping page that could not be rendered")
		return nil, nil
	}

	obs, err := s.recognizer.Recognize(ctx, img)
	if err != nil {
		return nil, domain.OCRFailed(fmt.Sprintf("page %d", page+1), err)
	}
	s.logger.Debug().Int("page", page+1).Int("lines", len(obs)).Msg("Page recognized")
	return obs, nil
}

// NormalizeBox converts a pixel rectangle (origin top-left) within bounds to
// a 0-1 box with origin bottom-left. The rectangle is clipped to bounds.
func NormalizeBox(r, bounds image.Rectangle) domain.BoundingBox {
	r = r.Intersect(bounds)
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())
	if r.Empty() || w == 0 || h == 0 {
		return domain.BoundingBox{}
	}
	return domain.BoundingBox{
		X:      float64(r.Min.X-bounds.Min.X) / w,
		Y:      float64(bounds.Max.Y-r.Max.Y) / h,
		Width:  float64(r.Dx()) / w,
		Height: float64(r.Dy()) / h,
	}
}
