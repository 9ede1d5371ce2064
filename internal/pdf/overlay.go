package pdf

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/gofpdi"

	"github.com/spherical/image-extractor/internal/domain"
	"github.com/spherical/image-extractor/internal/observability"
)

const (
	overlayFont       = "Helvetica"
	fontHeightRatio   = 0.85
	invisibleTextMode = 3
	pageBox           = "/MediaBox"
)

// TextPlacement is one invisible text line in page coordinates (points,
// origin bottom-left).
type TextPlacement struct {
	Text     string
	X        float64
	Baseline float64
	Width    float64
	FontSize float64
}

// PlaceObservation maps a normalized observation onto a page of the given
// size. ok is false when the box has no height.
func PlaceObservation(obs domain.Observation, pageWidth, pageHeight float64) (TextPlacement, bool) {
	height := obs.Box.Height * pageHeight
	fontSize := height * fontHeightRatio
	if height <= 0 || fontSize <= 0 {
		return TextPlacement{}, false
	}
	return TextPlacement{
		Text:     obs.Text,
		X:        obs.Box.X * pageWidth,
		Baseline: obs.Box.Y * pageHeight,
		Width:    obs.Box.Width * pageWidth,
		FontSize: fontSize,
	}, true
}

// HorizontalScale is the factor that stretches a line of naturalWidth to
// span the placement's width. It is 1 when the natural width is unknown.
func (p TextPlacement) HorizontalScale(naturalWidth float64) float64 {
	if naturalWidth <= 0 || p.Width <= 0 {
		return 1
	}
	return p.Width / naturalWidth
}

// OverlayBuilder writes searchable copies of PDF documents: each page is the
// original page, imported as a form template, with the recognized text drawn
// invisibly on top.
type OverlayBuilder struct {
	validator *Validator
	logger    *observability.Logger
	compress  bool
}

// NewOverlayBuilder creates an overlay builder.
func NewOverlayBuilder(logger *observability.Logger) *OverlayBuilder {
	return &OverlayBuilder{
		validator: NewValidator(),
		logger:    logger.WithOperation("overlay"),
		compress:  true,
	}
}

// Build writes outputPath with one page per page of sourcePath, each with the
// source page's geometry. Only the first result for a page index is used.
func (b *OverlayBuilder) Build(ctx context.Context, sourcePath string, results []domain.OCRResult, outputPath string) error {
	dims, err := b.validator.PageDims(sourcePath)
	if err != nil {
		return domain.OCRFailed("cannot read page geometry", err)
	}

	byPage := make(map[int]domain.OCRResult, len(results))
	for _, r := range results {
		if _, seen := byPage[r.PageIndex]; !seen {
			byPage[r.PageIndex] = r
		}
	}

	out := fpdf.New("P", "pt", "A4", "")
	out.SetCompression(b.compress)
	out.SetMargins(0, 0, 0)
	out.SetAutoPageBreak(false, 0)
	out.SetCreator("image-extractor", true)
	tr := out.UnicodeTranslatorFromDescriptor("")
	importer := gofpdi.NewImporter()

	lines := 0
	for page, dim := range dims {
		if err := ctx.Err(); err != nil {
			return domain.OCRFailed("cancelled", err)
		}

		w, h := dim.Width, dim.Height
		out.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		if err := importPage(out, importer, sourcePath, page+1, w, h); err != nil {
			return domain.OCRFailed(fmt.Sprintf("page %d", page+1), err)
		}

		result, ok := byPage[page]
		if !ok {
			continue
		}
		out.SetFont(overlayFont, "", 12)
		out.SetTextRenderingMode(invisibleTextMode)
		for _, obs := range result.Observations {
			p, ok := PlaceObservation(obs, w, h)
			if !ok {
				continue
			}
			drawLine(out, p, tr(p.Text), h)
			lines++
		}
		out.SetTextRenderingMode(0)
	}

	if err := out.OutputFileAndClose(outputPath); err != nil {
		return domain.OCRFailed("write failed", err)
	}
	if err := b.validator.ValidateDocument(outputPath); err != nil {
		b.logger.Warn().Err(err).Str("output", filepath.Base(outputPath)).Msg("Searchable PDF failed validation")
	}

	b.logger.Info().Str("output", filepath.Base(outputPath)).Int("pages", len(dims)).Int("lines", lines).Msg("Searchable PDF written")
	return nil
}

// importPage draws source page pageno full-bleed on the current page. gofpdi
// panics on objects it cannot parse.
func importPage(out *fpdf.Fpdf, importer *gofpdi.Importer, sourcePath string, pageno int, w, h float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("import page: %v", r)
		}
	}()

	tpl := importer.ImportPage(out, sourcePath, pageno, pageBox)
	importer.UseImportedTemplate(out, tpl, 0, 0, w, h)
	return out.Error()
}

// drawLine writes text with its baseline at the placement origin, stretched
// horizontally around that origin to the placement width. fpdf measures y
// from the top.
func drawLine(out *fpdf.Fpdf, p TextPlacement, text string, pageHeight float64) {
	out.SetFontSize(p.FontSize)
	scale := p.HorizontalScale(out.GetStringWidth(text))

	x := p.X
	y := pageHeight - p.Baseline

	out.TransformBegin()
	out.TransformScaleX(scale*100, x, y)
	out.Text(x, y, text)
	out.TransformEnd()
}
