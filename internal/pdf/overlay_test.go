package pdf

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/image-extractor/internal/domain"
	"github.com/spherical/image-extractor/internal/observability"
)

func TestPlaceObservation(t *testing.T) {
	obs := domain.Observation{
		Box:  domain.BoundingBox{X: 0.1, Y: 0.25, Width: 0.5, Height: 0.02},
		Text: "Quarterly results",
	}

	p, ok := PlaceObservation(obs, 600, 800)
	require.True(t, ok)
	assert.InDelta(t, 60, p.X, 1e-9)
	assert.InDelta(t, 200, p.Baseline, 1e-9)
	assert.InDelta(t, 300, p.Width, 1e-9)
	assert.InDelta(t, 16*0.85, p.FontSize, 1e-9)
	assert.Equal(t, "Quarterly results", p.Text)
}

func TestPlaceObservation_SkipsFlatBoxes(t *testing.T) {
	for _, h := range []float64{0, -0.1} {
		_, ok := PlaceObservation(domain.Observation{Box: domain.BoundingBox{Width: 0.5, Height: h}, Text: "x"}, 600, 800)
		assert.False(t, ok)
	}
}

func TestHorizontalScale(t *testing.T) {
	p := TextPlacement{Width: 300}
	assert.InDelta(t, 1.5, p.HorizontalScale(200), 1e-9)
	assert.InDelta(t, 0.5, p.HorizontalScale(600), 1e-9)
	assert.Equal(t, 1.0, p.HorizontalScale(0))
	assert.Equal(t, 1.0, TextPlacement{}.HorizontalScale(100))
}

// buildOverlay writes a searchable copy of source with an uncompressed
// content stream and returns the output path and its bytes.
func buildOverlay(t *testing.T, source string, results []domain.OCRResult) (string, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "doc_searchable.pdf")

	b := NewOverlayBuilder(observability.NopLogger())
	b.compress = false
	require.NoError(t, b.Build(context.Background(), source, results, out))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	return out, string(data)
}

var scaledLine = regexp.MustCompile(`([-\d.]+) 0\.00000 0\.00000 1\.00000 ([-\d.]+) ([-\d.]+) cm\s+BT ([-\d.]+) ([-\d.]+) Td \(Annual report 2024\) Tj ET`)

func parseFloat(t *testing.T, s string) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(s, 64)
	require.NoError(t, err)
	return v
}

func TestOverlayBuilder_Build(t *testing.T) {
	source := writeSamplePDF(t,
		fpdf.SizeType{Wd: 595.28, Ht: 841.89},
		fpdf.SizeType{Wd: 841.89, Ht: 595.28},
		fpdf.SizeType{Wd: 300.5, Ht: 420.25},
	)
	results := []domain.OCRResult{
		{PageIndex: 0, Observations: []domain.Observation{
			{Box: domain.BoundingBox{X: 0.1, Y: 0.8, Width: 0.6, Height: 0.03}, Text: "Annual report 2024", Confidence: 0.97},
			{Box: domain.BoundingBox{X: 0.1, Y: 0.7, Width: 0.4, Height: 0}, Text: "skipped", Confidence: 0.4},
		}},
		{PageIndex: 0, Observations: []domain.Observation{
			{Box: domain.BoundingBox{X: 0, Y: 0, Width: 1, Height: 1}, Text: "ignored duplicate"},
		}},
		{PageIndex: 2, Observations: []domain.Observation{
			{Box: domain.BoundingBox{X: 0.2, Y: 0.5, Width: 0.3, Height: 0.02}, Text: "Blåbærsyltetøy"},
		}},
	}

	out, content := buildOverlay(t, source, results)
	assert.True(t, strings.HasPrefix(content, "%PDF"))

	v := NewValidator()
	want, err := v.PageDims(source)
	require.NoError(t, err)
	got, err := v.PageDims(out)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range want {
		assert.InDelta(t, want[i].Width, got[i].Width, 0.001, "page %d width", i+1)
		assert.InDelta(t, want[i].Height, got[i].Height, 0.001, "page %d height", i+1)
	}

	// every original page is drawn as an imported form
	assert.Equal(t, 3, strings.Count(content, " Do Q Q"))

	assert.Contains(t, content, "(Bl\xe5b\xe6rsyltet\xf8y) Tj")
	assert.NotContains(t, content, "skipped")
	assert.NotContains(t, content, "ignored duplicate")
}

func TestOverlayBuilder_InvisibleScaledText(t *testing.T) {
	source := writeSamplePDF(t, fpdf.SizeType{Wd: 595.28, Ht: 841.89})
	obs := domain.Observation{
		Box:  domain.BoundingBox{X: 0.1, Y: 0.8, Width: 0.6, Height: 0.03},
		Text: "Annual report 2024",
	}
	_, content := buildOverlay(t, source, []domain.OCRResult{{PageIndex: 0, Observations: []domain.Observation{obs}}})

	m := scaledLine.FindStringSubmatchIndex(content)
	require.NotNil(t, m, "scaled text line not found")

	invisible := strings.Index(content, "3 Tr")
	require.GreaterOrEqual(t, invisible, 0)
	assert.Less(t, invisible, m[0], "render mode is set before the text")
	assert.Contains(t, content[m[1]:], "0 Tr")

	p, ok := PlaceObservation(obs, 595.28, 841.89)
	require.True(t, ok)

	measure := fpdf.New("P", "pt", "A4", "")
	measure.SetFont(overlayFont, "", 12)
	measure.SetFontSize(p.FontSize)
	scale := p.HorizontalScale(measure.GetStringWidth(obs.Text))
	require.NotEqual(t, 1.0, scale)

	sub := func(i int) float64 { return parseFloat(t, content[m[2*i]:m[2*i+1]]) }
	assert.InDelta(t, scale, sub(1), 1e-4)
	// scaling about the box origin leaves that point fixed
	assert.InDelta(t, p.X*(1-scale), sub(2), 1e-3)
	assert.InDelta(t, 0, sub(3), 1e-3)
	assert.InDelta(t, p.X, sub(4), 0.01)
	assert.InDelta(t, p.Baseline, sub(5), 0.01)
}

func TestOverlayBuilder_PagesWithoutText(t *testing.T) {
	source := writeSamplePDF(t, fpdf.SizeType{Wd: 612, Ht: 792}, fpdf.SizeType{Wd: 612, Ht: 792})

	out, content := buildOverlay(t, source, nil)

	n, err := NewValidator().PageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NotContains(t, content, "3 Tr")
}

func TestOverlayBuilder_WriteFailed(t *testing.T) {
	source := writeSamplePDF(t, fpdf.SizeType{Wd: 612, Ht: 792})
	out := filepath.Join(t.TempDir(), "missing", "doc_searchable.pdf")

	err := NewOverlayBuilder(observability.NopLogger()).Build(context.Background(), source, nil, out)
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeOCR))
	assert.Contains(t, err.Error(), "OCR failed: write failed")
}

func TestOverlayBuilder_UnreadableSource(t *testing.T) {
	source := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(source, []byte("damaged xref"), 0644))

	err := NewOverlayBuilder(observability.NopLogger()).
		Build(context.Background(), source, nil, filepath.Join(t.TempDir(), "x.pdf"))
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeOCR))
}

func TestOverlayBuilder_Cancelled(t *testing.T) {
	source := writeSamplePDF(t, fpdf.SizeType{Wd: 612, Ht: 792})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewOverlayBuilder(observability.NopLogger()).
		Build(ctx, source, nil, filepath.Join(t.TempDir(), "x.pdf"))
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeOCR))
}
