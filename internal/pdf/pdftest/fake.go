// Package pdftest provides an in-memory domain.Rasterizer for tests.
package pdftest

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/spherical/image-extractor/internal/domain"
)

// Page describes one fake page in points.
type Page struct {
	Width, Height float64
	// FailRender makes Render return an error for this page
	FailRender bool
}

// Rasterizer serves the same fake pages for every path.
type Rasterizer struct {
	Pages   []Page
	OpenErr error

	mu      sync.Mutex
	opened  []string
	renders []int
}

// NewRasterizer creates a fake with the given pages.
func NewRasterizer(pages ...Page) *Rasterizer {
	return &Rasterizer{Pages: pages}
}

// Letter returns n US Letter pages.
func Letter(n int) []Page {
	pages := make([]Page, n)
	for i := range pages {
		pages[i] = Page{Width: 612, Height: 792}
	}
	return pages
}

// Open implements domain.Rasterizer.
func (r *Rasterizer) Open(_ context.Context, path string) (domain.RasterDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, path)
	if r.OpenErr != nil {
		return nil, r.OpenErr
	}
	return &document{r: r}, nil
}

// Opened returns the paths passed to Open.
func (r *Rasterizer) Opened() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.opened...)
}

// Rendered returns the page indexes passed to Render.
func (r *Rasterizer) Rendered() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.renders...)
}

type document struct {
	r *Rasterizer
}

func (d *document) NumPages() int { return len(d.r.Pages) }

func (d *document) Render(_ context.Context, page int, dpi float64) (image.Image, error) {
	d.r.mu.Lock()
	d.r.renders = append(d.r.renders, page)
	d.r.mu.Unlock()

	if page < 0 || page >= len(d.r.Pages) {
		return nil, fmt.Errorf("page %d out of range", page)
	}
	p := d.r.Pages[page]
	if p.FailRender {
		return nil, fmt.Errorf("cannot render page %d", page+1)
	}

	// small bitmap keeps tests fast regardless of dpi
	w := int(p.Width * dpi / 72 / 10)
	h := int(p.Height * dpi / 72 / 10)
	img := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{R: uint8(page * 40), G: 200, B: 255, A: 255}), image.Point{}, draw.Src)
	return img, nil
}

func (d *document) Close() error { return nil }
