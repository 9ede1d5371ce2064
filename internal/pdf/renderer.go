// Package pdf rasterizes, validates and writes PDF documents.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"runtime"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/spherical/image-extractor/internal/domain"
)

// PointsPerInch is the PDF user space resolution.
const PointsPerInch = 72.0

// ErrRendererClosed is returned once the render loop has stopped.
var ErrRendererClosed = errors.New("renderer closed")

// Renderer implements domain.Rasterizer with MuPDF. Every MuPDF call runs on
// a single goroutine locked to its OS thread.
type Renderer struct {
	validator *Validator
	jobs      chan func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewRenderer starts the render loop. Close stops it.
func NewRenderer() *Renderer {
	r := &Renderer{
		validator: NewValidator(),
		jobs:      make(chan func()),
		done:      make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *Renderer) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case job := <-r.jobs:
			job()
		case <-r.done:
			return
		}
	}
}

// do runs fn on the render goroutine and waits for it to return.
func (r *Renderer) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	job := func() {
		defer close(finished)
		fn()
	}

	select {
	case r.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrRendererClosed
	}
	<-finished
	return nil
}

// Close stops the render loop. Open documents must be closed first.
func (r *Renderer) Close() error {
	r.closeOnce.Do(func() { close(r.done) })
	return nil
}

// Open loads a PDF for rendering.
func (r *Renderer) Open(ctx context.Context, pdfPath string) (domain.RasterDocument, error) {
	if err := r.validator.ValidatePDFPath(pdfPath); err != nil {
		return nil, err
	}

	var (
		doc   *fitz.Document
		pages int
		err   error
	)
	if runErr := r.do(ctx, func() {
		doc, err = fitz.New(pdfPath)
		if err == nil {
			pages = doc.NumPage()
		}
	}); runErr != nil {
		return nil, runErr
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", pdfPath, err)
	}

	return &fitzDocument{renderer: r, doc: doc, pages: pages}, nil
}

type fitzDocument struct {
	renderer *Renderer
	doc      *fitz.Document
	pages    int
}

func (d *fitzDocument) NumPages() int {
	return d.pages
}

// Render rasterizes the page at dpi onto a white background.
func (d *fitzDocument) Render(ctx context.Context, page int, dpi float64) (image.Image, error) {
	var (
		img *image.RGBA
		err error
	)
	if runErr := d.renderer.do(ctx, func() {
		img, err = d.doc.ImageDPI(page, dpi)
	}); runErr != nil {
		return nil, runErr
	}
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page+1, err)
	}
	return onWhite(img), nil
}

func (d *fitzDocument) Close() error {
	var err error
	if runErr := d.renderer.do(context.Background(), func() {
		err = d.doc.Close()
	}); runErr != nil {
		return runErr
	}
	return err
}

func onWhite(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Over)
	return dst
}
