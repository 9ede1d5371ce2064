package domain

import (
	"context"
	"image"
)

// ProgressFunc receives the fraction of work completed within a stage
type ProgressFunc func(progress float64)

// Rasterizer opens PDF documents for page rendering
type Rasterizer interface {
	Open(ctx context.Context, pdfPath string) (RasterDocument, error)
}

// RasterDocument renders the pages of one opened PDF
type RasterDocument interface {
	// NumPages returns the page count
	NumPages() int

	// Render rasterizes a 0-based page at the given resolution
	Render(ctx context.Context, page int, dpi float64) (image.Image, error)

	// Close releases the underlying document
	Close() error
}

// Recognizer runs text recognition on a page bitmap
type Recognizer interface {
	// Recognize returns line observations with normalized bottom-left boxes
	Recognize(ctx context.Context, img image.Image) ([]Observation, error)
}
