package pdf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/spherical/image-extractor/internal/domain"
)

// Validator checks PDF inputs and outputs
type Validator struct {
	conf *model.Configuration
}

// NewValidator creates a validator using relaxed pdfcpu validation.
func NewValidator() *Validator {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Validator{conf: conf}
}

// config returns a copy of the configuration; pdfcpu records the running
// command on it.
func (v *Validator) config() *model.Configuration {
	c := *v.conf
	return &c
}

// ValidatePDFPath validates that a file path is valid and points to a PDF
func (v *Validator) ValidatePDFPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return domain.ValidationError("file path cannot be empty", nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ValidationError(fmt.Sprintf("file does not exist: %s", path), err)
		}
		return domain.ValidationError(fmt.Sprintf("cannot access file: %s", path), err)
	}

	if info.IsDir() {
		return domain.ValidationError(fmt.Sprintf("path is a directory, not a file: %s", path), nil)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".pdf" {
		return domain.ValidationError(fmt.Sprintf("file is not a PDF (has extension %s)", ext), nil)
	}

	return nil
}

// ValidateDocument parses the whole file and checks it against the PDF
// object model.
func (v *Validator) ValidateDocument(path string) error {
	if err := v.ValidatePDFPath(path); err != nil {
		return err
	}
	if err := api.ValidateFile(path, v.config()); err != nil {
		return domain.ValidationError(fmt.Sprintf("invalid PDF: %s", filepath.Base(path)), err)
	}
	return nil
}

// PageCount returns the number of pages in the document.
func (v *Validator) PageCount(path string) (int, error) {
	if err := v.ValidatePDFPath(path); err != nil {
		return 0, err
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, domain.ValidationError(fmt.Sprintf("cannot read page count: %s", filepath.Base(path)), err)
	}
	return n, nil
}

// PageDims returns the displayed size of every page in points, with width and
// height swapped for pages rotated by 90 or 270 degrees.
func (v *Validator) PageDims(path string) ([]types.Dim, error) {
	if err := v.ValidatePDFPath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("open %s", path), err)
	}
	defer f.Close()

	dims, err := api.PageDims(f, v.config())
	if err != nil {
		return nil, domain.ValidationError(fmt.Sprintf("cannot read page geometry: %s", filepath.Base(path)), err)
	}
	return dims, nil
}
