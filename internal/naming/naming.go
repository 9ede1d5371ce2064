// Package naming derives canonical output file and directory names.
package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/spherical/image-extractor/internal/domain"
)

var (
	// rawPattern matches the extraction tool's page-aware output,
	// e.g. image-003-002.png (page 3, image index 2).
	rawPattern = regexp.MustCompile(`^image-(\d+)-(\d+)\.([A-Za-z0-9]+)$`)

	// pagePattern matches canonical page-bearing names.
	pagePattern = regexp.MustCompile(`_P(\d+)_I\d+\.[A-Za-z0-9]+$`)
)

// PageImageName is the canonical name for an image taken from a paginated
// source. Page and image numbers are 1-based and zero-padded to 3 digits.
func PageImageName(doc string, page, image int, ext string) string {
	return fmt.Sprintf("%s_P%03d_I%03d.%s", doc, page, image, ext)
}

// SequenceImageName is the canonical name for an image from a non-paginated
// source, numbered 1-based.
func SequenceImageName(doc string, index int, ext string) string {
	return fmt.Sprintf("%s_I%03d.%s", doc, index, ext)
}

// CanonicalFromRaw maps a raw tool name to its canonical form. The tool's
// image index is 0-based, hence the +1. ok is false when name does not
// follow the raw convention.
func CanonicalFromRaw(doc, name string) (string, bool) {
	m := rawPattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	page, err := strconv.Atoi(m[1])
	if err != nil {
		return "", false
	}
	index, err := strconv.Atoi(m[2])
	if err != nil {
		return "", false
	}
	return PageImageName(doc, page, index+1, m[3]), true
}

// RenameRawFiles renames each file in files (absolute paths, already sorted)
// to its canonical name within the same directory. Files that do not follow
// the raw convention are returned unchanged.
func RenameRawFiles(doc string, files []string) ([]string, error) {
	renamed := make([]string, 0, len(files))
	for _, path := range files {
		canonical, ok := CanonicalFromRaw(doc, filepath.Base(path))
		if !ok {
			renamed = append(renamed, path)
			continue
		}
		target := filepath.Join(filepath.Dir(path), canonical)
		if err := os.Rename(path, target); err != nil {
			return nil, domain.IOError(fmt.Sprintf("rename %s", filepath.Base(path)), err)
		}
		renamed = append(renamed, target)
	}
	return renamed, nil
}

// ParsePageNumber extracts the page number from a canonical name.
func ParsePageNumber(name string) (int, bool) {
	m := pagePattern.FindStringSubmatch(filepath.Base(name))
	if m == nil {
		return 0, false
	}
	page, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return page, true
}

// Extension returns the lower-case extension without the dot.
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// OutputDir resolves the per-document output directory: <stem>_images next
// to the source, or under baseDir for the custom destination.
func OutputDir(sourcePath string, destination domain.OutputDestination, baseDir string) string {
	name := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	parent := filepath.Dir(sourcePath)
	if destination == domain.DestinationCustomDirectory && baseDir != "" {
		parent = baseDir
	}
	return filepath.Join(parent, stem+"_images")
}

// SearchablePDFName is the file name of the OCR overlay document.
func SearchablePDFName(stem string) string {
	return stem + "_searchable.pdf"
}
