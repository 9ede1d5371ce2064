// Package toolpath locates external executables from candidate lists.
package toolpath

import (
	"os"
	"os/exec"
	"path/filepath"
)

// Default candidate lists. Absolute paths are checked in order; bare names
// are looked up on $PATH.
var (
	PDFImagesCandidates = []string{
		"/opt/homebrew/bin/pdfimages",
		"/usr/local/bin/pdfimages",
		"/opt/local/bin/pdfimages",
		"/usr/bin/pdfimages",
		"pdfimages",
	}
	ExifToolCandidates = []string{
		"/opt/homebrew/bin/exiftool",
		"/usr/local/bin/exiftool",
		"/opt/local/bin/exiftool",
		"/usr/bin/exiftool",
		"exiftool",
	}
	UnzipCandidates = []string{
		"/usr/bin/unzip",
		"unzip",
	}
)

// Locate returns the first candidate that resolves to an executable file.
func Locate(candidates []string) (string, bool) {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if !filepath.IsAbs(candidate) && filepath.Base(candidate) == candidate {
			if path, err := exec.LookPath(candidate); err == nil {
				return path, true
			}
			continue
		}
		if isExecutable(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}
