package metadata

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spherical/image-extractor/internal/domain"
	"github.com/spherical/image-extractor/internal/observability"
	"github.com/spherical/image-extractor/internal/process"
)

// MinorWarning describes the tagging tool's non-fatal warning output. A
// non-zero exit is accepted only when stderr carries StderrMarker and stdout
// carries StdoutMarker.
type MinorWarning struct {
	StderrMarker string `yaml:"stderr_marker"`
	StdoutMarker string `yaml:"stdout_marker"`
}

// DefaultMinorWarning matches exiftool's "[minor]" warnings.
func DefaultMinorWarning() MinorWarning {
	return MinorWarning{
		StderrMarker: "[minor]",
		StdoutMarker: "image files updated",
	}
}

// Matches reports whether a failed result is only a minor warning.
func (m MinorWarning) Matches(res *process.Result) bool {
	if m.StderrMarker == "" || m.StdoutMarker == "" {
		return false
	}
	return strings.Contains(res.Stderr, m.StderrMarker) && strings.Contains(res.Stdout, m.StdoutMarker)
}

// Writer implements the metadata stage
type Writer struct {
	runner process.Runner
	tool   string
	minor  MinorWarning
	logger *observability.Logger
}

// NewWriter creates a metadata writer for the given tagging executable.
func NewWriter(runner process.Runner, exiftoolPath string, minor MinorWarning, logger *observability.Logger) *Writer {
	return &Writer{
		runner: runner,
		tool:   exiftoolPath,
		minor:  minor,
		logger: logger.WithOperation("write_metadata"),
	}
}

// Write tags every file according to cfg. docName is the display name of the
// source document. Files that resolve to no tags are skipped without running
// the tool.
func (w *Writer) Write(ctx context.Context, files []string, cfg domain.MetadataConfiguration, docName string, progress domain.ProgressFunc) error {
	if w.tool == "" {
		return domain.ToolNotFound("exiftool")
	}

	total := float64(len(files))
	tagged := 0

	for i, file := range files {
		args := BuildArguments(cfg, NewFileContext(file, docName))
		if args != nil {
			if err := w.writeFile(ctx, file, args); err != nil {
				return err
			}
			tagged++
		}
		if progress != nil {
			progress(float64(i+1) / total)
		}
	}

	w.logger.Info().Int("files", len(files)).Int("tagged", tagged).Msg("Metadata written")
	return nil
}

func (w *Writer) writeFile(ctx context.Context, file string, args []string) error {
	name := filepath.Base(file)

	res, err := w.runner.Run(ctx, w.tool, args...)
	if err != nil {
		return domain.MetadataWriteFailed(name, err.Error())
	}
	if res.Success() {
		return nil
	}
	if w.minor.Matches(res) {
		w.logger.Warn().Str("file", name).Str("stderr", res.TrimmedStderr()).Msg("Ignoring minor tagging warning")
		return nil
	}

	detail := res.TrimmedStderr()
	if detail == "" {
		detail = fmt.Sprintf("exit code %d", res.ExitCode)
	}
	return domain.MetadataWriteFailed(name, detail)
}
