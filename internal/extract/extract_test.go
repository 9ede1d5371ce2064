package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/image-extractor/internal/domain"
	"github.com/spherical/image-extractor/internal/observability"
	"github.com/spherical/image-extractor/internal/process/processtest"
)

const (
	pdfimages = "/tools/pdfimages"
	unzip     = "/tools/unzip"
)

func TestPDFExtractor_RenamesAndSorts(t *testing.T) {
	out := filepath.Join(t.TempDir(), "Report_images")
	runner := processtest.NewFakeRunner().Handle(pdfimages, processtest.PDFImages(map[string][]byte{
		"002-001.png": []byte("b"),
		"001-000.jpg": []byte("a"),
		"003-002.png": []byte("c"),
		"010-003.ppm": []byte("d"),
	}))

	ex := NewPDFExtractor(runner, pdfimages, observability.NopLogger())
	files, err := ex.Extract(context.Background(), "/in/Report.pdf", out, domain.FormatJPEG, "Report")
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f))
	}
	assert.Equal(t, []string{
		"Report_P001_I001.jpg",
		"Report_P002_I002.png",
		"Report_P003_I003.png",
		"Report_P010_I004.ppm",
	}, names)

	calls := runner.CallsTo(pdfimages)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"-p", "-j", "-png", "/in/Report.pdf", filepath.Join(out, "image")}, calls[0].Args)
}

func TestPDFExtractor_FormatFlags(t *testing.T) {
	tests := []struct {
		format domain.ExportFormat
		flags  []string
	}{
		{domain.FormatTIFF, []string{"-tiff"}},
		{domain.FormatJPEGXL, []string{"-png"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			runner := processtest.NewFakeRunner().Handle(pdfimages, processtest.PDFImages(nil))
			ex := NewPDFExtractor(runner, pdfimages, observability.NopLogger())
			_, err := ex.Extract(context.Background(), "/in/a.pdf", t.TempDir(), tt.format, "a")
			require.NoError(t, err)

			args := runner.CallsTo(pdfimages)[0].Args
			assert.Equal(t, "-p", args[0])
			assert.Equal(t, tt.flags, args[1:1+len(tt.flags)])
		})
	}
}

func TestPDFExtractor_IgnoresNonImages(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(out, "sub.png"), 0755))

	runner := processtest.NewFakeRunner().Handle(pdfimages, processtest.PDFImages(map[string][]byte{
		"001-000.png": []byte("a"),
	}))
	files, err := NewPDFExtractor(runner, pdfimages, observability.NopLogger()).
		Extract(context.Background(), "/in/a.pdf", out, domain.FormatJPEG, "a")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a_P001_I001.png", filepath.Base(files[0]))
}

func TestPDFExtractor_ToolFailure(t *testing.T) {
	runner := processtest.NewFakeRunner().Handle(pdfimages, processtest.Exit(1, "", "Syntax Error: Couldn't read xref table\n"))

	_, err := NewPDFExtractor(runner, pdfimages, observability.NopLogger()).
		Extract(context.Background(), "/in/a.pdf", t.TempDir(), domain.FormatJPEG, "a")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeToolExecution))
	assert.Contains(t, err.Error(), "Couldn't read xref table")
}

func TestPDFExtractor_ToolNotFound(t *testing.T) {
	runner := processtest.NewFakeRunner()

	_, err := NewPDFExtractor(runner, "", observability.NopLogger()).
		Extract(context.Background(), "/in/a.pdf", t.TempDir(), domain.FormatJPEG, "a")
	assert.True(t, domain.IsType(err, domain.ErrorTypeToolNotFound))
	assert.Empty(t, runner.Calls())
}

func TestArchiveExtractor_FiltersSortsAndNumbers(t *testing.T) {
	out := filepath.Join(t.TempDir(), "notes_images")
	tmpRoot := t.TempDir()
	runner := processtest.NewFakeRunner().Handle(unzip, processtest.Unzip(map[string][]byte{
		"word/document.xml":      []byte("<w/>"),
		"word/media/image10.png": []byte("10"),
		"word/media/image2.jpeg": []byte("2"),
		"word/media/image1.emf":  []byte("1"),
		"word/media/sound.wav":   []byte("wav"),
		"word/media/chart.svg":   []byte("svg"),
	}))

	ex := NewArchiveExtractor(runner, unzip, tmpRoot, observability.NopLogger())
	files, err := ex.Extract(context.Background(), "/in/notes.docx", out, "notes")
	require.NoError(t, err)

	want := map[string]string{
		"notes_I001.svg":  "svg",
		"notes_I002.emf":  "1",
		"notes_I003.png":  "10",
		"notes_I004.jpeg": "2",
	}
	require.Len(t, files, len(want))
	for i, name := range []string{"notes_I001.svg", "notes_I002.emf", "notes_I003.png", "notes_I004.jpeg"} {
		assert.Equal(t, filepath.Join(out, name), files[i])
		data, err := os.ReadFile(files[i])
		require.NoError(t, err)
		assert.Equal(t, want[name], string(data))
	}

	args := runner.CallsTo(unzip)[0].Args
	assert.Equal(t, []string{"-o", "/in/notes.docx", "-d"}, args[:3])

	leftovers, err := os.ReadDir(tmpRoot)
	require.NoError(t, err)
	assert.Empty(t, leftovers, "temp directory must be removed")
}

func TestArchiveExtractor_InvalidContainer(t *testing.T) {
	tmpRoot := t.TempDir()
	runner := processtest.NewFakeRunner().Handle(unzip, processtest.Exit(9, "", "End-of-central-directory signature not found."))

	_, err := NewArchiveExtractor(runner, unzip, tmpRoot, observability.NopLogger()).
		Extract(context.Background(), "/in/broken.docx", t.TempDir(), "broken")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeInvalidContainer))
	assert.Contains(t, err.Error(), "End-of-central-directory")

	leftovers, _ := os.ReadDir(tmpRoot)
	assert.Empty(t, leftovers, "temp directory must be removed on failure")
}

func TestArchiveExtractor_NoMediaFolder(t *testing.T) {
	runner := processtest.NewFakeRunner().Handle(unzip, processtest.Unzip(map[string][]byte{
		"word/document.xml": []byte("<w/>"),
	}))

	_, err := NewArchiveExtractor(runner, unzip, t.TempDir(), observability.NopLogger()).
		Extract(context.Background(), "/in/plain.docx", t.TempDir(), "plain")
	assert.True(t, domain.IsType(err, domain.ErrorTypeNoImagesFound))
}

func TestArchiveExtractor_ToolNotFound(t *testing.T) {
	_, err := NewArchiveExtractor(processtest.NewFakeRunner(), "", "", observability.NopLogger()).
		Extract(context.Background(), "/in/plain.docx", t.TempDir(), "plain")
	assert.True(t, domain.IsType(err, domain.ErrorTypeToolNotFound))
}
