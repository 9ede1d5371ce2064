package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentType identifies the container format of a source document
type DocumentType string

const (
	DocumentTypePDF  DocumentType = "pdf"
	DocumentTypeDOCX DocumentType = "docx"
)

// DetectDocumentType maps a file extension to a document type.
func DetectDocumentType(path string) (DocumentType, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return DocumentTypePDF, true
	case ".docx":
		return DocumentTypeDOCX, true
	default:
		return "", false
	}
}

// Document represents one source file in the processing queue
type Document struct {
	ID         uuid.UUID
	SourcePath string
	Type       DocumentType
	State      ProcessingState
	OutputDir  string
	ImageCount int
}

// NewDocument creates a pending document for the given source path
func NewDocument(sourcePath string, docType DocumentType) *Document {
	return &Document{
		ID:         uuid.New(),
		SourcePath: sourcePath,
		Type:       docType,
		State:      Pending(),
	}
}

// FileName is the display name of the document (base name with extension).
func (d *Document) FileName() string {
	return filepath.Base(d.SourcePath)
}

// Stem is the base name without extension, used for output naming.
func (d *Document) Stem() string {
	name := filepath.Base(d.SourcePath)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ExportFormat is the target encoding for extracted images
type ExportFormat string

const (
	FormatJPEG   ExportFormat = "jpeg"
	FormatTIFF   ExportFormat = "tiff"
	FormatJPEGXL ExportFormat = "jpegxl"
)

// ParseExportFormat accepts the persisted identifier and a few common aliases.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "tiff", "tif":
		return FormatTIFF, nil
	case "jpegxl", "jpeg-xl", "jxl":
		return FormatJPEGXL, nil
	default:
		return "", ValidationError(fmt.Sprintf("unknown export format %q", s), nil)
	}
}

// DisplayName returns the user facing name of the format
func (f ExportFormat) DisplayName() string {
	switch f {
	case FormatTIFF:
		return "TIFF"
	case FormatJPEGXL:
		return "JPEG XL"
	default:
		return "JPEG"
	}
}

// FileExtension is the extension written for converted files.
func (f ExportFormat) FileExtension() string {
	switch f {
	case FormatTIFF:
		return "tiff"
	case FormatJPEGXL:
		return "jxl"
	default:
		return "jpg"
	}
}

// Accepts reports whether a file extension (with or without dot) already
// conforms to the format.
func (f ExportFormat) Accepts(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	switch f {
	case FormatTIFF:
		return ext == "tiff" || ext == "tif"
	case FormatJPEGXL:
		return ext == "jxl"
	default:
		return ext == "jpg" || ext == "jpeg"
	}
}

// ExtractionFlags are the image-extraction tool flags selecting the output
// encoding. JPEG XL has no native flag: images are extracted as PNG and
// converted afterwards.
func (f ExportFormat) ExtractionFlags() []string {
	switch f {
	case FormatTIFF:
		return []string{"-tiff"}
	case FormatJPEGXL:
		return []string{"-png"}
	default:
		return []string{"-j", "-png"}
	}
}

// HasNativeExtraction is false when the extraction tool cannot emit the format.
func (f ExportFormat) HasNativeExtraction() bool {
	return f != FormatJPEGXL
}

// OutputDestination selects where per-document output directories are created
type OutputDestination string

const (
	DestinationNextToOriginals OutputDestination = "next_to_originals"
	DestinationCustomDirectory OutputDestination = "custom_directory"
)

// Placement orders custom text relative to the auto-generated value
type Placement string

const (
	PlacementPrepend Placement = "prepend"
	PlacementAppend  Placement = "append"
)

// FieldName identifies one of the metadata fields
type FieldName string

const (
	FieldHeading             FieldName = "heading"
	FieldDescription         FieldName = "description"
	FieldExtendedDescription FieldName = "extended_description"
	FieldKeywords            FieldName = "keywords"
	FieldCopyright           FieldName = "copyright"
)

// FieldNames lists every metadata field in emission order.
var FieldNames = []FieldName{
	FieldHeading,
	FieldDescription,
	FieldCopyright,
	FieldKeywords,
	FieldExtendedDescription,
}

// FieldConfig configures how one metadata field is resolved
type FieldConfig struct {
	Enabled             bool      `yaml:"enabled" json:"enabled"`
	IncludeDocumentName bool      `yaml:"include_document_name" json:"include_document_name"`
	CustomText          string    `yaml:"custom_text" json:"custom_text"`
	Placement           Placement `yaml:"placement" json:"placement"`
}

// MetadataConfiguration is the global enable flag plus one FieldConfig per field
type MetadataConfiguration struct {
	Enabled bool                      `yaml:"enabled" json:"enabled"`
	Fields  map[FieldName]FieldConfig `yaml:"fields" json:"fields"`
}

// DefaultMetadataConfiguration mirrors the shipped defaults: only the extended
// description and keywords carry the document name.
func DefaultMetadataConfiguration() MetadataConfiguration {
	return MetadataConfiguration{
		Enabled: false,
		Fields: map[FieldName]FieldConfig{
			FieldHeading:             {Placement: PlacementPrepend},
			FieldDescription:         {Placement: PlacementPrepend},
			FieldExtendedDescription: {Enabled: true, IncludeDocumentName: true, Placement: PlacementPrepend},
			FieldKeywords:            {Enabled: true, IncludeDocumentName: true, Placement: PlacementPrepend},
			FieldCopyright:           {Placement: PlacementPrepend},
		},
	}
}

// Field returns the configuration for name; missing entries are disabled.
func (m MetadataConfiguration) Field(name FieldName) FieldConfig {
	if fc, ok := m.Fields[name]; ok {
		return fc
	}
	return FieldConfig{Placement: PlacementPrepend}
}

// BoundingBox is a normalized rectangle (0-1) with origin at the bottom-left
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Observation is one recognized line of text on a page
type Observation struct {
	Box        BoundingBox `json:"box"`
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
}

// OCRResult holds the observations of a single page
type OCRResult struct {
	PageIndex    int           `json:"page_index"`
	Observations []Observation `json:"observations"`
}

// StateEvent is published by the orchestrator on every state change
type StateEvent struct {
	DocumentID uuid.UUID       `json:"document_id"`
	FileName   string          `json:"file_name"`
	OutputDir  string          `json:"output_dir,omitempty"`
	State      ProcessingState `json:"state"`
	Timestamp  time.Time       `json:"timestamp"`
}
