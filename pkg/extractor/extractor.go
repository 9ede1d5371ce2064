package extractor

import (
	"context"
	"os"

	"github.com/google/uuid"

	"github.com/spherical/image-extractor/internal/config"
	"github.com/spherical/image-extractor/internal/convert"
	"github.com/spherical/image-extractor/internal/domain"
	"github.com/spherical/image-extractor/internal/extract"
	"github.com/spherical/image-extractor/internal/metadata"
	"github.com/spherical/image-extractor/internal/naming"
	"github.com/spherical/image-extractor/internal/observability"
	"github.com/spherical/image-extractor/internal/ocr"
	"github.com/spherical/image-extractor/internal/ocr/tesseract"
	"github.com/spherical/image-extractor/internal/pdf"
	"github.com/spherical/image-extractor/internal/pipeline"
	"github.com/spherical/image-extractor/internal/process"
	"github.com/spherical/image-extractor/internal/storage"
)

// Re-export domain types for the public API
type (
	Document        = domain.Document
	DocumentType    = domain.DocumentType
	StateEvent      = domain.StateEvent
	ProcessingState = domain.ProcessingState
	Phase           = domain.Phase
	ExportFormat    = domain.ExportFormat
	Config          = config.Config
	Run             = storage.Run
)

// Export format constants
const (
	FormatJPEG   = domain.FormatJPEG
	FormatTIFF   = domain.FormatTIFF
	FormatJPEGXL = domain.FormatJPEGXL
)

// Document type constants
const (
	DocumentTypePDF  = domain.DocumentTypePDF
	DocumentTypeDOCX = domain.DocumentTypeDOCX
)

// Processing phase constants
const (
	PhasePending         = domain.PhasePending
	PhaseExtracting      = domain.PhaseExtracting
	PhaseConverting      = domain.PhaseConverting
	PhaseWritingMetadata = domain.PhaseWritingMetadata
	PhaseRunningOCR      = domain.PhaseRunningOCR
	PhaseCompleted       = domain.PhaseCompleted
	PhaseFailed          = domain.PhaseFailed
)

// Client is the main entry point for the image extractor library
type Client struct {
	cfg          *config.Config
	orchestrator *pipeline.Orchestrator
	validator    *pdf.Validator
	renderer     *pdf.Renderer
	recognizer   *tesseract.Recognizer
	history      *storage.History
	logger       *observability.Logger
}

// Inspection describes a document before processing.
type Inspection struct {
	Path      string
	Type      DocumentType
	Pages     int
	OutputDir string
}

// ClientOption customizes client construction.
type ClientOption func(*clientOptions)

type clientOptions struct {
	logger *observability.Logger
	runner process.Runner
	tools  *config.ResolvedTools
}

// WithLogger sets the logger used by every stage.
func WithLogger(l *observability.Logger) ClientOption {
	return func(o *clientOptions) { o.logger = l }
}

// WithRunner replaces the process runner used for external tools.
func WithRunner(r process.Runner) ClientOption {
	return func(o *clientOptions) { o.runner = r }
}

// WithTools skips tool discovery and uses the given paths.
func WithTools(t config.ResolvedTools) ClientOption {
	return func(o *clientOptions) { o.tools = &t }
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return config.DefaultConfig()
}

// LoadConfig reads a YAML configuration file and applies environment
// overrides. An empty path uses defaults.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// NewClient creates a client from the default configuration plus
// environment overrides.
func NewClient() (*Client, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(cfg)
}

// NewClientWithConfig creates a client with custom configuration
func NewClientWithConfig(cfg *config.Config, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, domain.ConfigError("config is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, domain.ConfigError("validate config", err)
	}

	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = observability.NewLogger(observability.LogConfig{
			Level:       cfg.Observability.LogLevel,
			Format:      cfg.Observability.LogFormat,
			ServiceName: "image-extractor",
		})
	}
	if o.runner == nil {
		o.runner = process.NewExecRunner()
	}
	tools := cfg.ResolveTools()
	if o.tools != nil {
		tools = *o.tools
	}

	c := &Client{
		cfg:       cfg,
		validator: pdf.NewValidator(),
		renderer:  pdf.NewRenderer(),
		logger:    o.logger,
	}

	stages := pipeline.Stages{
		PDF:      extract.NewPDFExtractor(o.runner, tools.PDFImages, o.logger),
		Archive:  extract.NewArchiveExtractor(o.runner, tools.Unzip, cfg.Tools.TempDir, o.logger),
		Convert:  convert.NewConverter(o.logger),
		Metadata: metadata.NewWriter(o.runner, tools.ExifTool, cfg.Metadata.MinorWarning, o.logger),
		Overlay:  pdf.NewOverlayBuilder(o.logger),
	}

	if cfg.OCR.Enabled {
		rec, err := tesseract.NewRecognizer(cfg.OCR.Languages, cfg.OCR.DPI)
		if err != nil {
			c.Close()
			return nil, domain.OCRFailed("initialize recognizer", err)
		}
		c.recognizer = rec
		stages.OCR = ocr.NewService(c.renderer, rec, cfg.OCR.DPI, o.logger)
	}

	var pipelineOpts []pipeline.Option
	if cfg.History.Enabled {
		h, err := storage.Open(context.Background(), cfg.History.Path)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.history = h
		pipelineOpts = append(pipelineOpts, pipeline.WithRecorder(h))
	}

	c.orchestrator = pipeline.NewOrchestrator(pipeline.NewQueue(), stages, pipeline.Options{
		Format:      cfg.Output.Format,
		Destination: cfg.Output.Destination,
		BaseDir:     cfg.Output.Directory,
		Metadata:    cfg.MetadataConfiguration(),
		OCR:         cfg.OCR.Enabled,
		Workers:     cfg.Pipeline.Workers,
	}, o.logger, pipelineOpts...)

	return c, nil
}

// Add queues documents. Unsupported paths are returned, not queued.
func (c *Client) Add(paths ...string) (added []Document, unsupported []string) {
	return c.orchestrator.Queue().Add(paths...)
}

// Remove drops a document that is not being processed.
func (c *Client) Remove(id uuid.UUID) bool {
	return c.orchestrator.Queue().Remove(id)
}

// ClearFinished drops completed and failed documents.
func (c *Client) ClearFinished() int {
	return c.orchestrator.Queue().ClearFinished()
}

// Documents returns the queue in order.
func (c *Client) Documents() []Document {
	return c.orchestrator.Queue().Snapshot()
}

// IsProcessing reports whether a run is active.
func (c *Client) IsProcessing() bool {
	return c.orchestrator.IsProcessing()
}

// Process runs every pending document.
// Returns a channel that streams state events and is closed when the run ends.
func (c *Client) Process(ctx context.Context) (<-chan StateEvent, error) {
	if c.orchestrator.IsProcessing() {
		return nil, domain.ValidationError("processing is already running", nil)
	}
	if !c.orchestrator.Queue().HasPending() {
		return nil, domain.ValidationError("no pending documents", nil)
	}

	eventCh := make(chan StateEvent, 100)

	go func() {
		defer close(eventCh)
		if err := c.orchestrator.ProcessAll(ctx, eventCh); err != nil {
			c.logger.Warn().Err(err).Msg("Processing stopped early")
		}
	}()

	return eventCh, nil
}

// Inspect reports the type, page count and planned output directory of a
// document without processing it.
func (c *Client) Inspect(path string) (*Inspection, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, domain.ValidationError("file not found: "+path, err)
	}
	docType, ok := domain.DetectDocumentType(path)
	if !ok {
		return nil, domain.ValidationError("unsupported document type: "+path, nil)
	}

	in := &Inspection{
		Path:      path,
		Type:      docType,
		OutputDir: naming.OutputDir(path, c.cfg.Output.Destination, c.cfg.Output.Directory),
	}
	if docType == domain.DocumentTypePDF {
		pages, err := c.validator.PageCount(path)
		if err != nil {
			return nil, err
		}
		in.Pages = pages
	}
	return in, nil
}

// History returns the most recent recorded runs, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]Run, error) {
	if c.history == nil {
		return nil, domain.ConfigError("history is disabled", nil)
	}
	return c.history.ListRuns(ctx, limit)
}

// Close cleans up resources
func (c *Client) Close() error {
	var firstErr error
	if c.recognizer != nil {
		if err := c.recognizer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.history != nil {
		if err := c.history.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.renderer != nil {
		c.renderer.Close()
	}
	return firstErr
}
