package pipeline

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/spherical/image-extractor/internal/convert"
	"github.com/spherical/image-extractor/internal/domain"
	"github.com/spherical/image-extractor/internal/naming"
	"github.com/spherical/image-extractor/internal/observability"
)

// PDFExtractor pulls embedded images out of a PDF.
type PDFExtractor interface {
	Extract(ctx context.Context, pdfPath, outputDir string, format domain.ExportFormat, docStem string) ([]string, error)
}

// ArchiveExtractor pulls embedded media out of a zip based container.
type ArchiveExtractor interface {
	Extract(ctx context.Context, containerPath, outputDir, docStem string) ([]string, error)
}

// Converter re-encodes images into the export format.
type Converter interface {
	Convert(ctx context.Context, files []string, format domain.ExportFormat, outputDir string, progress domain.ProgressFunc) ([]string, error)
}

// MetadataWriter tags images with descriptive metadata.
type MetadataWriter interface {
	Write(ctx context.Context, files []string, cfg domain.MetadataConfiguration, docName string, progress domain.ProgressFunc) error
}

// TextRecognizer runs OCR over every page of a PDF.
type TextRecognizer interface {
	Recognize(ctx context.Context, pdfPath string, progress domain.ProgressFunc) ([]domain.OCRResult, error)
}

// OverlayBuilder writes the searchable copy of a PDF.
type OverlayBuilder interface {
	Build(ctx context.Context, sourcePath string, results []domain.OCRResult, outputPath string) error
}

// Recorder persists finished documents.
type Recorder interface {
	RecordRun(ctx context.Context, doc domain.Document) error
}

// Stages bundles the stage implementations.
type Stages struct {
	PDF      PDFExtractor
	Archive  ArchiveExtractor
	Convert  Converter
	Metadata MetadataWriter
	OCR      TextRecognizer
	Overlay  OverlayBuilder
}

// Options controls one processing run.
type Options struct {
	Format      domain.ExportFormat
	Destination domain.OutputDestination
	BaseDir     string
	Metadata    domain.MetadataConfiguration
	OCR         bool
	// Workers > 1 processes that many documents at once
	Workers int
}

// Orchestrator drives queued documents through the stages and publishes every
// state change.
type Orchestrator struct {
	queue    *Queue
	stages   Stages
	opts     Options
	recorder Recorder
	logger   *observability.Logger
	running  atomic.Bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder stores every finished document.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// NewOrchestrator creates an orchestrator over queue.
func NewOrchestrator(queue *Queue, stages Stages, opts Options, logger *observability.Logger, options ...Option) *Orchestrator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	o := &Orchestrator{
		queue:  queue,
		stages: stages,
		opts:   opts,
		logger: logger.WithOperation("pipeline"),
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// Queue returns the document queue.
func (o *Orchestrator) Queue() *Queue {
	return o.queue
}

// IsProcessing reports whether ProcessAll is running.
func (o *Orchestrator) IsProcessing() bool {
	return o.running.Load()
}

// ProcessAll processes pending documents until none are left, publishing
// state events on events (which may be nil). Cancelling ctx stops documents
// that have not started; a started document always runs to a terminal state.
// Documents fail independently; the returned error is only ctx's.
func (o *Orchestrator) ProcessAll(ctx context.Context, events chan<- domain.StateEvent) error {
	if !o.running.CompareAndSwap(false, true) {
		return domain.ValidationError("processing is already running", nil)
	}
	defer o.running.Store(false)

	start := time.Now()
	var processed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < o.opts.Workers; i++ {
		g.Go(func() error {
			for gctx.Err() == nil {
				doc, ok := o.queue.claimNext()
				if !ok {
					return nil
				}
				o.process(context.WithoutCancel(gctx), doc, events)
				processed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	o.logger.Info().
		Int("documents", int(processed.Load())).
		Int("workers", o.opts.Workers).
		Dur("duration", time.Since(start)).
		Msg("Queue processed")
	return ctx.Err()
}

func (o *Orchestrator) process(ctx context.Context, doc domain.Document, events chan<- domain.StateEvent) {
	logger := o.logger.WithDocument(doc.ID.String(), doc.FileName())
	outputDir := naming.OutputDir(doc.SourcePath, o.opts.Destination, o.opts.BaseDir)
	o.queue.setOutputDir(doc.ID, outputDir)
	doc.OutputDir = outputDir

	t := &tracker{o: o, id: doc.ID, events: events}
	count, err := o.run(ctx, doc, t)

	final := domain.Completed(count)
	if err != nil {
		final = domain.Failed(err.Error())
		logger.Error().Err(err).Str("output_dir", outputDir).Msg("Document failed")
	} else {
		logger.Info().Int("images", count).Str("output_dir", outputDir).Msg("Document completed")
	}
	finished, ok := t.set(final)

	if ok && o.recorder != nil {
		if err := o.recorder.RecordRun(ctx, finished); err != nil {
			logger.Warn().Err(err).Msg("Failed to record run")
		}
	}
}

// run executes the stages for one document and returns the image count.
func (o *Orchestrator) run(ctx context.Context, doc domain.Document, t *tracker) (int, error) {
	t.set(domain.Extracting(0))
	files, err := o.extract(ctx, doc)
	if err != nil {
		return 0, err
	}
	t.set(domain.Extracting(1))
	if len(files) == 0 {
		return 0, domain.NoImagesFound()
	}

	if convert.NeedsConversion(files, o.opts.Format) {
		t.set(domain.Converting(0))
		files, err = o.stages.Convert.Convert(ctx, files, o.opts.Format, doc.OutputDir, t.progress(domain.Converting))
		if err != nil {
			return 0, err
		}
	}

	if o.opts.Metadata.Enabled {
		t.set(domain.WritingMetadata(0))
		if err := o.stages.Metadata.Write(ctx, files, o.opts.Metadata, doc.FileName(), t.progress(domain.WritingMetadata)); err != nil {
			return 0, err
		}
	}

	if o.opts.OCR && doc.Type == domain.DocumentTypePDF {
		t.set(domain.RunningOCR(0))
		results, err := o.stages.OCR.Recognize(ctx, doc.SourcePath, t.progress(domain.RunningOCR))
		if err != nil {
			return 0, err
		}
		if len(results) > 0 {
			out := filepath.Join(doc.OutputDir, naming.SearchablePDFName(doc.Stem()))
			if err := o.stages.Overlay.Build(ctx, doc.SourcePath, results, out); err != nil {
				return 0, err
			}
		}
	}

	return len(files), nil
}

func (o *Orchestrator) extract(ctx context.Context, doc domain.Document) ([]string, error) {
	switch doc.Type {
	case domain.DocumentTypeDOCX:
		return o.stages.Archive.Extract(ctx, doc.SourcePath, doc.OutputDir, doc.Stem())
	default:
		return o.stages.PDF.Extract(ctx, doc.SourcePath, doc.OutputDir, o.opts.Format, doc.Stem())
	}
}

// tracker applies state changes for one document and publishes them.
type tracker struct {
	o      *Orchestrator
	id     uuid.UUID
	events chan<- domain.StateEvent
}

func (t *tracker) set(state domain.ProcessingState) (domain.Document, bool) {
	doc, ok := t.o.queue.transition(t.id, state)
	if !ok {
		return doc, false
	}
	t.publish(doc)
	return doc, true
}

func (t *tracker) progress(state func(float64) domain.ProcessingState) domain.ProgressFunc {
	return func(p float64) { t.set(state(p)) }
}

// publish blocks for phase changes so consumers never miss one; progress
// updates within a phase are dropped when the channel is full.
func (t *tracker) publish(doc domain.Document) {
	if t.events == nil {
		return
	}
	evt := domain.StateEvent{
		DocumentID: doc.ID,
		FileName:   doc.FileName(),
		OutputDir:  doc.OutputDir,
		State:      doc.State,
		Timestamp:  time.Now(),
	}

	if doc.State.Progress > 0 && doc.State.Progress < 1 {
		select {
		case t.events <- evt:
		default:
			t.o.logger.Debug().Str("document", evt.FileName).Msg("Event channel full, dropping progress event")
		}
		return
	}
	t.events <- evt
}
