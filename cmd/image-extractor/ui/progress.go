package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/spherical/image-extractor/internal/domain"
)

// stepsPerDocument is the bar resolution of one document.
const stepsPerDocument = 100

// RunProgress renders one bar for a whole processing run, fed by state
// events. Finished documents are printed above the bar.
type RunProgress struct {
	mu       sync.Mutex
	bar      *progressbar.ProgressBar
	out      io.Writer
	progress map[uuid.UUID]float64
	finished []domain.StateEvent
}

// NewRunProgress creates a progress display for the given number of documents.
func NewRunProgress(documents int) *RunProgress {
	return newRunProgress(documents, os.Stderr, os.Stdout)
}

func newRunProgress(documents int, barWriter, out io.Writer) *RunProgress {
	bar := progressbar.NewOptions64(
		int64(documents*stepsPerDocument),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Starting…"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(barWriter),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(barWriter, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)

	return &RunProgress{
		bar:      bar,
		out:      out,
		progress: make(map[uuid.UUID]float64),
	}
}

// Update applies one state event.
func (p *RunProgress) Update(evt domain.StateEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	value := evt.State.OverallProgress()
	if evt.State.IsFinished() {
		value = 1
	}
	p.progress[evt.DocumentID] = value

	var total float64
	for _, v := range p.progress {
		total += v
	}

	p.bar.Describe(fmt.Sprintf("%s: %s", Truncate(evt.FileName, 32), evt.State.StatusText()))
	_ = p.bar.Set64(int64(total * stepsPerDocument))

	if evt.State.IsFinished() {
		p.finished = append(p.finished, evt)
		_ = p.bar.Clear()
		p.printResult(evt)
		_ = p.bar.RenderBlank()
	}
}

func (p *RunProgress) printResult(evt domain.StateEvent) {
	if evt.State.Phase == domain.PhaseCompleted {
		fmt.Fprintf(p.out, "%s %s: %s → %s\n", successColor.Sprint("✓"), evt.FileName, evt.State.StatusText(), evt.OutputDir)
		return
	}
	fmt.Fprintf(p.out, "%s %s: %s\n", errorColor.Sprint("✗"), evt.FileName, evt.State.Message)
}

// Finish completes the bar and returns the terminal event of every document
// in the order they finished.
func (p *RunProgress) Finish() []domain.StateEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	_ = p.bar.Finish()
	return append([]domain.StateEvent(nil), p.finished...)
}
