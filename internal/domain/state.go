package domain

import "fmt"

// Phase is the discriminant of ProcessingState
type Phase int

const (
	PhasePending Phase = iota
	PhaseExtracting
	PhaseConverting
	PhaseWritingMetadata
	PhaseRunningOCR
	PhaseCompleted
	PhaseFailed
)

var phaseNames = map[Phase]string{
	PhasePending:         "pending",
	PhaseExtracting:      "extracting",
	PhaseConverting:      "converting",
	PhaseWritingMetadata: "writing_metadata",
	PhaseRunningOCR:      "running_ocr",
	PhaseCompleted:       "completed",
	PhaseFailed:          "failed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ProcessingState is the per-document state. Progress is meaningful for the
// four working phases, ImageCount for completed and Message for failed.
type ProcessingState struct {
	Phase      Phase   `json:"phase"`
	Progress   float64 `json:"progress,omitempty"`
	ImageCount int     `json:"image_count,omitempty"`
	Message    string  `json:"message,omitempty"`
}

func Pending() ProcessingState { return ProcessingState{Phase: PhasePending} }

func Extracting(p float64) ProcessingState {
	return ProcessingState{Phase: PhaseExtracting, Progress: clamp(p)}
}

func Converting(p float64) ProcessingState {
	return ProcessingState{Phase: PhaseConverting, Progress: clamp(p)}
}

func WritingMetadata(p float64) ProcessingState {
	return ProcessingState{Phase: PhaseWritingMetadata, Progress: clamp(p)}
}

func RunningOCR(p float64) ProcessingState {
	return ProcessingState{Phase: PhaseRunningOCR, Progress: clamp(p)}
}

func Completed(imageCount int) ProcessingState {
	return ProcessingState{Phase: PhaseCompleted, ImageCount: imageCount}
}

func Failed(message string) ProcessingState {
	return ProcessingState{Phase: PhaseFailed, Message: message}
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// IsProcessing is true for the four working phases.
func (s ProcessingState) IsProcessing() bool {
	return s.Phase > PhasePending && s.Phase < PhaseCompleted
}

// IsFinished is true for completed and failed.
func (s ProcessingState) IsFinished() bool {
	return s.Phase == PhaseCompleted || s.Phase == PhaseFailed
}

// CanTransitionTo enforces the forward-only state machine: phases only move
// forward (skipping is allowed), any unfinished state may fail, and progress
// within one phase never decreases.
func (s ProcessingState) CanTransitionTo(next ProcessingState) bool {
	if s.IsFinished() {
		return false
	}
	if next.Phase == PhaseFailed {
		return true
	}
	if next.Phase == PhasePending {
		return false
	}
	if next.Phase == s.Phase {
		return next.Progress >= s.Progress
	}
	return next.Phase > s.Phase
}

// OverallProgress maps the state onto a single 0-1 scale.
func (s ProcessingState) OverallProgress() float64 {
	switch s.Phase {
	case PhaseExtracting:
		return s.Progress * 0.4
	case PhaseConverting:
		return 0.4 + s.Progress*0.2
	case PhaseWritingMetadata:
		return 0.6 + s.Progress*0.2
	case PhaseRunningOCR:
		return 0.8 + s.Progress*0.2
	case PhaseCompleted:
		return 1
	default:
		return 0
	}
}

// StatusText is a short human readable description of the state.
func (s ProcessingState) StatusText() string {
	switch s.Phase {
	case PhasePending:
		return "Pending"
	case PhaseExtracting:
		return "Extracting images…"
	case PhaseConverting:
		return "Converting…"
	case PhaseWritingMetadata:
		return "Writing metadata…"
	case PhaseRunningOCR:
		return "Running OCR…"
	case PhaseCompleted:
		if s.ImageCount == 1 {
			return "1 image extracted"
		}
		return fmt.Sprintf("%d images extracted", s.ImageCount)
	case PhaseFailed:
		return "Failed: " + s.Message
	default:
		return s.Phase.String()
	}
}

func (s ProcessingState) String() string {
	switch s.Phase {
	case PhaseCompleted:
		return fmt.Sprintf("completed(%d)", s.ImageCount)
	case PhaseFailed:
		return fmt.Sprintf("failed(%q)", s.Message)
	case PhasePending:
		return "pending"
	default:
		return fmt.Sprintf("%s(%.2f)", s.Phase, s.Progress)
	}
}
