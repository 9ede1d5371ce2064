// Package pipeline sequences the processing stages for queued documents.
package pipeline

import (
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/spherical/image-extractor/internal/domain"
)

// Queue holds the documents known to the orchestrator in the order they were
// added. All mutations go through its mutex.
type Queue struct {
	mu      sync.Mutex
	docs    []*domain.Document
	claimed map[uuid.UUID]bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{claimed: make(map[uuid.UUID]bool)}
}

// Add queues every path with a supported extension that is not already in
// the queue. It returns the added documents and the paths it rejected as
// unsupported.
func (q *Queue) Add(paths ...string) (added []domain.Document, unsupported []string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, p := range paths {
		docType, ok := domain.DetectDocumentType(p)
		if !ok {
			unsupported = append(unsupported, p)
			continue
		}
		path := p
		if abs, err := filepath.Abs(p); err == nil {
			path = abs
		}
		if q.containsPath(path) {
			continue
		}
		doc := domain.NewDocument(path, docType)
		q.docs = append(q.docs, doc)
		added = append(added, *doc)
	}
	return added, unsupported
}

func (q *Queue) containsPath(path string) bool {
	for _, d := range q.docs {
		if d.SourcePath == path {
			return true
		}
	}
	return false
}

// Remove drops a document that is not currently being processed.
func (q *Queue) Remove(id uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, d := range q.docs {
		if d.ID != id {
			continue
		}
		if d.State.IsProcessing() || (q.claimed[id] && !d.State.IsFinished()) {
			return false
		}
		q.docs = append(q.docs[:i], q.docs[i+1:]...)
		delete(q.claimed, id)
		return true
	}
	return false
}

// ClearFinished removes completed and failed documents and returns how many
// were removed.
func (q *Queue) ClearFinished() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.docs[:0]
	removed := 0
	for _, d := range q.docs {
		if d.State.IsFinished() {
			delete(q.claimed, d.ID)
			removed++
			continue
		}
		kept = append(kept, d)
	}
	q.docs = kept
	return removed
}

// Snapshot returns copies of all documents in queue order.
func (q *Queue) Snapshot() []domain.Document {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]domain.Document, len(q.docs))
	for i, d := range q.docs {
		out[i] = *d
	}
	return out
}

// Get returns a copy of one document.
func (q *Queue) Get(id uuid.UUID) (domain.Document, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if d := q.find(id); d != nil {
		return *d, true
	}
	return domain.Document{}, false
}

// HasPending reports whether any document is waiting to be processed.
func (q *Queue) HasPending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, d := range q.docs {
		if d.State.Phase == domain.PhasePending && !q.claimed[d.ID] {
			return true
		}
	}
	return false
}

// claimNext reserves the oldest pending document for one worker.
func (q *Queue) claimNext() (domain.Document, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, d := range q.docs {
		if d.State.Phase == domain.PhasePending && !q.claimed[d.ID] {
			q.claimed[d.ID] = true
			return *d, true
		}
	}
	return domain.Document{}, false
}

// setOutputDir records the resolved output directory.
func (q *Queue) setOutputDir(id uuid.UUID, dir string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if d := q.find(id); d != nil {
		d.OutputDir = dir
	}
}

// transition applies next if the state machine allows it and returns the
// updated document.
func (q *Queue) transition(id uuid.UUID, next domain.ProcessingState) (domain.Document, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	d := q.find(id)
	if d == nil || !d.State.CanTransitionTo(next) {
		return domain.Document{}, false
	}
	d.State = next
	if next.Phase == domain.PhaseCompleted {
		d.ImageCount = next.ImageCount
	}
	return *d, true
}

func (q *Queue) find(id uuid.UUID) *domain.Document {
	for _, d := range q.docs {
		if d.ID == id {
			return d
		}
	}
	return nil
}
