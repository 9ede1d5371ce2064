// Package storage persists finished processing runs in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spherical/image-extractor/internal/domain"
)

// finished_at holds Unix nanoseconds.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id TEXT NOT NULL,
	source_path TEXT NOT NULL,
	document_type TEXT NOT NULL,
	output_dir TEXT NOT NULL,
	status TEXT NOT NULL,
	image_count INTEGER NOT NULL DEFAULT 0,
	message TEXT NOT NULL DEFAULT '',
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_finished_at ON runs(finished_at);
`

// Run is one recorded document outcome.
type Run struct {
	ID         int64
	DocumentID uuid.UUID
	SourcePath string
	Type       domain.DocumentType
	OutputDir  string
	Status     string
	ImageCount int
	Message    string
	FinishedAt time.Time
}

// Succeeded reports whether the run completed.
func (r Run) Succeeded() bool {
	return r.Status == domain.PhaseCompleted.String()
}

// History is a SQLite backed run log.
type History struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and creates when missing) the history database at path.
func Open(ctx context.Context, path string) (*History, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, domain.IOError("create history directory", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, domain.IOError("open history database", err)
	}
	// workers record concurrently; sqlite allows a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, domain.IOError("migrate history database", err)
	}

	return &History{db: db, now: time.Now}, nil
}

// RecordRun stores a document that reached a terminal state.
func (h *History) RecordRun(ctx context.Context, doc domain.Document) error {
	if !doc.State.IsFinished() {
		return domain.ValidationError(fmt.Sprintf("document %s is not finished", doc.FileName()), nil)
	}

	_, err := h.db.ExecContext(ctx,
		`INSERT INTO runs (document_id, source_path, document_type, output_dir, status, image_count, message, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID.String(),
		doc.SourcePath,
		string(doc.Type),
		doc.OutputDir,
		doc.State.Phase.String(),
		doc.ImageCount,
		doc.State.Message,
		h.now().UnixNano(),
	)
	if err != nil {
		return domain.IOError("record run", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns all.
func (h *History) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, document_id, source_path, document_type, output_dir, status, image_count, message, finished_at
		FROM runs ORDER BY finished_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.IOError("list runs", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			docID      string
			docType    string
			finishedAt int64
		)
		if err := rows.Scan(&r.ID, &docID, &r.SourcePath, &docType, &r.OutputDir, &r.Status, &r.ImageCount, &r.Message, &finishedAt); err != nil {
			return nil, domain.IOError("scan run", err)
		}
		r.DocumentID, err = uuid.Parse(docID)
		if err != nil {
			return nil, domain.IOError("parse document id", err)
		}
		r.Type = domain.DocumentType(docType)
		r.FinishedAt = time.Unix(0, finishedAt).UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.IOError("iterate runs", err)
	}
	return runs, nil
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}
