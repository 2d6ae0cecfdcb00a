// Package store persists document variables and render history in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil"
)

const schema = `
CREATE TABLE IF NOT EXISTS document_variables (
	document_id TEXT NOT NULL,
	name        TEXT NOT NULL,
	value       TEXT NOT NULL,
	updated_at  INTEGER NOT NULL,
	PRIMARY KEY (document_id, name)
);
CREATE TABLE IF NOT EXISTS render_history (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id TEXT NOT NULL,
	output      TEXT NOT NULL,
	rendered_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_render_history_document ON render_history(document_id, id);
`

// ErrEmptyDocumentID is returned when an operation has no document id.
var ErrEmptyDocumentID = errors.New("document id is empty")

// HistoryEntry is one recorded render of a document.
type HistoryEntry struct {
	ID         int64
	DocumentID string
	Output     string
	RenderedAt time.Time
}

// Store holds stored variables and render history for documents.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the database at dsn and creates the tables if needed. Use
// ":memory:" for a private in-memory database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, stencil.NewDocumentError("open store", dsn, err)
	}
	// an in-memory database exists per connection
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, stencil.NewDocumentError("create schema", dsn, err)
	}

	stencil.WithField("dsn", dsn).Debug("Opened variable store")
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadVariables returns the stored flat values of a document. A document
// without stored values yields an empty map.
func (s *Store) LoadVariables(ctx context.Context, documentID string) (map[string]string, error) {
	if documentID == "" {
		return nil, ErrEmptyDocumentID
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, value FROM document_variables WHERE document_id = ?`, documentID)
	if err != nil {
		return nil, fmt.Errorf("load variables for %s: %w", documentID, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	values := make(map[string]string)
	for rows.Next() {
		var name, v string
		if err := rows.Scan(&name, &v); err != nil {
			return nil, fmt.Errorf("scan variable: %w", err)
		}
		values[name] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load variables for %s: %w", documentID, err)
	}
	return values, nil
}

// SaveVariables replaces the stored values of a document with values.
func (s *Store) SaveVariables(ctx context.Context, documentID string, values map[string]string) error {
	if documentID == "" {
		return ErrEmptyDocumentID
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM document_variables WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("clear variables for %s: %w", documentID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO document_variables (document_id, name, value, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	updated := s.now().Unix()
	for _, name := range names {
		if _, err := stmt.ExecContext(ctx, documentID, name, values[name], updated); err != nil {
			return fmt.Errorf("save variable %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit variables for %s: %w", documentID, err)
	}
	stencil.WithFields(stencil.Fields{
		"document":  documentID,
		"variables": len(values),
	}).Debug("Saved document variables")
	return nil
}

// AppendHistory records a rendered output and returns its entry id.
func (s *Store) AppendHistory(ctx context.Context, documentID, output string) (int64, error) {
	if documentID == "" {
		return 0, ErrEmptyDocumentID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO render_history (document_id, output, rendered_at) VALUES (?, ?, ?)`,
		documentID, output, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("append history for %s: %w", documentID, err)
	}
	return res.LastInsertId()
}

// History returns the most recent renders of a document, newest first. A
// limit of zero or less returns every entry.
func (s *Store) History(ctx context.Context, documentID string, limit int) ([]HistoryEntry, error) {
	if documentID == "" {
		return nil, ErrEmptyDocumentID
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, output, rendered_at FROM render_history
		 WHERE document_id = ? ORDER BY id DESC LIMIT ?`, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", documentID, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var renderedAt int64
		if err := rows.Scan(&e.ID, &e.DocumentID, &e.Output, &renderedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.RenderedAt = time.UnixMilli(renderedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
