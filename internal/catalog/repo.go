package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/databrowser/internal/apperr"
)

// Row represents a row in the objects table.
type Row struct {
	Container int       `json:"container"`
	Category  string    `json:"category"`
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Key       string    `json:"key"`
	File      string    `json:"file,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Row
	Snippet string `json:"snippet"`
}

// Upsert inserts or replaces an object row and its FTS entry.
func (db *DB) Upsert(r Row) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO objects (container, category, id, title, key, file, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(container, category, id) DO UPDATE SET
			title      = excluded.title,
			key        = excluded.key,
			file       = excluded.file,
			updated_at = excluded.updated_at
	`, r.Container, r.Category, r.ID, r.Title, r.Key, r.File, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalog: upsert: %w", err)
	}
	if err := ftsUpsert(tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes one object row.
func (db *DB) Delete(container int, category string, id int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, container, category, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM objects WHERE container = ? AND category = ? AND id = ?`,
		container, category, id); err != nil {
		return fmt.Errorf("catalog: delete: %w", err)
	}
	return tx.Commit()
}

// Get returns one row, or apperr.ErrNotFound.
func (db *DB) Get(container int, category string, id int) (*Row, error) {
	r := Row{Container: container, Category: category, ID: id}
	err := db.conn.QueryRow(`
		SELECT title, key, file, updated_at FROM objects
		WHERE container = ? AND category = ? AND id = ?
	`, container, category, id).Scan(&r.Title, &r.Key, &r.File, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("catalog: get %d/%s/%d: %w", container, category, id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: get: %w", err)
	}
	return &r, nil
}

// Reset empties the catalog. Container numbers are only meaningful within
// one process, so the server resets on start.
func (db *DB) Reset() error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("catalog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsReset(tx); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM objects`); err != nil {
		return fmt.Errorf("catalog: reset: %w", err)
	}
	return tx.Commit()
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Container, &r.Category, &r.ID, &r.Title, &r.Key, &r.File, &r.UpdatedAt, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
