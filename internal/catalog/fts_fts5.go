//go:build sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS objects_fts USING fts5(
			container UNINDEXED,
			category UNINDEXED,
			id UNINDEXED,
			title,
			file,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, r Row) error {
	if err := ftsDelete(tx, r.Container, r.Category, r.ID); err != nil {
		return err
	}
	_, err := tx.Exec(`INSERT INTO objects_fts (container, category, id, title, file) VALUES (?, ?, ?, ?, ?)`,
		r.Container, r.Category, r.ID, r.Title, r.File)
	if err != nil {
		return fmt.Errorf("catalog: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, container int, category string, id int) error {
	_, err := tx.Exec(`DELETE FROM objects_fts WHERE container = ? AND category = ? AND id = ?`,
		container, category, id)
	if err != nil {
		return fmt.Errorf("catalog: delete fts: %w", err)
	}
	return nil
}

func ftsReset(tx *sql.Tx) error {
	if _, err := tx.Exec(`DELETE FROM objects_fts`); err != nil {
		return fmt.Errorf("catalog: reset fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching objects with
// highlighted titles.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT o.container, o.category, o.id, o.title, o.key, o.file, o.updated_at,
		       snippet(objects_fts, 3, '<b>', '</b>', '...', 16)
		FROM objects_fts f
		JOIN objects o ON o.container = f.container AND o.category = f.category AND o.id = f.id
		WHERE objects_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	return scanResults(rows)
}
