//go:build !sqlite_fts5

package catalog

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on the objects table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ Row) error { return nil }

func ftsDelete(_ *sql.Tx, _ int, _ string, _ int) error { return nil }

func ftsReset(_ *sql.Tx) error { return nil }

// Search performs a LIKE-based search over titles and file names (fallback
// when FTS5 is not compiled in).
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT container, category, id, title, key, file, updated_at, title
		FROM objects
		WHERE title LIKE ? OR file LIKE ?
		ORDER BY container, category, id
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: search: %w", err)
	}
	return scanResults(rows)
}
