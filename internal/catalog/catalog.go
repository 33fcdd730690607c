package catalog

// Catalog defines the object index operations.
// Consumers depend on this interface rather than on *DB.
type Catalog interface {
	Upsert(r Row) error
	Delete(container int, category string, id int) error
	Get(container int, category string, id int) (*Row, error)
	Search(query string, limit int) ([]SearchResult, error)
	Reset() error
	Close() error
}

var _ Catalog = (*DB)(nil)
