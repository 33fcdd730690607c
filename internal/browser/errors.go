package browser

import (
	"fmt"
	"log/slog"

	"github.com/starford/databrowser/internal/apperr"
)

// ContractError describes a programming-contract breach detected by the
// browser. It matches apperr.ErrContractViolation under errors.Is.
type ContractError struct {
	// Op is the operation that detected the breach, e.g. "insert".
	Op string
	// Container is the data number of the affected proxy.
	Container int
	// Table names the category or association kind.
	Table string
	// ID is the object or owner id.
	ID int
	// Reason is a human-readable description.
	Reason string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("browser: %s %s:%d in container %d: %s", e.Op, e.Table, e.ID, e.Container, e.Reason)
}

// Is reports whether target is apperr.ErrContractViolation.
func (e *ContractError) Is(target error) bool {
	return target == apperr.ErrContractViolation
}

// violation applies the contract policy uniformly: the breach is logged, and
// in strict mode it panics. Otherwise the error is returned to the caller,
// which either propagates it or, inside the store notification handler,
// drops the mutation.
func (b *Browser) violation(e *ContractError) error {
	b.logger.Error("browser: contract violation",
		slog.String("op", e.Op),
		slog.String("table", e.Table),
		slog.Int("id", e.ID),
		slog.Int("container", e.Container),
		slog.String("reason", e.Reason))
	if b.strict {
		panic(e)
	}
	return e
}

func notFound(what string, container int, table string, id int) error {
	return fmt.Errorf("browser: %s %s:%d in container %d: %w", what, table, id, container, apperr.ErrNotFound)
}
