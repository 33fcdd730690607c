package browser

import (
	"log/slog"
	"time"

	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/loop"
	"github.com/starford/databrowser/internal/store"
)

// View is an opaque handle to a live view, owned by the entry that shows it.
type View any

// Ref addresses one object of one container.
type Ref struct {
	Container int           `json:"container"`
	Category  keys.Category `json:"category"`
	ID        int           `json:"id"`
}

// ViewFactory constructs and destroys live views. It is the boundary to
// whatever presents data: a GUI, a remote client session, or a test stub.
type ViewFactory interface {
	CreateView(ref Ref) (View, error)
	DestroyView(v View)
}

// Scheduler defers work until the current call stack has unwound. The
// browser uses it exclusively for deferred finalization.
type Scheduler interface {
	Schedule(fn func()) *loop.Task
}

// TitleFunc resolves the display title of an object.
type TitleFunc func(s store.Store, c keys.Category, id int) string

// Option configures a Browser.
type Option func(*Browser)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Browser) {
		b.logger = l
	}
}

// WithClock sets the source of entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Browser) {
		b.now = now
	}
}

// WithStrictContracts makes contract violations panic instead of being logged
// and returned.
func WithStrictContracts(strict bool) Option {
	return func(b *Browser) {
		b.strict = strict
	}
}

// WithTitleResolver replaces the default title resolution used by
// FindByTitle.
func WithTitleResolver(fn TitleFunc) Option {
	return func(b *Browser) {
		b.titles = fn
	}
}
