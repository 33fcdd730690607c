// Package views provides the server-side ViewFactory. A view here is a
// numbered handle that remote clients follow over the event stream.
package views

import (
	"errors"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/starford/databrowser/internal/browser"
	"github.com/starford/databrowser/internal/sse"
)

// ErrLimit is returned by CreateView when the open view limit is reached.
var ErrLimit = errors.New("views: open view limit reached")

// Publisher receives view lifecycle events.
type Publisher interface {
	Publish(event sse.Event)
}

// View is an open view handle.
type View struct {
	Handle   int         `json:"handle"`
	Ref      browser.Ref `json:"ref"`
	OpenedAt time.Time   `json:"opened_at"`
}

// Registry implements browser.ViewFactory. CreateView and DestroyView are
// called from the loop; Open and Len may be called from any goroutine.
type Registry struct {
	mu     sync.Mutex
	open   map[int]*View
	next   int
	limit  int
	pub    Publisher
	logger *slog.Logger
	now    func() time.Time
}

var _ browser.ViewFactory = (*Registry)(nil)

// Option configures a Registry.
type Option func(*Registry)

// WithPublisher sets where view.opened and view.closed events go.
func WithPublisher(p Publisher) Option {
	return func(r *Registry) { r.pub = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithLimit caps the number of simultaneously open views. Zero means no cap.
func WithLimit(n int) Option {
	return func(r *Registry) { r.limit = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		open:   make(map[int]*View),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateView allocates a handle for ref.
func (r *Registry) CreateView(ref browser.Ref) (browser.View, error) {
	r.mu.Lock()
	if r.limit > 0 && len(r.open) >= r.limit {
		r.mu.Unlock()
		return nil, ErrLimit
	}
	r.next++
	v := &View{Handle: r.next, Ref: ref, OpenedAt: r.now()}
	r.open[v.Handle] = v
	r.mu.Unlock()

	r.logger.Debug("views: opened",
		slog.Int("handle", v.Handle), slog.Int("container", ref.Container),
		slog.String("category", ref.Category.String()), slog.Int("id", ref.ID))
	r.publish(sse.TypeViewOpened, *v)
	return v, nil
}

// DestroyView releases a handle returned by CreateView.
func (r *Registry) DestroyView(bv browser.View) {
	v, ok := bv.(*View)
	if !ok {
		r.logger.Warn("views: destroy of foreign view", slog.Any("view", bv))
		return
	}
	r.mu.Lock()
	_, known := r.open[v.Handle]
	delete(r.open, v.Handle)
	r.mu.Unlock()
	if !known {
		r.logger.Warn("views: destroy of closed view", slog.Int("handle", v.Handle))
		return
	}

	r.logger.Debug("views: closed", slog.Int("handle", v.Handle))
	r.publish(sse.TypeViewClosed, *v)
}

func (r *Registry) publish(typ string, v View) {
	if r.pub != nil {
		r.pub.Publish(sse.Event{Type: typ, Data: v})
	}
}

// Open returns the open views ordered by handle.
func (r *Registry) Open() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]View, 0, len(r.open))
	for _, h := range slices.Sorted(maps.Keys(r.open)) {
		out = append(out, *r.open[h])
	}
	return out
}

// Len returns the number of open views.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}
