package browser

import (
	"log/slog"
	"slices"
	"time"

	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/store"
)

// Browser is the registry of proxies and the selection state shared by
// everything that presents data. It is not safe for concurrent use; drive it
// from one loop goroutine.
type Browser struct {
	logger *slog.Logger
	views  ViewFactory
	sched  Scheduler
	now    func() time.Time
	strict bool
	titles TitleFunc

	// proxies is ordered most recently used first.
	proxies []*Proxy
	byStore map[store.Store]*Proxy
	byNo    map[int]*Proxy

	nextDataNo   int
	nextUntitled int

	current         *Proxy
	currentCategory keys.Category

	watchers    [keys.NCategories][]watcher
	nextWatchID int

	identities map[any]Identity
}

// New creates an empty browser. Views are created through views and deferred
// finalization is queued on sched.
func New(sched Scheduler, views ViewFactory, opts ...Option) *Browser {
	b := &Browser{
		logger:     slog.Default(),
		views:      views,
		sched:      sched,
		now:        time.Now,
		titles:     defaultTitle,
		byStore:    make(map[store.Store]*Proxy),
		byNo:       make(map[int]*Proxy),
		identities: make(map[any]Identity),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type registerOptions struct {
	keepInvisible bool
	restore       bool
}

// RegisterOption configures Register.
type RegisterOption func(*registerOptions)

// KeepInvisible keeps the proxy alive while nothing is visible.
func KeepInvisible(keep bool) RegisterOption {
	return func(o *registerOptions) {
		o.keepInvisible = keep
	}
}

// RestoreVisibility opens views after the initial scan, as ResetDefault does.
func RestoreVisibility(restore bool) RegisterOption {
	return func(o *registerOptions) {
		o.restore = restore
	}
}

// Register creates the proxy of s, or returns the existing one. A new proxy
// is populated by a full scan: primary objects first, then associations. The
// proxy becomes current.
func (b *Browser) Register(s store.Store, opts ...RegisterOption) (*Proxy, error) {
	if s == nil {
		return nil, b.violation(&ContractError{Op: "register", Reason: "nil store"})
	}
	if p, ok := b.Lookup(s); ok {
		return p, nil
	}
	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	b.nextDataNo++
	p := newProxy(b, s, b.nextDataNo)
	p.keepInvisible = o.keepInvisible
	b.proxies = slices.Insert(b.proxies, 0, p)
	b.byStore[s] = p
	b.byNo[p.dataNo] = p
	b.current = p

	p.unsubscribe = s.Subscribe(p.itemChanged)
	p.scan()
	if o.restore {
		p.resetVisibility(ResetDefault, false)
	}
	b.logger.Info("browser: registered",
		slog.Int("container", p.dataNo),
		slog.String("filename", p.Filename()),
		slog.Int("visible", p.visibleCount))
	return p, nil
}

// Lookup returns the proxy of s and moves it to the front.
func (b *Browser) Lookup(s store.Store) (*Proxy, bool) {
	p, ok := b.byStore[s]
	if !ok {
		return nil, false
	}
	b.touchMRU(p)
	return p, true
}

// ByNumber returns the proxy with data number no.
func (b *Browser) ByNumber(no int) (*Proxy, bool) {
	p, ok := b.byNo[no]
	if !ok {
		return nil, false
	}
	b.touchMRU(p)
	return p, true
}

// Proxies returns the live proxies, most recently used first.
func (b *Browser) Proxies() []*Proxy {
	return slices.Clone(b.proxies)
}

func (b *Browser) touchMRU(p *Proxy) {
	i := slices.Index(b.proxies, p)
	if i <= 0 {
		return
	}
	copy(b.proxies[1:i+1], b.proxies[:i])
	b.proxies[0] = p
}

func (b *Browser) unregister(p *Proxy) {
	if i := slices.Index(b.proxies, p); i >= 0 {
		b.proxies = slices.Delete(b.proxies, i, i+1)
	}
	delete(b.byStore, p.store)
	delete(b.byNo, p.dataNo)
	if b.current == p {
		b.current = nil
		if len(b.proxies) > 0 {
			b.current = b.proxies[0]
		}
	}
}

// Close hides every view of s and drops its keep flag, so that the proxy is
// finalized on the next loop turn.
func (b *Browser) Close(s store.Store) error {
	p, ok := b.byStore[s]
	if !ok {
		return notFound("close", 0, "store", 0)
	}
	p.keepInvisible = false
	p.resetVisibility(ResetHideAll, true)
	return nil
}

// Current returns the current proxy.
func (b *Browser) Current() (*Proxy, bool) {
	return b.current, b.current != nil
}

// CurrentCategory returns the category of the last selection.
func (b *Browser) CurrentCategory() keys.Category {
	return b.currentCategory
}

// Select makes object id of category c in store s current.
func (b *Browser) Select(s store.Store, c keys.Category, id int) error {
	p, ok := b.byStore[s]
	if !ok {
		return notFound("select", 0, c.String(), id)
	}
	if _, ok := p.find(c, id); !ok {
		return notFound("select", p.dataNo, c.String(), id)
	}
	b.selectEntry(p, c, id)
	return nil
}

func (b *Browser) selectEntry(p *Proxy, c keys.Category, id int) {
	b.current = p
	b.currentCategory = c
	p.current[c] = id
	b.touchMRU(p)
}

// CurrentObject describes the selected object of one category.
type CurrentObject struct {
	Container int           `json:"container"`
	Category  keys.Category `json:"category"`
	ID        int           `json:"id"`
	Key       string        `json:"key"`
	Object    any           `json:"-"`
}

// CurrentObject returns the selected object of category c in the current
// proxy.
func (b *Browser) CurrentObject(c keys.Category) (CurrentObject, bool) {
	p := b.current
	if p == nil || !c.Valid() {
		return CurrentObject{}, false
	}
	id, ok := p.current[c]
	if !ok {
		return CurrentObject{}, false
	}
	e, ok := p.find(c, id)
	if !ok {
		return CurrentObject{}, false
	}
	return CurrentObject{
		Container: p.dataNo,
		Category:  c,
		ID:        id,
		Key:       keys.PrimaryKey(c, id),
		Object:    e.object,
	}, true
}
