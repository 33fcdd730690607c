package browser

import (
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/models"
)

// Entry is a snapshot of one registry row.
type Entry struct {
	ID       int
	Category keys.Category
	Object   any
	View     View
	Modified time.Time
}

// Visible reports whether the entry has a live view.
func (e Entry) Visible() bool {
	return e.View != nil
}

type entry struct {
	id        int
	object    any
	view      View
	modified  time.Time
	unobserve func()
}

// registry is the ordered id→entry table of one category in one proxy.
// Positions are never kept across callbacks: every operation re-looks-up by
// id.
type registry struct {
	category keys.Category
	entries  map[int]*entry
	// lastID is the highest id ever inserted. Graph ids start at 1, so the
	// graph counter is seeded at 0 instead of -1.
	lastID int
	// retired holds ids that were removed and not re-inserted. Associations
	// may still reference them.
	retired map[int]struct{}
}

func newRegistry(c keys.Category) *registry {
	return &registry{
		category: c,
		entries:  make(map[int]*entry),
		lastID:   c.FirstID() - 1,
		retired:  make(map[int]struct{}),
	}
}

// ids returns the ids in display order.
func (r *registry) ids() []int {
	return slices.Sorted(maps.Keys(r.entries))
}

func (r *registry) known(id int) bool {
	if _, ok := r.entries[id]; ok {
		return true
	}
	_, ok := r.retired[id]
	return ok
}

func (e *entry) snapshot(c keys.Category) Entry {
	return Entry{ID: e.id, Category: c, Object: e.object, View: e.view, Modified: e.modified}
}

// insert adds object under id with no view and fires Added.
func (p *Proxy) insert(c keys.Category, id int, object any) error {
	r := p.lists[c]
	if _, ok := r.entries[id]; ok {
		return p.b.violation(&ContractError{Op: "insert", Container: p.dataNo, Table: c.String(), ID: id, Reason: "id already present"})
	}
	if err := p.b.claimIdentity(object, Identity{Container: p.dataNo, Category: c, ID: id}); err != nil {
		return err
	}
	e := &entry{id: id, object: object, modified: p.b.now()}
	r.entries[id] = e
	delete(r.retired, id)
	if id > r.lastID {
		r.lastID = id
	}
	p.observe(c, e)
	p.b.logger.Debug("browser: inserted",
		slog.Int("container", p.dataNo), slog.String("category", c.String()), slog.Int("id", id))
	p.b.notify(p, c, id, Added)
	return nil
}

// remove destroys the entry's view, if any, drops the entry and fires
// Removed.
func (p *Proxy) remove(c keys.Category, id int) error {
	r := p.lists[c]
	e, ok := r.entries[id]
	if !ok {
		return p.b.violation(&ContractError{Op: "remove", Container: p.dataNo, Table: c.String(), ID: id, Reason: "id not present"})
	}
	if e.view != nil {
		if _, err := p.setVisible(c, e, false); err != nil {
			return err
		}
	}
	// The view teardown may have re-entered the store; look the entry up again.
	e, ok = r.entries[id]
	if !ok {
		return nil
	}
	p.drop(c, e)
	p.b.notify(p, c, id, Removed)
	return nil
}

// drop detaches an entry from every side table without notifying.
func (p *Proxy) drop(c keys.Category, e *entry) {
	r := p.lists[c]
	if e.unobserve != nil {
		e.unobserve()
		e.unobserve = nil
	}
	p.b.releaseIdentity(e.object)
	delete(r.entries, e.id)
	r.retired[e.id] = struct{}{}
	if cur, ok := p.current[c]; ok && cur == e.id {
		delete(p.current, c)
	}
	p.b.logger.Debug("browser: removed",
		slog.Int("container", p.dataNo), slog.String("category", c.String()), slog.Int("id", e.id))
}

// find returns the live entry for id.
func (p *Proxy) find(c keys.Category, id int) (*entry, bool) {
	if !c.Valid() {
		return nil, false
	}
	e, ok := p.lists[c].entries[id]
	return e, ok
}

// Find returns a snapshot of entry id of category c.
func (p *Proxy) Find(c keys.Category, id int) (Entry, bool) {
	e, ok := p.find(c, id)
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(c), true
}

// reconnect replaces the payload of an existing entry in place. The view and
// the id are kept; the payload subscription and identity move to the new
// object.
func (p *Proxy) reconnect(c keys.Category, id int, object any) error {
	e, ok := p.find(c, id)
	if !ok {
		return p.b.violation(&ContractError{Op: "reconnect", Container: p.dataNo, Table: c.String(), ID: id, Reason: "id not present"})
	}
	if e.object == object {
		return nil
	}
	ident := Identity{Container: p.dataNo, Category: c, ID: id}
	if err := p.b.claimIdentity(object, ident); err != nil {
		return err
	}
	if e.unobserve != nil {
		e.unobserve()
		e.unobserve = nil
	}
	p.b.releaseIdentity(e.object)
	e.object = object
	e.modified = p.b.now()
	p.observe(c, e)
	p.b.notify(p, c, id, Changed)
	return nil
}

// touch refreshes the timestamp and fires Changed.
func (p *Proxy) touch(c keys.Category, id int) bool {
	e, ok := p.find(c, id)
	if !ok {
		return false
	}
	e.modified = p.b.now()
	p.b.notify(p, c, id, Changed)
	return true
}

// Touch marks entry id as modified and notifies watchers. It reports whether
// the entry exists.
func (p *Proxy) Touch(c keys.Category, id int) bool {
	return p.touch(c, id)
}

// observe binds the entry's payload change signal to touch. The closure looks
// the entry up by id, so a stale subscription cannot reach a replaced entry.
func (p *Proxy) observe(c keys.Category, e *entry) {
	obs, ok := e.object.(models.Observable)
	if !ok {
		return
	}
	id := e.id
	e.unobserve = obs.Observe(func() {
		p.touch(c, id)
	})
}

// IDs returns the ids of category c in ascending order.
func (p *Proxy) IDs(c keys.Category) []int {
	if !c.Valid() {
		return nil
	}
	return p.lists[c].ids()
}

// Len returns the number of entries of category c.
func (p *Proxy) Len(c keys.Category) int {
	if !c.Valid() {
		return 0
	}
	return len(p.lists[c].entries)
}

// LastID returns the highest id ever inserted into category c, or the seed
// value FirstID-1 when nothing was.
func (p *Proxy) LastID(c keys.Category) int {
	if !c.Valid() {
		return -1
	}
	return p.lists[c].lastID
}
