package browser

import (
	"fmt"
	"slices"

	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/store"
)

// EventKind is the kind of change a watcher is told about.
type EventKind int

const (
	Added EventKind = iota
	Changed
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Added:
		return "added"
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// WatchEvent is delivered to watchers.
type WatchEvent struct {
	Ref
	Kind  EventKind
	Store store.Store
}

// WatchFunc receives watch events together with the opaque data given to
// AddWatch.
type WatchFunc func(ev WatchEvent, data any)

type watcher struct {
	id   int
	fn   WatchFunc
	data any
}

// AddWatch registers fn for events of category c and returns its id. Ids are
// positive and never reused.
func (b *Browser) AddWatch(c keys.Category, fn WatchFunc, data any) (int, error) {
	if !c.Valid() {
		return 0, b.violation(&ContractError{Op: "add watch", Table: c.String(), Reason: "invalid category"})
	}
	if fn == nil {
		return 0, b.violation(&ContractError{Op: "add watch", Table: c.String(), Reason: "nil callback"})
	}
	b.nextWatchID++
	id := b.nextWatchID
	b.watchers[c] = append(b.watchers[c], watcher{id: id, fn: fn, data: data})
	return id, nil
}

// RemoveWatch unregisters a watcher. Removing an unknown id is a contract
// violation.
func (b *Browser) RemoveWatch(c keys.Category, id int) error {
	if !c.Valid() {
		return b.violation(&ContractError{Op: "remove watch", Table: c.String(), ID: id, Reason: "invalid category"})
	}
	i := slices.IndexFunc(b.watchers[c], func(w watcher) bool { return w.id == id })
	if i < 0 {
		return b.violation(&ContractError{Op: "remove watch", Table: c.String(), ID: id, Reason: "unknown watch id"})
	}
	b.watchers[c] = slices.Delete(b.watchers[c], i, i+1)
	return nil
}

// Watchers returns the number of watchers registered for c.
func (b *Browser) Watchers(c keys.Category) int {
	if !c.Valid() {
		return 0
	}
	return len(b.watchers[c])
}

// notify calls every watcher of the event's category synchronously, in
// registration order. Watchers removed by an earlier callback of the same
// round are skipped; watchers added during the round see the next event.
func (b *Browser) notify(p *Proxy, c keys.Category, id int, kind EventKind) {
	list := b.watchers[c]
	if len(list) == 0 {
		return
	}
	ev := WatchEvent{
		Ref:   Ref{Container: p.dataNo, Category: c, ID: id},
		Kind:  kind,
		Store: p.store,
	}
	for _, w := range slices.Clone(list) {
		if !slices.ContainsFunc(b.watchers[c], func(x watcher) bool { return x.id == w.id }) {
			continue
		}
		w.fn(ev, w.data)
	}
}
