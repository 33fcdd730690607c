package browser

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/models"
)

// assocTable is the owner-id→payload table of one association kind, with the
// reverse index used when only the payload is known.
type assocTable struct {
	kind      keys.AssocKind
	byOwner   map[int]any
	byObject  map[any]int
	unobserve map[int]func()
}

func newAssocTable(k keys.AssocKind) *assocTable {
	return &assocTable{
		kind:      k,
		byOwner:   make(map[int]any),
		byObject:  make(map[any]int),
		unobserve: make(map[int]func()),
	}
}

func (t *assocTable) owners() []int {
	return slices.Sorted(maps.Keys(t.byOwner))
}

func (t *assocTable) put(owner int, object any) {
	t.byOwner[owner] = object
	if identifiable(object) {
		t.byObject[object] = owner
	}
}

func (t *assocTable) release(owner int) any {
	object := t.byOwner[owner]
	if cancel := t.unobserve[owner]; cancel != nil {
		cancel()
		delete(t.unobserve, owner)
	}
	if identifiable(object) {
		delete(t.byObject, object)
	}
	delete(t.byOwner, owner)
	return object
}

func (p *Proxy) assocViolation(op string, k keys.AssocKind, owner int, reason string) error {
	return p.b.violation(&ContractError{Op: op, Container: p.dataNo, Table: k.String(), ID: owner, Reason: reason})
}

// Connect binds object to owner under kind and takes ownership of it.
func (p *Proxy) Connect(k keys.AssocKind, owner int, object any) error {
	t := p.assoc[k]
	if _, ok := t.byOwner[owner]; ok {
		return p.assocViolation("connect", k, owner, "owner already connected")
	}
	if object == nil {
		return p.assocViolation("connect", k, owner, "nil payload")
	}
	if identifiable(object) {
		if _, ok := t.byObject[object]; ok {
			return p.assocViolation("connect", k, owner, "payload already connected to another owner")
		}
	}
	t.put(owner, object)
	p.observeAssoc(t, owner, object)
	p.b.logger.Debug("browser: connected",
		slog.Int("container", p.dataNo), slog.String("kind", k.String()), slog.Int("owner", owner))
	p.touch(k.Owner(), owner)
	return nil
}

// Disconnect releases the association of owner under kind. Window payloads
// are handed back to the caller, who owns them again.
func (p *Proxy) Disconnect(k keys.AssocKind, owner int) error {
	t := p.assoc[k]
	if _, ok := t.byOwner[owner]; !ok {
		return p.assocViolation("disconnect", k, owner, "owner not connected")
	}
	t.release(owner)
	p.b.logger.Debug("browser: disconnected",
		slog.Int("container", p.dataNo), slog.String("kind", k.String()), slog.Int("owner", owner))
	p.touch(k.Owner(), owner)
	return nil
}

// FindAssociation returns the payload connected to owner under kind.
func (p *Proxy) FindAssociation(k keys.AssocKind, owner int) (any, bool) {
	v, ok := p.assoc[k].byOwner[owner]
	return v, ok
}

// FindOwner returns the owner id object is connected to under kind.
func (p *Proxy) FindOwner(k keys.AssocKind, object any) (int, bool) {
	if !identifiable(object) {
		return 0, false
	}
	owner, ok := p.assoc[k].byObject[object]
	return owner, ok
}

// ReconnectAssociation replaces the payload connected to owner in place,
// moving the change subscription to the new payload.
func (p *Proxy) ReconnectAssociation(k keys.AssocKind, owner int, object any) error {
	t := p.assoc[k]
	old, ok := t.byOwner[owner]
	if !ok {
		return p.assocViolation("reconnect", k, owner, "owner not connected")
	}
	if identifiable(object) && old == object {
		return nil
	}
	if object == nil {
		return p.assocViolation("reconnect", k, owner, "nil payload")
	}
	if identifiable(object) {
		if other, ok := t.byObject[object]; ok && other != owner {
			return p.assocViolation("reconnect", k, owner, "payload already connected to another owner")
		}
	}
	t.release(owner)
	t.put(owner, object)
	p.observeAssoc(t, owner, object)
	p.touch(k.Owner(), owner)
	return nil
}

// Associations returns the owners connected under kind in ascending order.
func (p *Proxy) Associations(k keys.AssocKind) []int {
	return p.assoc[k].owners()
}

// observeAssoc forwards payload changes as Changed events of the owner.
func (p *Proxy) observeAssoc(t *assocTable, owner int, object any) {
	obs, ok := object.(models.Observable)
	if !ok {
		return
	}
	c := t.kind.Owner()
	t.unobserve[owner] = obs.Observe(func() {
		p.touch(c, owner)
	})
}

// syncAssociation brings one store-backed association in line with the store
// value under its key. Associations whose owner was never registered are left
// for insert to pick up.
func (p *Proxy) syncAssociation(k keys.AssocKind, owner int) error {
	if p.dormant {
		return nil
	}
	key := keys.AssocKey(k, owner)
	v, present := p.store.Get(key)
	_, connected := p.assoc[k].byOwner[owner]
	switch {
	case !present && !connected:
		return nil
	case !present:
		return p.Disconnect(k, owner)
	case !models.MatchesAssoc(k, v):
		return p.assocViolation("sync", k, owner, "store value has wrong type")
	case !p.lists[k.Owner()].known(owner):
		p.b.logger.Debug("browser: association without owner deferred",
			slog.Int("container", p.dataNo), slog.String("key", key))
		return nil
	case !connected:
		return p.Connect(k, owner, v)
	default:
		return p.ReconnectAssociation(k, owner, v)
	}
}

// syncAssociationsOf connects every store-backed association of a freshly
// inserted object.
func (p *Proxy) syncAssociationsOf(c keys.Category, id int) {
	for _, k := range keys.AssocKinds {
		if k.Owner() != c || !k.InStore() {
			continue
		}
		if err := p.syncAssociation(k, id); err != nil {
			p.b.logger.Warn("browser: association sync failed", slog.String("error", err.Error()))
		}
	}
}

// clearAssociations tears down window payloads through the view factory and
// empties every association table.
func (p *Proxy) clearAssociations() {
	for _, k := range keys.AssocKinds {
		t := p.assoc[k]
		for _, owner := range t.owners() {
			object := t.release(owner)
			if k.Window() {
				p.b.views.DestroyView(object)
			}
		}
	}
}

// rebuildAssociations repopulates store-backed associations after
// clearAssociations.
func (p *Proxy) rebuildAssociations() {
	p.dormant = false
	p.store.Iterate("", func(key string, _ any) {
		ck := keys.Classify(key)
		if ck.Kind != keys.Association || !ck.Assoc.InStore() {
			return
		}
		if err := p.syncAssociation(ck.Assoc, ck.ID); err != nil {
			p.b.logger.Warn("browser: association rebuild failed",
				slog.String("key", key), slog.String("error", err.Error()))
		}
	})
}
