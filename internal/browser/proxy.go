package browser

import (
	"log/slog"

	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/loop"
	"github.com/starford/databrowser/internal/models"
	"github.com/starford/databrowser/internal/store"
)

// Proxy is the synchronization state of one registered store: six object
// registries, the association tables and the counters that decide when the
// proxy goes away.
type Proxy struct {
	b     *Browser
	store store.Store

	dataNo     int
	untitledNo int

	lists [keys.NCategories]*registry
	assoc [keys.NAssocKinds]*assocTable
	// current is the selected id per category.
	current map[keys.Category]int

	visibleCount  int
	keepInvisible bool
	// resetting suppresses visible-key writes and finalization while bulk
	// visibility changes run. It is a counter because resets may nest.
	resetting int
	// dormant is set once maybeFinalize cleared the association tables; they
	// are rebuilt from the store when a view opens again.
	dormant bool

	finalizeTask *loop.Task
	finalized    bool
	unsubscribe  func()
}

func newProxy(b *Browser, s store.Store, dataNo int) *Proxy {
	p := &Proxy{
		b:       b,
		store:   s,
		dataNo:  dataNo,
		current: make(map[keys.Category]int),
	}
	for _, c := range keys.Categories {
		p.lists[c] = newRegistry(c)
	}
	for _, k := range keys.AssocKinds {
		p.assoc[k] = newAssocTable(k)
	}
	return p
}

// DataNo returns the container number, unique for the life of the process.
func (p *Proxy) DataNo() int { return p.dataNo }

// Store returns the registered store, or nil once the proxy is finalized.
func (p *Proxy) Store() store.Store { return p.store }

// Finalized reports whether the proxy was destroyed.
func (p *Proxy) Finalized() bool { return p.finalized }

// VisibleCount returns the number of entries with a live view.
func (p *Proxy) VisibleCount() int { return p.visibleCount }

// KeepInvisible reports whether the proxy survives with no visible views.
func (p *Proxy) KeepInvisible() bool { return p.keepInvisible }

// Filename returns the file name recorded in the store, if any.
func (p *Proxy) Filename() string {
	if p.store == nil {
		return ""
	}
	return store.GetString(p.store, keys.Filename)
}

// UntitledNo returns the number used to name a container without a file
// name. Numbers are assigned on first use and never change.
func (p *Proxy) UntitledNo() int {
	if p.untitledNo == 0 && p.Filename() == "" {
		p.b.nextUntitled++
		p.untitledNo = p.b.nextUntitled
	}
	return p.untitledNo
}

// SetKeepInvisible changes whether the proxy is kept alive with nothing
// visible. Clearing the flag may schedule finalization; setting it wakes a
// dormant proxy.
func (p *Proxy) SetKeepInvisible(keep bool) {
	if p.keepInvisible == keep {
		return
	}
	p.keepInvisible = keep
	if !keep {
		p.maybeFinalize()
		return
	}
	p.wake()
}

// wake rebuilds the association tables of a proxy that will not be finalized
// after all.
func (p *Proxy) wake() {
	if p.dormant && !p.finalized {
		p.rebuildAssociations()
	}
}

func (p *Proxy) finalizedViolation(op string, c keys.Category, id int) error {
	return p.b.violation(&ContractError{Op: op, Container: p.dataNo, Table: c.String(), ID: id, Reason: "proxy finalized"})
}

// AddObject stores payload under the first free id of category c and returns
// the id. The registry entry is created by the store notification.
func (p *Proxy) AddObject(c keys.Category, payload any) (int, error) {
	if p.finalized {
		return 0, p.finalizedViolation("add object", c, 0)
	}
	if !c.Valid() {
		return 0, p.b.violation(&ContractError{Op: "add object", Container: p.dataNo, Table: c.String(), Reason: "invalid category"})
	}
	if !models.MatchesCategory(c, payload) {
		return 0, p.b.violation(&ContractError{Op: "add object", Container: p.dataNo, Table: c.String(), Reason: "payload has wrong type"})
	}
	id := p.lists[c].lastID + 1
	for {
		if _, taken := p.store.Get(keys.PrimaryKey(c, id)); !taken {
			break
		}
		id++
	}
	p.store.Set(keys.PrimaryKey(c, id), payload)
	p.b.logger.Debug("browser: object added",
		slog.Int("container", p.dataNo), slog.String("category", c.String()), slog.Int("id", id))
	return id, nil
}

// RemoveObject hides object id and deletes it from the store together with
// every key it owns.
func (p *Proxy) RemoveObject(c keys.Category, id int) error {
	if p.finalized {
		return p.finalizedViolation("remove object", c, id)
	}
	e, ok := p.find(c, id)
	if !ok {
		return notFound("remove object", p.dataNo, c.String(), id)
	}
	if e.view != nil {
		if _, err := p.setVisible(c, e, false); err != nil {
			return err
		}
	}
	for _, prefix := range keys.ObjectPrefixes(c, id) {
		p.store.RemovePrefix(prefix)
	}
	return nil
}
