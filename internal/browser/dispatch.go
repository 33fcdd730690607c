package browser

import (
	"log/slog"

	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/models"
)

// itemChanged is the single store subscription of a proxy. The new value is
// read back from the store, so a removal and a replacement take the same
// path.
func (p *Proxy) itemChanged(key string) {
	if p.finalized {
		return
	}
	ck := keys.Classify(key)
	var err error
	switch ck.Kind {
	case keys.Object:
		switch ck.Sub {
		case keys.SubPrimary:
			err = p.syncObject(ck.Category, ck.ID)
		case keys.SubVisible:
			// Written by the browser itself; reading it back would loop.
		default:
			p.touch(ck.Category, ck.ID)
		}
	case keys.Association:
		if ck.Assoc.InStore() && ck.Sub == keys.SubPrimary {
			err = p.syncAssociation(ck.Assoc, ck.ID)
		} else {
			p.touch(ck.Category, ck.ID)
		}
	}
	if err != nil {
		p.b.logger.Warn("browser: store change dropped",
			slog.Int("container", p.dataNo), slog.String("key", key), slog.String("error", err.Error()))
	}
}

// syncObject drives the store item state machine of one primary key:
// appearing values are inserted, replaced values reconnected in place and
// vanished values removed.
func (p *Proxy) syncObject(c keys.Category, id int) error {
	v, present := p.store.Get(keys.PrimaryKey(c, id))
	_, exists := p.find(c, id)
	switch {
	case !present && !exists:
		return nil
	case !present:
		return p.remove(c, id)
	case !models.MatchesCategory(c, v):
		return p.b.violation(&ContractError{Op: "sync", Container: p.dataNo, Table: c.String(), ID: id, Reason: "store value has wrong type"})
	case !exists:
		if err := p.insert(c, id, v); err != nil {
			return err
		}
		p.syncAssociationsOf(c, id)
		return nil
	default:
		return p.reconnect(c, id, v)
	}
}

// scan populates a fresh proxy from existing store content. Primary objects
// go first so that every association finds its owner.
func (p *Proxy) scan() {
	var assocs []keys.Key
	p.store.Iterate("", func(key string, _ any) {
		ck := keys.Classify(key)
		switch {
		case ck.Primary():
			if err := p.syncObject(ck.Category, ck.ID); err != nil {
				p.b.logger.Warn("browser: scan skipped object",
					slog.Int("container", p.dataNo), slog.String("key", key), slog.String("error", err.Error()))
			}
		case ck.Kind == keys.Association && ck.Assoc.InStore():
			assocs = append(assocs, ck)
		}
	})
	for _, ck := range assocs {
		if err := p.syncAssociation(ck.Assoc, ck.ID); err != nil {
			p.b.logger.Warn("browser: scan skipped association",
				slog.Int("container", p.dataNo), slog.String("kind", ck.Assoc.String()), slog.Int("owner", ck.ID),
				slog.String("error", err.Error()))
		}
	}
}
