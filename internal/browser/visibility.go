package browser

import (
	"fmt"
	"log/slog"

	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/store"
)

// ResetMode selects how ResetVisibility decides which objects to show.
type ResetMode int

const (
	// ResetDefault restores persisted visibility; when that shows nothing it
	// shows every channel, or every object if there are no channels.
	ResetDefault ResetMode = iota
	// ResetRestore shows exactly the objects whose visible key is set.
	ResetRestore
	ResetShowAll
	ResetHideAll
)

func (m ResetMode) String() string {
	switch m {
	case ResetDefault:
		return "default"
	case ResetRestore:
		return "restore"
	case ResetShowAll:
		return "show-all"
	case ResetHideAll:
		return "hide-all"
	}
	return fmt.Sprintf("reset(%d)", int(m))
}

// ParseResetMode parses the String form of a ResetMode.
func ParseResetMode(s string) (ResetMode, error) {
	for m := ResetDefault; m <= ResetHideAll; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("browser: unknown reset mode %q", s)
}

// SetVisible shows or hides object id. It reports whether the state changed;
// asking for the current state is a no-op.
func (p *Proxy) SetVisible(c keys.Category, id int, visible bool) (bool, error) {
	e, ok := p.find(c, id)
	if !ok {
		return false, notFound("set visible", p.dataNo, c.String(), id)
	}
	return p.setVisible(c, e, visible)
}

// Visible reports whether object id has a live view.
func (p *Proxy) Visible(c keys.Category, id int) bool {
	e, ok := p.find(c, id)
	return ok && e.view != nil
}

func (p *Proxy) setVisible(c keys.Category, e *entry, visible bool) (bool, error) {
	if visible {
		return p.show(c, e)
	}
	return p.hide(c, e)
}

func (p *Proxy) show(c keys.Category, e *entry) (bool, error) {
	if e.view != nil {
		return false, nil
	}
	if p.dormant {
		p.rebuildAssociations()
	}
	id := e.id
	v, err := p.b.views.CreateView(Ref{Container: p.dataNo, Category: c, ID: id})
	if err != nil {
		return false, fmt.Errorf("browser: create view %s:%d: %w", c, id, err)
	}
	// The factory may have re-entered the browser; trust only a fresh lookup.
	e, ok := p.find(c, id)
	if !ok || e.view != nil {
		p.b.views.DestroyView(v)
		return false, nil
	}
	e.view = v
	p.visibleCount++
	p.b.selectEntry(p, c, id)
	p.b.logger.Debug("browser: shown",
		slog.Int("container", p.dataNo), slog.String("category", c.String()), slog.Int("id", id),
		slog.Int("visible", p.visibleCount))
	if p.resetting == 0 {
		p.store.Set(keys.VisibleKey(c, id), true)
	}
	return true, nil
}

func (p *Proxy) hide(c keys.Category, e *entry) (bool, error) {
	if e.view == nil {
		return false, nil
	}
	id := e.id
	v := e.view
	e.view = nil
	p.visibleCount--
	p.b.views.DestroyView(v)
	p.b.logger.Debug("browser: hidden",
		slog.Int("container", p.dataNo), slog.String("category", c.String()), slog.Int("id", id),
		slog.Int("visible", p.visibleCount))
	if p.resetting == 0 {
		p.store.Remove(keys.VisibleKey(c, id))
		p.maybeFinalize()
	}
	return true, nil
}

// ResetVisibility shows and hides objects in bulk according to mode. Visible
// keys are not written while it runs. It reports whether anything is visible
// afterwards; if nothing is, the proxy may be scheduled for finalization.
func (p *Proxy) ResetVisibility(mode ResetMode) bool {
	return p.resetVisibility(mode, true)
}

func (p *Proxy) resetVisibility(mode ResetMode, finalize bool) bool {
	p.resetting++
	switch mode {
	case ResetShowAll:
		p.setAll(func(keys.Category, int) bool { return true })
	case ResetHideAll:
		p.setAll(func(keys.Category, int) bool { return false })
	case ResetRestore:
		p.setAll(p.persistedVisible)
	default:
		p.setAll(p.persistedVisible)
		if p.visibleCount == 0 {
			p.setCategory(keys.Channel, true)
		}
		if p.visibleCount == 0 && p.Len(keys.Channel) == 0 {
			p.setAll(func(keys.Category, int) bool { return true })
		}
	}
	p.resetting--
	p.b.logger.Debug("browser: visibility reset",
		slog.Int("container", p.dataNo), slog.String("mode", mode.String()), slog.Int("visible", p.visibleCount))
	if finalize && p.resetting == 0 {
		p.maybeFinalize()
	}
	return p.visibleCount > 0
}

func (p *Proxy) persistedVisible(c keys.Category, id int) bool {
	return store.GetBool(p.store, keys.VisibleKey(c, id))
}

func (p *Proxy) setAll(want func(c keys.Category, id int) bool) {
	for _, c := range keys.Categories {
		for _, id := range p.IDs(c) {
			p.setByID(c, id, want(c, id))
		}
	}
}

func (p *Proxy) setCategory(c keys.Category, visible bool) {
	for _, id := range p.IDs(c) {
		p.setByID(c, id, visible)
	}
}

// setByID re-looks-up the entry, since a previous view callback may have
// removed it.
func (p *Proxy) setByID(c keys.Category, id int, visible bool) {
	e, ok := p.find(c, id)
	if !ok {
		return
	}
	if _, err := p.setVisible(c, e, visible); err != nil {
		p.b.logger.Warn("browser: visibility reset failed",
			slog.Int("container", p.dataNo), slog.String("category", c.String()), slog.Int("id", id),
			slog.String("error", err.Error()))
	}
}
