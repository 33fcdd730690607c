package browser

import (
	"io"
	"log/slog"

	"github.com/starford/databrowser/internal/keys"
)

// finalizable is the destruction precondition: nothing visible and no request
// to keep the proxy around.
func (p *Proxy) finalizable() bool {
	return !p.finalized && p.visibleCount == 0 && !p.keepInvisible
}

// FinalizePending reports whether a deferred finalize is queued.
func (p *Proxy) FinalizePending() bool {
	return p.finalizeTask != nil && p.finalizeTask.Pending()
}

// maybeFinalize releases what the proxy owns beyond its registries and queues
// the deferred finalize. Destruction never happens here: the caller may be a
// store notification handler that is still iterating.
func (p *Proxy) maybeFinalize() {
	if !p.finalizable() {
		return
	}
	p.clearAssociations()
	p.dormant = true
	if p.FinalizePending() {
		return
	}
	p.finalizeTask = p.b.sched.Schedule(p.finalize)
	p.b.logger.Debug("browser: finalize scheduled", slog.Int("container", p.dataNo))
}

// finalize runs on a later loop turn. The precondition is checked again; a
// view opened in the meantime cancels the destruction.
func (p *Proxy) finalize() {
	if !p.finalizable() {
		p.b.logger.Debug("browser: finalize aborted",
			slog.Int("container", p.dataNo), slog.Int("visible", p.visibleCount), slog.Bool("keep", p.keepInvisible))
		p.wake()
		return
	}
	p.finalized = true
	if p.unsubscribe != nil {
		p.unsubscribe()
		p.unsubscribe = nil
	}
	for _, c := range keys.Categories {
		for _, id := range p.IDs(c) {
			e, ok := p.find(c, id)
			if !ok {
				continue
			}
			if e.view != nil {
				v := e.view
				e.view = nil
				p.visibleCount--
				p.b.views.DestroyView(v)
			}
			p.drop(c, e)
			p.b.notify(p, c, id, Removed)
		}
	}
	p.clearAssociations()
	p.b.unregister(p)

	if closer, ok := p.store.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			p.b.logger.Warn("browser: close store", slog.Int("container", p.dataNo), slog.String("error", err.Error()))
		}
	}
	p.b.logger.Info("browser: finalized", slog.Int("container", p.dataNo))
	p.store = nil
}
