package catalog

import (
	"log/slog"
	"time"

	"github.com/starford/databrowser/internal/browser"
	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/store"
)

// Feed registers a watcher on every category that mirrors browser events
// into db: added and changed objects are upserted with their resolved title,
// removed ones deleted. It must be called on the loop. The returned function
// removes the watchers.
func Feed(b *browser.Browser, db Catalog, logger *slog.Logger) (func(), error) {
	ids := make(map[keys.Category]int, keys.NCategories)
	stop := func() {
		for c, id := range ids {
			_ = b.RemoveWatch(c, id)
		}
	}
	for _, c := range keys.Categories {
		id, err := b.AddWatch(c, func(ev browser.WatchEvent, _ any) {
			if err := apply(b, db, ev); err != nil {
				logger.Warn("catalog: feed failed",
					slog.Int("container", ev.Container),
					slog.String("category", ev.Category.String()),
					slog.Int("id", ev.ID),
					slog.String("error", err.Error()))
			}
		}, nil)
		if err != nil {
			stop()
			return nil, err
		}
		ids[c] = id
	}
	return stop, nil
}

func apply(b *browser.Browser, db Catalog, ev browser.WatchEvent) error {
	category := ev.Category.String()
	if ev.Kind == browser.Removed {
		return db.Delete(ev.Container, category, ev.ID)
	}
	return db.Upsert(Row{
		Container: ev.Container,
		Category:  category,
		ID:        ev.ID,
		Title:     b.TitleOf(ev.Store, ev.Category, ev.ID),
		Key:       keys.PrimaryKey(ev.Category, ev.ID),
		File:      store.GetString(ev.Store, keys.Filename),
		UpdatedAt: time.Now().UTC(),
	})
}
