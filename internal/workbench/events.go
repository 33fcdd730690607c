package workbench

import (
	"github.com/starford/databrowser/internal/browser"
	"github.com/starford/databrowser/internal/keys"
)

// ObjectPublisher receives object events, e.g. the SSE broker.
type ObjectPublisher interface {
	PublishObjectEvent(kind string, container int, data any)
}

// ObjectEvent is the payload of object.* events.
type ObjectEvent struct {
	Container int    `json:"container"`
	Category  string `json:"category"`
	ID        int    `json:"id"`
	Title     string `json:"title,omitempty"`
}

// Forward registers watchers on every category that publish browser events.
// It must be called on the loop. The returned function removes the watchers.
func Forward(b *browser.Browser, pub ObjectPublisher) (func(), error) {
	ids := make(map[keys.Category]int, keys.NCategories)
	stop := func() {
		for c, id := range ids {
			_ = b.RemoveWatch(c, id)
		}
	}
	for _, c := range keys.Categories {
		id, err := b.AddWatch(c, func(ev browser.WatchEvent, _ any) {
			data := ObjectEvent{Container: ev.Container, Category: ev.Category.String(), ID: ev.ID}
			if ev.Kind != browser.Removed {
				data.Title = b.TitleOf(ev.Store, ev.Category, ev.ID)
			}
			pub.PublishObjectEvent(ev.Kind.String(), ev.Container, data)
		}, nil)
		if err != nil {
			stop()
			return nil, err
		}
		ids[c] = id
	}
	return stop, nil
}
