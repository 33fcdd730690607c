package browser

import (
	"fmt"
	"path"

	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/models"
	"github.com/starford/databrowser/internal/store"
)

// Untitled is the title of objects that have none.
const Untitled = "Untitled"

func defaultTitle(s store.Store, c keys.Category, id int) string {
	if title := store.GetString(s, keys.TitleKey(c, id)); title != "" {
		return title
	}
	if v, ok := s.Get(keys.PrimaryKey(c, id)); ok {
		if title := models.Title(v); title != "" {
			return title
		}
	}
	return Untitled
}

// Title resolves the display title of object id.
func (p *Proxy) Title(c keys.Category, id int) string {
	if p.store == nil {
		return ""
	}
	return p.b.titles(p.store, c, id)
}

// FindByTitle returns the ids of category c whose title matches the glob
// pattern, in ascending order. An empty pattern matches everything.
func (p *Proxy) FindByTitle(c keys.Category, pattern string) ([]int, error) {
	ids := p.IDs(c)
	if pattern == "" {
		return ids, nil
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("browser: title pattern %q: %w", pattern, err)
	}
	matched := make([]int, 0, len(ids))
	for _, id := range ids {
		if ok, _ := path.Match(pattern, p.Title(c, id)); ok {
			matched = append(matched, id)
		}
	}
	return matched, nil
}

// TitleOf resolves a title for an object of store s without touching the
// proxy order. Watchers use it with WatchEvent.Store.
func (b *Browser) TitleOf(s store.Store, c keys.Category, id int) string {
	if s == nil {
		return ""
	}
	return b.titles(s, c, id)
}
