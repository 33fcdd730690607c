// Package workbench exposes the browser to the HTTP and MCP surfaces. Every
// browser access is marshalled onto the loop goroutine.
package workbench

import (
	"context"
	"fmt"

	"github.com/starford/databrowser/internal/apperr"
	"github.com/starford/databrowser/internal/browser"
	"github.com/starford/databrowser/internal/catalog"
	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/loop"
	"github.com/starford/databrowser/internal/views"
	"github.com/starford/databrowser/internal/workspace"
)

// ContainerInfo is the summary of one registered container.
type ContainerInfo struct {
	Number        int            `json:"number"`
	Filename      string         `json:"filename,omitempty"`
	UntitledNo    int            `json:"untitled_no,omitempty"`
	VisibleCount  int            `json:"visible_count"`
	KeepInvisible bool           `json:"keep_invisible"`
	Current       bool           `json:"current"`
	Objects       map[string]int `json:"objects"`
}

// ObjectItem describes one object.
type ObjectItem struct {
	Container int    `json:"container"`
	Category  string `json:"category"`
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Key       string `json:"key"`
	Visible   bool   `json:"visible"`
}

// Service coordinates the loop, browser, workspace and catalog.
type Service struct {
	loop    *loop.Loop
	browser *browser.Browser
	ws      *workspace.Workspace
	catalog catalog.Catalog
	views   *views.Registry
}

// NewService creates a new workbench service. ws, cat and vr may be nil;
// the operations that need them then report apperr.ErrNotFound.
func NewService(lp *loop.Loop, b *browser.Browser, ws *workspace.Workspace, cat catalog.Catalog, vr *views.Registry) *Service {
	return &Service{loop: lp, browser: b, ws: ws, catalog: cat, views: vr}
}

func (s *Service) call(ctx context.Context, fn func() error) error {
	return s.loop.Call(ctx, fn)
}

func (s *Service) proxy(no int) (*browser.Proxy, error) {
	p, ok := s.browser.ByNumber(no)
	if !ok {
		return nil, fmt.Errorf("workbench: container %d: %w", no, apperr.ErrNotFound)
	}
	return p, nil
}

func (s *Service) info(p *browser.Proxy) ContainerInfo {
	cur, _ := s.browser.Current()
	ci := ContainerInfo{
		Number:        p.DataNo(),
		Filename:      p.Filename(),
		VisibleCount:  p.VisibleCount(),
		KeepInvisible: p.KeepInvisible(),
		Current:       cur == p,
		Objects:       make(map[string]int, keys.NCategories),
	}
	if ci.Filename == "" {
		ci.UntitledNo = p.UntitledNo()
	}
	for _, c := range keys.Categories {
		if n := p.Len(c); n > 0 {
			ci.Objects[c.String()] = n
		}
	}
	return ci
}

func item(p *browser.Proxy, c keys.Category, id int) ObjectItem {
	return ObjectItem{
		Container: p.DataNo(),
		Category:  c.String(),
		ID:        id,
		Title:     p.Title(c, id),
		Key:       keys.PrimaryKey(c, id),
		Visible:   p.Visible(c, id),
	}
}

// ListContainers returns every registered container, most recently used
// first.
func (s *Service) ListContainers(ctx context.Context) ([]ContainerInfo, error) {
	var out []ContainerInfo
	err := s.call(ctx, func() error {
		proxies := s.browser.Proxies()
		out = make([]ContainerInfo, len(proxies))
		for i, p := range proxies {
			out[i] = s.info(p)
		}
		return nil
	})
	return out, err
}

// ListObjects returns the objects of category c in container no whose title
// matches the glob pattern. An empty pattern matches everything.
func (s *Service) ListObjects(ctx context.Context, no int, c keys.Category, pattern string) ([]ObjectItem, error) {
	var out []ObjectItem
	err := s.call(ctx, func() error {
		p, err := s.proxy(no)
		if err != nil {
			return err
		}
		ids, err := p.FindByTitle(c, pattern)
		if err != nil {
			return err
		}
		out = make([]ObjectItem, len(ids))
		for i, id := range ids {
			out[i] = item(p, c, id)
		}
		return nil
	})
	return out, err
}

// SetKeep sets the keep-invisible flag of container no.
func (s *Service) SetKeep(ctx context.Context, no int, keep bool) (*ContainerInfo, error) {
	var out ContainerInfo
	err := s.call(ctx, func() error {
		p, err := s.proxy(no)
		if err != nil {
			return err
		}
		p.SetKeepInvisible(keep)
		out = s.info(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetVisible shows or hides one object.
func (s *Service) SetVisible(ctx context.Context, no int, c keys.Category, id int, visible bool) (*ObjectItem, error) {
	var out ObjectItem
	err := s.call(ctx, func() error {
		p, err := s.proxy(no)
		if err != nil {
			return err
		}
		if _, err := p.SetVisible(c, id, visible); err != nil {
			return err
		}
		out = item(p, c, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetVisibility applies mode to container no.
func (s *Service) ResetVisibility(ctx context.Context, no int, mode browser.ResetMode) (*ContainerInfo, error) {
	var out ContainerInfo
	err := s.call(ctx, func() error {
		p, err := s.proxy(no)
		if err != nil {
			return err
		}
		p.ResetVisibility(mode)
		out = s.info(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Current returns the selected object of category c.
func (s *Service) Current(ctx context.Context, c keys.Category) (*ObjectItem, error) {
	var out ObjectItem
	err := s.call(ctx, func() error {
		cur, ok := s.browser.CurrentObject(c)
		if !ok {
			return fmt.Errorf("workbench: current %s: %w", c, apperr.ErrNotFound)
		}
		p, ok := s.browser.Current()
		if !ok {
			return fmt.Errorf("workbench: current %s: %w", c, apperr.ErrNotFound)
		}
		out = item(p, cur.Category, cur.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Select makes object id current.
func (s *Service) Select(ctx context.Context, no int, c keys.Category, id int) error {
	return s.call(ctx, func() error {
		p, err := s.proxy(no)
		if err != nil {
			return err
		}
		return s.browser.Select(p.Store(), c, id)
	})
}

// Search delegates title search to the catalog.
func (s *Service) Search(_ context.Context, query string, limit int) ([]catalog.SearchResult, error) {
	if s.catalog == nil {
		return nil, fmt.Errorf("workbench: search: catalog disabled: %w", apperr.ErrNotFound)
	}
	return s.catalog.Search(query, limit)
}

// Save writes container no back to its file.
func (s *Service) Save(ctx context.Context, no int) (string, error) {
	if s.ws == nil {
		return "", fmt.Errorf("workbench: save: no workspace: %w", apperr.ErrNotFound)
	}
	return s.ws.Save(ctx, no)
}

// Delete removes the file of container no and closes it. The container is
// finalized on a later loop turn.
func (s *Service) Delete(ctx context.Context, no int) (string, error) {
	if s.ws == nil {
		return "", fmt.Errorf("workbench: delete: no workspace: %w", apperr.ErrNotFound)
	}
	return s.ws.Delete(ctx, no)
}

// Views returns the open views.
func (s *Service) Views() []views.View {
	if s.views == nil {
		return nil
	}
	return s.views.Open()
}

// Import writes data to a new container file at path and registers it.
func (s *Service) Import(ctx context.Context, path string, data []byte) (*ContainerInfo, error) {
	if s.ws == nil {
		return nil, fmt.Errorf("workbench: import: no workspace: %w", apperr.ErrNotFound)
	}
	if err := s.ws.Import(ctx, path, data); err != nil {
		return nil, err
	}
	var out ContainerInfo
	err := s.call(ctx, func() error {
		no, ok := s.ws.Number(path)
		if !ok {
			return fmt.Errorf("workbench: import %s: %w", path, apperr.ErrNotFound)
		}
		p, err := s.proxy(no)
		if err != nil {
			return err
		}
		out = s.info(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
