package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/starford/databrowser/internal/apperr"
	"github.com/starford/databrowser/internal/browser"
	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/loop"
	"github.com/starford/databrowser/internal/storage"
	"github.com/starford/databrowser/internal/store"
)

// container is the loaded state of one file. It is owned by the loop
// goroutine, like everything the browser touches.
type container struct {
	path     string
	checksum string
	store    *store.Memory
	sums     map[string]string
}

// Workspace mirrors the container files of a data directory into browser
// registrations. File I/O and decoding run on the caller's goroutine; store
// and browser mutations are marshalled onto the loop.
type Workspace struct {
	files   storage.Provider
	loop    *loop.Loop
	browser *browser.Browser
	logger  *slog.Logger

	keepInvisible bool
	restore       bool

	containers map[string]*container
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workspace) { w.logger = l }
}

// WithKeepInvisible registers containers that survive with nothing visible.
func WithKeepInvisible(keep bool) Option {
	return func(w *Workspace) { w.keepInvisible = keep }
}

// WithRestoreVisibility opens the persisted views when a file is loaded.
func WithRestoreVisibility(restore bool) Option {
	return func(w *Workspace) { w.restore = restore }
}

// New creates a workspace over files. b must only be used from lp.
func New(files storage.Provider, lp *loop.Loop, b *browser.Browser, opts ...Option) *Workspace {
	w := &Workspace{
		files:         files,
		loop:          lp,
		browser:       b,
		logger:        slog.Default(),
		keepInvisible: true,
		containers:    make(map[string]*container),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Sync brings the registrations up to date with the data directory: new and
// changed files are loaded, files gone from disk are closed.
func (w *Workspace) Sync(ctx context.Context) error {
	metas, err := w.files.List("")
	if err != nil {
		return err
	}

	var known map[string]string
	if err := w.loop.Call(ctx, func() error {
		known = w.checksums()
		return nil
	}); err != nil {
		return fmt.Errorf("workspace: sync: %w", err)
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if known[m.Path] == m.Checksum {
			continue
		}
		if err := w.Load(ctx, m.Path); err != nil {
			w.logger.Warn("sync: load failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		}
	}

	for p := range known {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := w.Unload(ctx, p); err != nil {
			w.logger.Warn("sync: unload failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
	return nil
}

func (w *Workspace) checksums() map[string]string {
	out := make(map[string]string, len(w.containers))
	for p, c := range w.containers {
		out[p] = c.checksum
	}
	return out
}

// Load reads and decodes path and applies it to its store, registering the
// store on first load.
func (w *Workspace) Load(ctx context.Context, path string) error {
	data, err := w.files.Read(path)
	if err != nil {
		return err
	}
	entries, err := Decode(data)
	if err != nil {
		return fmt.Errorf("workspace: load %s: %w", path, err)
	}
	sum := storage.Checksum(data)
	return w.loop.Call(ctx, func() error {
		return w.apply(path, sum, entries)
	})
}

func (w *Workspace) apply(path, sum string, entries []Entry) error {
	c := w.containers[path]
	if c != nil && c.checksum == sum {
		return nil
	}
	if !slices.ContainsFunc(entries, func(e Entry) bool { return e.Key == keys.Filename }) {
		entries = append(entries, Entry{Key: keys.Filename, Value: path, Sum: storage.Checksum([]byte(path))})
	}

	if c != nil {
		if _, live := w.browser.Lookup(c.store); live {
			w.diff(c, entries)
			c.checksum = sum
			w.logger.Debug("workspace: reloaded", slog.String("path", path))
			return nil
		}
	}

	items := make(map[string]any, len(entries))
	sums := make(map[string]string, len(entries))
	for _, e := range entries {
		items[e.Key] = e.Value
		sums[e.Key] = e.Sum
	}
	s := store.NewMemoryFrom(items)
	p, err := w.browser.Register(s,
		browser.KeepInvisible(w.keepInvisible),
		browser.RestoreVisibility(w.restore))
	if err != nil {
		return fmt.Errorf("workspace: register %s: %w", path, err)
	}
	w.containers[path] = &container{path: path, checksum: sum, store: s, sums: sums}
	w.logger.Info("workspace: loaded",
		slog.String("path", path), slog.Int("container", p.DataNo()), slog.Int("keys", len(items)))
	return nil
}

// diff applies a reloaded file as individual store mutations, so the browser
// sees exactly the keys that changed.
func (w *Workspace) diff(c *container, entries []Entry) {
	next := make(map[string]string, len(entries))
	for _, e := range entries {
		next[e.Key] = e.Sum
	}
	for _, key := range slices.Sorted(maps.Keys(c.sums)) {
		if _, ok := next[key]; !ok {
			c.store.Remove(key)
		}
	}
	for _, e := range entries {
		if c.sums[e.Key] != e.Sum {
			c.store.Set(e.Key, e.Value)
		}
	}
	c.sums = next
}

// Unload closes the store loaded from path. The browser finalizes it on a
// later loop turn.
func (w *Workspace) Unload(ctx context.Context, path string) error {
	return w.loop.Call(ctx, func() error {
		c, ok := w.containers[path]
		if !ok {
			return nil
		}
		delete(w.containers, path)
		if _, live := w.browser.Lookup(c.store); !live {
			return nil
		}
		w.logger.Info("workspace: unloaded", slog.String("path", path))
		return w.browser.Close(c.store)
	})
}

// Save writes the current content of container no back to its file and
// returns the path. It fails with apperr.ErrConflict when the file changed on
// disk since it was last loaded.
func (w *Workspace) Save(ctx context.Context, no int) (string, error) {
	var path, loaded string
	err := w.loop.Call(ctx, func() error {
		c, err := w.byNumber(no)
		if err != nil {
			return err
		}
		path, loaded = c.path, c.checksum
		return nil
	})
	if err != nil {
		return "", err
	}
	if disk, err := w.files.Read(path); err == nil && storage.Checksum(disk) != loaded {
		return "", fmt.Errorf("workspace: save %s: changed on disk: %w", path, apperr.ErrConflict)
	}

	var data []byte
	var sums map[string]string
	err = w.loop.Call(ctx, func() error {
		c, err := w.byNumber(no)
		if err != nil {
			return err
		}
		items := make(map[string]any)
		c.store.Iterate("", func(key string, v any) {
			if key == keys.Filename && v == any(c.path) {
				return
			}
			items[key] = v
		})
		encoded, skipped, err := Encode(items)
		if err != nil {
			return err
		}
		if len(skipped) > 0 {
			w.logger.Warn("workspace: save skipped keys", slog.String("path", c.path), slog.Any("keys", skipped))
		}
		entries, err := Decode(encoded)
		if err != nil {
			return err
		}
		sums = make(map[string]string, len(entries))
		for _, e := range entries {
			sums[e.Key] = e.Sum
		}
		if _, ok := sums[keys.Filename]; !ok {
			sums[keys.Filename] = storage.Checksum([]byte(c.path))
		}
		data = encoded
		return nil
	})
	if err != nil {
		return "", err
	}
	if err := w.files.Write(path, data); err != nil {
		return "", fmt.Errorf("workspace: save %s: %w", path, err)
	}

	// The loaded state only moves once the bytes are on disk. The watcher sees
	// our own write; a matching checksum makes it a no-op.
	err = w.loop.Call(ctx, func() error {
		c, err := w.byNumber(no)
		if err != nil {
			return err
		}
		if c.path != path {
			return fmt.Errorf("workspace: save %s: container %d moved to %s: %w", path, no, c.path, apperr.ErrConflict)
		}
		c.sums = sums
		c.checksum = storage.Checksum(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func (w *Workspace) byNumber(no int) (*container, error) {
	p, ok := w.browser.ByNumber(no)
	if !ok {
		return nil, fmt.Errorf("workspace: container %d: %w", no, apperr.ErrNotFound)
	}
	c := w.byStore(p.Store())
	if c == nil {
		return nil, fmt.Errorf("workspace: container %d: no backing file: %w", no, apperr.ErrNotFound)
	}
	return c, nil
}

func (w *Workspace) byStore(s store.Store) *container {
	for _, c := range w.containers {
		if store.Store(c.store) == s {
			return c
		}
	}
	return nil
}

// Paths returns the loaded file paths. It must run on the loop.
func (w *Workspace) Paths() []string {
	return slices.Sorted(maps.Keys(w.containers))
}

// Import validates data as a container file, writes it to path and loads
// it. An existing file is never overwritten.
func (w *Workspace) Import(ctx context.Context, path string, data []byte) error {
	if !storage.IsContainerFile(path) {
		return fmt.Errorf("workspace: import %s: not a container file name", path)
	}
	if _, err := w.files.Read(path); err == nil {
		return fmt.Errorf("workspace: import %s: %w", path, apperr.ErrAlreadyExists)
	}
	if _, err := Decode(data); err != nil {
		return fmt.Errorf("workspace: import %s: %w", path, err)
	}
	if err := w.files.Write(path, data); err != nil {
		return err
	}
	return w.Load(ctx, path)
}

// Number returns the container number of the file at path. It must run on
// the loop.
func (w *Workspace) Number(path string) (int, bool) {
	c, ok := w.containers[path]
	if !ok {
		return 0, false
	}
	p, live := w.browser.Lookup(c.store)
	if !live {
		return 0, false
	}
	return p.DataNo(), true
}

// Delete removes the file backing container no and closes the container.
func (w *Workspace) Delete(ctx context.Context, no int) (string, error) {
	var path string
	if err := w.loop.Call(ctx, func() error {
		c, err := w.byNumber(no)
		if err != nil {
			return err
		}
		path = c.path
		return nil
	}); err != nil {
		return "", err
	}
	if err := w.files.Delete(path); err != nil {
		return "", err
	}
	return path, w.Unload(ctx, path)
}
