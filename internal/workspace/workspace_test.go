package workspace

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/databrowser/internal/apperr"
	"github.com/starford/databrowser/internal/browser"
	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/loop"
	"github.com/starford/databrowser/internal/storage"
)

type nopViews struct{ n int }

func (v *nopViews) CreateView(browser.Ref) (browser.View, error) {
	v.n++
	return v.n, nil
}

func (v *nopViews) DestroyView(browser.View) {}

// flakyFiles fails the next n writes.
type flakyFiles struct {
	storage.Provider
	mu       sync.Mutex
	failures int
}

func (f *flakyFiles) Write(path string, content []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("disk full")
	}
	return f.Provider.Write(path, content)
}

type env struct {
	dir  string
	lp   *loop.Loop
	b    *browser.Browser
	ws   *Workspace
	ctx  context.Context
	mu   sync.Mutex
	seen []string
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	return newEnvWith(t, nil, opts...)
}

// newEnvWith lets a test wrap the file provider the workspace sees.
func newEnvWith(t *testing.T, wrap func(storage.Provider) storage.Provider, opts ...Option) *env {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	require.NoError(t, err)
	var files storage.Provider = fs
	if wrap != nil {
		files = wrap(fs)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lp := loop.New(loop.WithLogger(logger))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = lp.Run(ctx) }()

	b := browser.New(lp, &nopViews{}, browser.WithLogger(logger))
	opts = append([]Option{WithLogger(logger)}, opts...)
	e := &env{dir: dir, lp: lp, b: b, ws: New(files, lp, b, opts...), ctx: ctx}

	// Watch every category from the loop so the log reflects store traffic.
	require.NoError(t, lp.Call(ctx, func() error {
		for _, c := range keys.Categories {
			if _, err := b.AddWatch(c, func(ev browser.WatchEvent, _ any) {
				e.mu.Lock()
				e.seen = append(e.seen, ev.Kind.String()+" "+ev.Category.String())
				e.mu.Unlock()
			}, nil); err != nil {
				return err
			}
		}
		return nil
	}))
	return e
}

func (e *env) write(t *testing.T, name, doc string) {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
}

func (e *env) events() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.seen...)
}

func (e *env) resetEvents() {
	e.mu.Lock()
	e.seen = nil
	e.mu.Unlock()
}

// onLoop runs fn on the loop goroutine.
func (e *env) onLoop(t *testing.T, fn func()) {
	t.Helper()
	require.NoError(t, e.lp.Call(e.ctx, func() error {
		fn()
		return nil
	}))
}

func (e *env) proxy(t *testing.T, filename string) *browser.Proxy {
	t.Helper()
	var found *browser.Proxy
	e.onLoop(t, func() {
		for _, p := range e.b.Proxies() {
			if p.Filename() == filename {
				found = p
			}
		}
	})
	return found
}

const twoChannels = `items:
  - key: /0/data
    type: datafield
    value: {xres: 1, yres: 1, data: [1]}
  - key: /0/data/title
    type: string
    value: Height
  - key: /1/data
    type: datafield
    value: {xres: 1, yres: 1, data: [2]}
`

func TestSync_LoadReloadUnload(t *testing.T) {
	e := newEnv(t)
	e.write(t, "scan.yaml", channelDoc)

	require.NoError(t, e.ws.Sync(e.ctx))

	p := e.proxy(t, "scan.yaml")
	require.NotNil(t, p)
	e.onLoop(t, func() {
		assert.Equal(t, []int{0}, p.IDs(keys.Channel))
		assert.Equal(t, []int{1}, p.IDs(keys.Graph))
		assert.Equal(t, "Topography", p.Title(keys.Channel, 0))
		assert.Equal(t, []string{"scan.yaml"}, e.ws.Paths())
	})
	e.resetEvents()

	e.write(t, "scan.yaml", twoChannels)
	require.NoError(t, e.ws.Sync(e.ctx))

	e.onLoop(t, func() {
		assert.Equal(t, []int{0, 1}, p.IDs(keys.Channel))
		assert.Empty(t, p.IDs(keys.Graph))
		assert.Empty(t, p.IDs(keys.Volume))
		assert.Equal(t, "Height", p.Title(keys.Channel, 0))
	})
	assert.ElementsMatch(t, []string{
		"changed channel", // /0/base/min removed
		"removed graph",
		"removed volume",
		"changed channel", // payload replaced
		"changed channel", // title
		"added channel",
	}, e.events())

	require.NoError(t, os.Remove(filepath.Join(e.dir, "scan.yaml")))
	require.NoError(t, e.ws.Sync(e.ctx))

	assert.Eventually(t, func() bool {
		var done bool
		e.onLoop(t, func() { done = p.Finalized() && len(e.b.Proxies()) == 0 })
		return done
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSync_UnchangedFileIsSkipped(t *testing.T) {
	e := newEnv(t)
	e.write(t, "a.yaml", twoChannels)
	require.NoError(t, e.ws.Sync(e.ctx))
	e.resetEvents()

	require.NoError(t, e.ws.Sync(e.ctx))
	require.NoError(t, e.ws.Load(e.ctx, "a.yaml"))

	assert.Empty(t, e.events())
}

func TestLoad_BadFileLeavesStoreAlone(t *testing.T) {
	e := newEnv(t)
	e.write(t, "a.yaml", twoChannels)
	require.NoError(t, e.ws.Sync(e.ctx))
	e.resetEvents()

	e.write(t, "a.yaml", "items:\n  - {key: /0/data, type: nonsense}\n")
	err := e.ws.Load(e.ctx, "a.yaml")
	assert.ErrorIs(t, err, ErrUnknownType)

	p := e.proxy(t, "a.yaml")
	require.NotNil(t, p)
	e.onLoop(t, func() {
		assert.Equal(t, []int{0, 1}, p.IDs(keys.Channel))
	})
	assert.Empty(t, e.events())
}

func TestLoad_RestoreVisibility(t *testing.T) {
	e := newEnv(t, WithRestoreVisibility(true))
	e.write(t, "scan.yaml", channelDoc)
	require.NoError(t, e.ws.Load(e.ctx, "scan.yaml"))

	p := e.proxy(t, "scan.yaml")
	require.NotNil(t, p)
	e.onLoop(t, func() {
		assert.True(t, p.Visible(keys.Channel, 0))
		assert.Equal(t, 1, p.VisibleCount())
	})
}

func TestSave(t *testing.T) {
	e := newEnv(t)
	e.write(t, "scan.yaml", twoChannels)
	require.NoError(t, e.ws.Sync(e.ctx))
	p := e.proxy(t, "scan.yaml")
	require.NotNil(t, p)

	var no int
	e.onLoop(t, func() {
		no = p.DataNo()
		p.Store().Set("/1/data/title", "Phase")
		_, err := p.SetVisible(keys.Channel, 1, true)
		require.NoError(t, err)
	})
	e.resetEvents()

	path, err := e.ws.Save(e.ctx, no)
	require.NoError(t, err)
	assert.Equal(t, "scan.yaml", path)

	raw, err := os.ReadFile(filepath.Join(e.dir, "scan.yaml"))
	require.NoError(t, err)
	entries, err := Decode(raw)
	require.NoError(t, err)
	values := make(map[string]any, len(entries))
	for _, en := range entries {
		values[en.Key] = en.Value
	}
	assert.Equal(t, "Phase", values["/1/data/title"])
	assert.Equal(t, true, values["/1/data/visible"])
	assert.NotContains(t, values, keys.Filename)

	// Reading our own write back is a no-op.
	require.NoError(t, e.ws.Load(e.ctx, "scan.yaml"))
	assert.Empty(t, e.events())

	_, err = e.ws.Save(e.ctx, 99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestSave_ChangedOnDisk(t *testing.T) {
	e := newEnv(t)
	e.write(t, "scan.yaml", twoChannels)
	require.NoError(t, e.ws.Sync(e.ctx))
	p := e.proxy(t, "scan.yaml")
	require.NotNil(t, p)

	var no int
	e.onLoop(t, func() { no = p.DataNo() })
	e.write(t, "scan.yaml", channelDoc)

	_, err := e.ws.Save(e.ctx, no)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	raw, err := os.ReadFile(filepath.Join(e.dir, "scan.yaml"))
	require.NoError(t, err)
	assert.Equal(t, channelDoc, string(raw))
}

func TestSave_FailedWriteCanBeRetried(t *testing.T) {
	flaky := &flakyFiles{}
	e := newEnvWith(t, func(p storage.Provider) storage.Provider {
		flaky.Provider = p
		return flaky
	})
	e.write(t, "scan.yaml", twoChannels)
	require.NoError(t, e.ws.Sync(e.ctx))
	p := e.proxy(t, "scan.yaml")
	require.NotNil(t, p)

	var no int
	e.onLoop(t, func() {
		no = p.DataNo()
		p.Store().Set("/1/data/title", "Phase")
	})

	flaky.mu.Lock()
	flaky.failures = 1
	flaky.mu.Unlock()
	_, err := e.ws.Save(e.ctx, no)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperr.ErrConflict)

	raw, err := os.ReadFile(filepath.Join(e.dir, "scan.yaml"))
	require.NoError(t, err)
	assert.Equal(t, twoChannels, string(raw))

	_, err = e.ws.Save(e.ctx, no)
	require.NoError(t, err)

	raw, err = os.ReadFile(filepath.Join(e.dir, "scan.yaml"))
	require.NoError(t, err)
	entries, err := Decode(raw)
	require.NoError(t, err)
	values := make(map[string]any, len(entries))
	for _, en := range entries {
		values[en.Key] = en.Value
	}
	assert.Equal(t, "Phase", values["/1/data/title"])

	// A second save sees its own bytes on disk.
	_, err = e.ws.Save(e.ctx, no)
	assert.NoError(t, err)
}

func TestImport(t *testing.T) {
	e := newEnv(t)

	require.NoError(t, e.ws.Import(e.ctx, "new/scan.yaml", []byte(channelDoc)))
	p := e.proxy(t, "new/scan.yaml")
	require.NotNil(t, p)
	e.onLoop(t, func() {
		no, ok := e.ws.Number("new/scan.yaml")
		assert.True(t, ok)
		assert.Equal(t, p.DataNo(), no)
	})

	err := e.ws.Import(e.ctx, "new/scan.yaml", []byte(channelDoc))
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	err = e.ws.Import(e.ctx, "bad.yaml", []byte("items: [{key: /0/data, type: picture, value: 1}]"))
	assert.ErrorIs(t, err, ErrUnknownType)
	_, statErr := os.Stat(filepath.Join(e.dir, "bad.yaml"))
	assert.True(t, os.IsNotExist(statErr))

	assert.Error(t, e.ws.Import(e.ctx, "notes.txt", []byte(channelDoc)))
}

func TestDelete(t *testing.T) {
	e := newEnv(t)
	e.write(t, "scan.yaml", twoChannels)
	require.NoError(t, e.ws.Sync(e.ctx))
	p := e.proxy(t, "scan.yaml")
	require.NotNil(t, p)

	var no int
	e.onLoop(t, func() { no = p.DataNo() })
	path, err := e.ws.Delete(e.ctx, no)
	require.NoError(t, err)
	assert.Equal(t, "scan.yaml", path)

	_, statErr := os.Stat(filepath.Join(e.dir, "scan.yaml"))
	assert.True(t, os.IsNotExist(statErr))
	assert.Eventually(t, func() bool { return e.proxy(t, "scan.yaml") == nil },
		2*time.Second, 20*time.Millisecond)

	_, err = e.ws.Delete(e.ctx, no)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUnload_Unknown(t *testing.T) {
	e := newEnv(t)
	assert.NoError(t, e.ws.Unload(e.ctx, "missing.yaml"))
}

func TestWatch(t *testing.T) {
	e := newEnv(t)

	var mu sync.Mutex
	var got []string
	go func() {
		_ = e.ws.Watch(e.ctx, e.dir, func(kind, path string) {
			mu.Lock()
			got = append(got, kind+":"+path)
			mu.Unlock()
		})
	}()
	time.Sleep(100 * time.Millisecond)

	e.write(t, "live.yaml", twoChannels)
	assert.Eventually(t, func() bool { return e.proxy(t, "live.yaml") != nil },
		5*time.Second, 50*time.Millisecond, "new file not loaded by watcher")

	require.NoError(t, os.MkdirAll(filepath.Join(e.dir, "day2"), 0o755))
	time.Sleep(100 * time.Millisecond)
	e.write(t, "day2/more.yaml", channelDoc)
	assert.Eventually(t, func() bool { return e.proxy(t, "day2/more.yaml") != nil },
		5*time.Second, 50*time.Millisecond, "file in new directory not loaded")

	require.NoError(t, os.Remove(filepath.Join(e.dir, "live.yaml")))
	assert.Eventually(t, func() bool { return e.proxy(t, "live.yaml") == nil },
		5*time.Second, 50*time.Millisecond, "removed file still registered")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return slices.Contains(got, "deleted:live.yaml")
	}, 2*time.Second, 20*time.Millisecond)
}
