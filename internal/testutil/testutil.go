// Package testutil provides shared test helpers for data directories,
// catalogs and a running loop.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/databrowser/internal/catalog"
	"github.com/starford/databrowser/internal/loop"
	"github.com/starford/databrowser/internal/storage"
)

// TestDB creates a temporary catalog database that is automatically cleaned up.
func TestDB(t *testing.T) *catalog.DB {
	t.Helper()
	db, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDataDir creates a temporary data directory with a storage.Provider.
func TestDataDir(t *testing.T) (string, storage.Provider) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, files
}

// WriteFile writes a file under dir, creating parent directories.
func WriteFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// RunLoop starts a loop in the background and stops it when the test ends.
func RunLoop(t *testing.T) (*loop.Loop, context.Context) {
	t.Helper()
	lp := loop.New(loop.WithLogger(Logger()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = lp.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return lp, ctx
}

// Channels is a container file with two channels and a graph.
const Channels = `items:
  - key: /0/data
    type: datafield
    value: {xres: 2, yres: 1, data: [0, 1]}
  - key: /0/data/title
    type: string
    value: Topography
  - key: /1/data
    type: datafield
    value: {xres: 2, yres: 1, data: [2, 3]}
  - key: /1/data/title
    type: string
    value: Friction
  - key: /0/graph/graph/1
    type: graph
    value:
      title: Profile
      curves:
        - {x: [0, 1], y: [1, 0]}
`
