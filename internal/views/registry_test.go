package views

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/databrowser/internal/browser"
	"github.com/starford/databrowser/internal/keys"
	"github.com/starford/databrowser/internal/loop"
	"github.com/starford/databrowser/internal/models"
	"github.com/starford/databrowser/internal/sse"
	"github.com/starford/databrowser/internal/store"
)

type recorder struct{ events []sse.Event }

func (r *recorder) Publish(ev sse.Event) { r.events = append(r.events, ev) }

func (r *recorder) types() []string {
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRegistry_OpenClose(t *testing.T) {
	rec := &recorder{}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(WithPublisher(rec), WithLogger(quiet()), WithClock(func() time.Time { return at }))

	ref := browser.Ref{Container: 1, Category: keys.Channel, ID: 3}
	a, err := r.CreateView(ref)
	require.NoError(t, err)
	b, err := r.CreateView(browser.Ref{Container: 1, Category: keys.Graph, ID: 1})
	require.NoError(t, err)

	open := r.Open()
	require.Len(t, open, 2)
	assert.Equal(t, 1, open[0].Handle)
	assert.Equal(t, ref, open[0].Ref)
	assert.Equal(t, at, open[0].OpenedAt)
	assert.Equal(t, 2, open[1].Handle)

	r.DestroyView(a)
	r.DestroyView(a)
	assert.Equal(t, 1, r.Len())

	r.DestroyView(b)
	r.DestroyView("not a view")
	assert.Zero(t, r.Len())

	assert.Equal(t, []string{
		sse.TypeViewOpened, sse.TypeViewOpened, sse.TypeViewClosed, sse.TypeViewClosed,
	}, rec.types())
}

func TestRegistry_Limit(t *testing.T) {
	r := NewRegistry(WithLimit(1), WithLogger(quiet()))

	v, err := r.CreateView(browser.Ref{Container: 1, ID: 0})
	require.NoError(t, err)
	_, err = r.CreateView(browser.Ref{Container: 1, ID: 1})
	assert.ErrorIs(t, err, ErrLimit)

	r.DestroyView(v)
	_, err = r.CreateView(browser.Ref{Container: 1, ID: 1})
	assert.NoError(t, err)
}

func TestRegistry_DrivenByBrowser(t *testing.T) {
	rec := &recorder{}
	r := NewRegistry(WithPublisher(rec), WithLogger(quiet()))
	lp := loop.New(loop.WithLogger(quiet()))
	b := browser.New(lp, r, browser.WithLogger(quiet()))

	s := store.NewMemoryFrom(map[string]any{
		"/0/data": models.NewDataField(2, 2, 1, 1),
		"/1/data": models.NewDataField(2, 2, 1, 1),
	})
	p, err := b.Register(s)
	require.NoError(t, err)

	require.True(t, p.ResetVisibility(browser.ResetShowAll))
	assert.Equal(t, 2, r.Len())

	require.NoError(t, b.Close(s))
	assert.Zero(t, r.Len())
	lp.Pump()
	assert.True(t, p.Finalized())
	assert.Equal(t, []string{
		sse.TypeViewOpened, sse.TypeViewOpened, sse.TypeViewClosed, sse.TypeViewClosed,
	}, rec.types())
}
