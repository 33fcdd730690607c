// Package sse streams browser changes to clients as Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"sync/atomic"
	"time"
)

// Event types published by the server.
const (
	TypeObjectAdded    = "object.added"
	TypeObjectChanged  = "object.changed"
	TypeObjectRemoved  = "object.removed"
	TypeViewOpened     = "view.opened"
	TypeViewClosed     = "view.closed"
	TypeBrowserUpdated = "browser.updated"
	TypeFileChanged    = "file.changed"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Updated is the payload of browser.updated: the containers whose objects
// changed since the previous one.
type Updated struct {
	Containers []int `json:"containers"`
}

type objectChange struct {
	kind      string
	container int
	data      any
}

// Broker manages SSE client connections and broadcasts events.
//
// A single goroutine owns the client set, the event sequence and the set of
// containers waiting for a browser.updated. Public methods talk to it over
// channels.
type Broker struct {
	throttle time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	changeCh      chan objectChange
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that announces changed containers with
// browser.updated at most once per throttle interval.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		throttle:      throttle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		changeCh:      make(chan objectChange, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// frame renders one event in wire format. seq becomes the SSE id.
func frame(seq uint64, event Event) ([]byte, error) {
	payload, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("sse: encode %s: %w", event.Type, err)
	}
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload), nil
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	dirty := make(map[int]struct{})
	var seq uint64

	// The flush timer is armed by the first change after a flush and never
	// reset by later ones, so a steady stream still gets announced.
	flush := time.NewTimer(b.throttle)
	flush.Stop()
	armed := false

	broadcast := func(event Event) {
		raw, err := frame(seq+1, event)
		if err != nil {
			return
		}
		seq++
		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; the next browser.updated lets it resync.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			flush.Stop()
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case c := <-b.changeCh:
			broadcast(Event{Type: "object." + c.kind, Data: c.data})
			dirty[c.container] = struct{}{}
			if !armed {
				flush.Reset(b.throttle)
				armed = true
			}

		case <-flush.C:
			armed = false
			if len(dirty) == 0 {
				continue
			}
			containers := slices.Sorted(maps.Keys(dirty))
			clear(dirty)
			broadcast(Event{Type: TypeBrowserUpdated, Data: Updated{Containers: containers}})

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker loop and closes all client channels. Containers
// still waiting for browser.updated are dropped.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishObjectEvent publishes object.<kind> at once and marks container for
// the next browser.updated. kind is "added", "changed" or "removed".
func (b *Broker) PublishObjectEvent(kind string, container int, data any) {
	if b.closed.Load() {
		return
	}
	select {
	case b.changeCh <- objectChange{kind: kind, container: container, data: data}:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	// Reconnecting clients wait one throttle interval before retrying.
	_, _ = fmt.Fprintf(w, "retry: %d\n\n", b.throttle.Milliseconds())
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
