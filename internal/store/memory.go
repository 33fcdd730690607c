package store

import (
	"slices"
	"sort"
)

type subscriber struct {
	id int
	fn ChangeFunc
}

// Memory is a map-backed Store. Notifications are delivered synchronously on
// the mutating goroutine, and a subscriber may mutate the store from inside
// its callback; the nested notification is delivered before the outer call
// returns. Memory is not safe for concurrent use.
type Memory struct {
	items  map[string]any
	subs   []subscriber
	nextID int
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]any)}
}

// NewMemoryFrom creates a store pre-populated with items, without notifying.
func NewMemoryFrom(items map[string]any) *Memory {
	m := NewMemory()
	for k, v := range items {
		m.items[k] = v
	}
	return m
}

// Get implements Store.
func (m *Memory) Get(key string) (any, bool) {
	v, ok := m.items[key]
	return v, ok
}

// Set implements Store.
func (m *Memory) Set(key string, v any) {
	m.items[key] = v
	m.notify(key)
}

// Remove implements Store.
func (m *Memory) Remove(key string) bool {
	if _, ok := m.items[key]; !ok {
		return false
	}
	delete(m.items, key)
	m.notify(key)
	return true
}

// RemovePrefix implements Store. Keys are removed in ascending order, each
// with its own notification.
func (m *Memory) RemovePrefix(prefix string) int {
	matched := m.keys(prefix)
	n := 0
	for _, k := range matched {
		if m.Remove(k) {
			n++
		}
	}
	return n
}

// Iterate implements Store. The key set is captured before the first call, so
// fn may mutate the store; removed keys are skipped.
func (m *Memory) Iterate(prefix string, fn func(key string, v any)) {
	for _, k := range m.keys(prefix) {
		if v, ok := m.items[k]; ok {
			fn(k, v)
		}
	}
}

// Subscribe implements Store.
func (m *Memory) Subscribe(fn ChangeFunc) func() {
	id := m.nextID
	m.nextID++
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	return func() {
		m.subs = slices.DeleteFunc(m.subs, func(s subscriber) bool { return s.id == id })
	}
}

// Len returns the number of keys.
func (m *Memory) Len() int {
	return len(m.items)
}

// Subscribers returns the number of live subscriptions.
func (m *Memory) Subscribers() int {
	return len(m.subs)
}

// Keys returns every key under prefix in ascending order.
func (m *Memory) Keys(prefix string) []string {
	return m.keys(prefix)
}

func (m *Memory) keys(prefix string) []string {
	out := make([]string, 0, len(m.items))
	for k := range m.items {
		if HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// notify delivers to a snapshot of the subscriber list. A subscriber cancelled
// by an earlier callback in the same round is not called.
func (m *Memory) notify(key string) {
	snapshot := slices.Clone(m.subs)
	for _, s := range snapshot {
		if !m.subscribed(s.id) {
			continue
		}
		s.fn(key)
	}
}

func (m *Memory) subscribed(id int) bool {
	for _, s := range m.subs {
		if s.id == id {
			return true
		}
	}
	return false
}
