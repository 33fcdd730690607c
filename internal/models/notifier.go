package models

// Observable is implemented by payloads that announce in-place changes.
type Observable interface {
	// Observe registers fn to be called after every change and returns a
	// function that cancels the registration.
	Observe(fn func()) (cancel func())
}

// Notifier is embedded in payload types to make them Observable. The zero
// value is ready to use. It is not safe for concurrent use.
type Notifier struct {
	next      int
	observers map[int]func()
	order     []int
}

// Observe implements Observable.
func (n *Notifier) Observe(fn func()) func() {
	if n.observers == nil {
		n.observers = make(map[int]func())
	}
	id := n.next
	n.next++
	n.observers[id] = fn
	n.order = append(n.order, id)
	return func() {
		if _, ok := n.observers[id]; !ok {
			return
		}
		delete(n.observers, id)
		for i, v := range n.order {
			if v == id {
				n.order = append(n.order[:i], n.order[i+1:]...)
				break
			}
		}
	}
}

// Changed notifies observers in registration order. Observers added during
// the call are first notified by the next call.
func (n *Notifier) Changed() {
	ids := append([]int(nil), n.order...)
	for _, id := range ids {
		if fn, ok := n.observers[id]; ok {
			fn()
		}
	}
}

// Observers returns the number of live registrations.
func (n *Notifier) Observers() int {
	return len(n.observers)
}
