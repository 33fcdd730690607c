// Package store defines the generic hierarchical key/value store mirrored by
// the data browser, and an in-memory implementation.
//
// Keys are slash-separated paths such as "/0/data". A prefix p addresses the
// key p itself and every key below "p/".
package store

import "strings"

// ChangeFunc is called with the key whose value was set or removed. The new
// value, if any, is read back with Get.
type ChangeFunc func(key string)

// Store is a keyed store with change notification. Implementations used as
// browser registrations must be comparable (pointer types).
type Store interface {
	// Get returns the value under key.
	Get(key string) (any, bool)
	// Set stores v under key and notifies subscribers.
	Set(key string, v any)
	// Remove deletes key and notifies subscribers. It reports whether the key
	// existed.
	Remove(key string) bool
	// RemovePrefix deletes every key under prefix and returns how many were
	// removed.
	RemovePrefix(prefix string) int
	// Iterate calls fn for every key under prefix in ascending key order. An
	// empty prefix iterates everything.
	Iterate(prefix string, fn func(key string, v any))
	// Subscribe registers fn for change notifications and returns a function
	// that cancels the subscription.
	Subscribe(fn ChangeFunc) (cancel func())
}

// HasPrefix reports whether key lies under prefix.
func HasPrefix(key, prefix string) bool {
	if prefix == "" || prefix == "/" {
		return true
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return key == prefix || strings.HasPrefix(key, prefix+"/")
}

// GetString returns the string under key, or "" when missing or not a string.
func GetString(s Store, key string) string {
	v, ok := s.Get(key)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// GetBool returns the boolean under key. Missing or non-boolean values read
// as false.
func GetBool(s Store, key string) bool {
	v, ok := s.Get(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}
