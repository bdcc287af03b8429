// Package safemap provides a type-safe, concurrent map built on sync.Map.
// The server uses it to hold the live session set, which is read by every
// broadcast while the accept loop and disconnect paths mutate it.
package safemap

import "sync"

// SafeMap is a concurrent map that is safe for use by multiple goroutines.
// It wraps sync.Map and exposes a generic, type-safe API. Keys must be
// comparable; values may be any type.
//
// SafeMap must not be copied after first use. Store and Load operations
// are amortized O(1). Len and Range are O(n) in the number of entries.
type SafeMap[K comparable, V any] struct {
	m sync.Map
}

// NewSafeMap returns a new empty SafeMap ready for concurrent use.
func NewSafeMap[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{}
}

// Store sets the value for key k, overwriting any existing value.
func (m *SafeMap[K, V]) Store(k K, v V) {
	m.m.Store(k, v)
}

// Load returns the value for key k and whether the key was present.
// If the key is absent the value is the zero value for V.
func (m *SafeMap[K, V]) Load(k K) (V, bool) {
	v, found := m.m.Load(k)
	if !found {
		var empty V
		return empty, found
	}

	return v.(V), found
}

// Delete removes the entry for key k. Deleting an absent key is a no-op.
func (m *SafeMap[K, V]) Delete(k K) {
	m.m.Delete(k)
}

// Range calls f sequentially for each key and value present in the map.
// If f returns false, Range stops the iteration. The behavior is undefined
// if the map is modified from within f.
func (m *SafeMap[K, V]) Range(f func(k K, v V) bool) {
	m.m.Range(func(k, v interface{}) bool {
		return f(k.(K), v.(V))
	})
}

// Has reports whether key k is present in the map.
func (m *SafeMap[K, V]) Has(k K) bool {
	_, found := m.Load(k)
	return found
}

// Len returns the number of entries in the map. It iterates over all entries
// to compute the count; use sparingly on large maps.
func (m *SafeMap[K, V]) Len() int {
	length := 0
	m.Range(func(k K, v V) bool {
		length++
		return true
	})

	return length
}
