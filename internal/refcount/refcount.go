// SPDX-License-Identifier: Unlicense OR MIT

// Package refcount counts users of shared native objects.
package refcount

import "sync"

// Map counts references per key. The zero Map is ready to use and safe
// for concurrent use.
type Map[K comparable] struct {
	mu   sync.Mutex
	refs map[K]int
}

// Acquire adds a reference to k after init succeeds. init runs for every
// reference, under the Map lock, so it never overlaps the fini of a
// concurrent Release.
func (m *Map[K]) Acquire(k K, init func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := init(); err != nil {
		return err
	}
	if m.refs == nil {
		m.refs = make(map[K]int)
	}
	m.refs[k]++
	return nil
}

// Release drops a reference to k and runs fini, under the Map lock, if
// it was the last one. It panics if k has no references.
func (m *Map[K]) Release(k K, fini func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.refs[k]
	switch n {
	case 0:
		panic("refcount: release without acquire")
	case 1:
		delete(m.refs, k)
		fini()
	default:
		m.refs[k] = n - 1
	}
}

// Count returns the number of references to k.
func (m *Map[K]) Count(k K) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs[k]
}
