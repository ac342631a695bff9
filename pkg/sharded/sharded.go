// Package sharded provides a lock-sharded concurrent map keyed by string.
// Sharding spreads lock contention across independent mutexes so a worker
// pool can update disjoint keys without serializing on a single lock.
package sharded

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// numShards must be a power of 2 for the bitwise modulus below.
const numShards = 64

// shardIndex calculates the shard index for a given key using xxhash.
func shardIndex(key string) int {
	return int(xxhash.Sum64String(key) & (numShards - 1))
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// Map is a sharded concurrent map from string keys to values of type V.
// Per-key operations lock only the owning shard; concurrent writers to the
// same key serialize on that shard's mutex (last writer wins).
type Map[V any] struct {
	shards [numShards]*shard[V]
}

// NewMap creates an empty sharded map.
func NewMap[V any]() *Map[V] {
	m := &Map[V]{}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *Map[V]) getShard(key string) *shard[V] {
	return m.shards[shardIndex(key)]
}

// Store adds a key-value pair to the map.
func (m *Map[V]) Store(key string, value V) {
	s := m.getShard(key)
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
}

// Load retrieves the value associated with a key.
// It returns the value and a boolean indicating if the key was present.
func (m *Map[V]) Load(key string) (value V, ok bool) {
	s := m.getShard(key)
	s.mu.RLock()
	value, ok = s.items[key]
	s.mu.RUnlock()
	return value, ok
}

// Has checks only for the presence of a key.
func (m *Map[V]) Has(key string) bool {
	s := m.getShard(key)
	s.mu.RLock()
	_, ok := s.items[key]
	s.mu.RUnlock()
	return ok
}

// Delete removes a key from the map.
func (m *Map[V]) Delete(key string) {
	s := m.getShard(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// Len returns the total number of elements in the map.
func (m *Map[V]) Len() int {
	count := 0
	for _, s := range m.shards {
		s.mu.RLock()
		count += len(s.items)
		s.mu.RUnlock()
	}
	return count
}

// Items returns a snapshot of all key-value pairs at the time of the call.
func (m *Map[V]) Items() map[string]V {
	items := make(map[string]V, m.Len())
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			items[k] = v
		}
		s.mu.RUnlock()
	}
	return items
}

// Range calls f for each key and value present in the map. If f returns
// false, iteration stops. One shard is locked at a time; f must not modify
// the map.
func (m *Map[V]) Range(f func(key string, value V) bool) {
	for _, s := range m.shards {
		s.mu.RLock()
		for k, v := range s.items {
			if !f(k, v) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}
