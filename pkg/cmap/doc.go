// Package cmap provides a sharded, string-keyed concurrent map.
//
// Keys are spread over a power-of-two number of shards by their murmur3
// hash. Each shard has its own RWMutex, so operations on different keys
// rarely contend while operations on the same key are serialized.
//
// Usage:
//
//	m := cmap.New[string]()
//	m.Set("key", "value")
//	val, ok := m.Get("key")
//
// Range visits shards one at a time and is therefore not a consistent
// snapshot while writers are active; callers needing one must exclude
// writers themselves.
package cmap
