// Package memory provides the in-memory key-value store for minidb.
//
// Records live in a string-keyed sharded map (pkg/cmap). Single-key
// operations serialize on the key's shard lock and hold a store-wide read
// lock; Snapshot and Restore take the store-wide lock exclusively, so an
// image always reflects a single instant.
package memory
