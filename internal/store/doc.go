// Package store provides durable local storage for cache snapshots.
//
// # Architecture
//
// The client persists its always-on cache tier as a single serialized blob
// so that a cold start can render the last known state before fresh data
// arrives. The Store interface is deliberately small:
//
//   - LoadSnapshot / SaveSnapshot: read or upsert a blob by key
//   - DeleteSnapshot: drop a blob (used when a snapshot is invalidated)
//   - ListSnapshots: metadata for inspection tooling
//
// # Implementations
//
//   - SQLiteStore: modernc.org/sqlite (pure Go, no cgo), WAL mode
//   - MockStore: in-memory, with load/save counters and injectable errors
//
// Database file locations:
//
//   - Default: ~/.local/share/mingle/client.db
//   - Testing: :memory: or t.TempDir()
//
// # Error Handling
//
//   - ErrNotFound: nothing stored under the key
//   - ErrClosed: the store was closed (MockStore)
//
// Callers in the cache layer treat every error as a cache miss.
package store
