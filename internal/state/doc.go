// Package state holds the client's working set of domain data.
//
// # Tiers
//
// The always-on tier is small and fully in memory: the current user's
// profile, the current event, the match summary list and the first page of
// discovery results. Each slice is replaced wholesale and mirrored to a
// SnapshotStore so a cold start can render immediately.
//
// The bounded tier caps memory over a long session:
//
//   - active chats: LRU, 5 entries by default
//   - recently viewed profiles: LRU, 20 entries by default
//   - discovery pages beyond the first: unbounded map, session scoped
//
// Cleanup clears the bounded tier only.
//
// # Persistence
//
// Mutators of the always-on tier never block on disk. They signal a single
// worker through a one-slot channel, so a burst of updates collapses into one
// write of the latest state. Flush waits for pending writes; Close drains the
// worker. Snapshots written for another user or event, or with an unknown
// version, are deleted on load.
//
// # Change Feed
//
// Subscribe delivers a Change for every effective mutation. A discovery
// page-1 update with unchanged IDs is not a mutation and publishes nothing.
package state
