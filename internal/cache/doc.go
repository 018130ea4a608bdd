// Package cache keeps the latest list of records per entity kind in memory.
//
// Reads never block on the repository: Get returns whatever is cached and
// starts a background fetch when the kind is stale. Load waits for a fetch
// that covers every earlier invalidation.
//
// Writes go through Mutate, which runs the repository call and then
// invalidates the kind. There is no optimistic merge; the next snapshot comes
// from a fresh List. Invalidations that arrive while a List is in flight
// collapse into a single follow-up fetch, so the cache converges to at least
// the state as of the last invalidation.
//
// When a fetch fails the previous records are kept and Snapshot.Err is set.
package cache
