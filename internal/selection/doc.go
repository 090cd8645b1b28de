// Package selection persists named object identifier sets.
//
// A selection records which rows of a dataset a user picked, by identity
// rather than by position, so it can be re-fetched in a later session with
// oid.BuildSelect even after the data source was reopened. MemoryStore
// serves a single process; RedisStore shares selections across processes.
package selection
