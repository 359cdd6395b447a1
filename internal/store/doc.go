// Package store provides a SQLite-backed ledger of dispatch sessions and
// the outcome of every item they dispatched.
//
// The ledger is bookkeeping only. Whether an item still needs to run is
// decided by completion markers next to its files, never by the ledger,
// so a lost or deleted database changes nothing about what a rerun does.
//
// # Tables
//
//   - sessions: one row per dispatcher run, with its final counters
//   - runs: one row per dispatched item, keyed by (session_id, seq)
//
// # Ordering
//
// Queries order by session start and then seq, the dispatcher's logical
// clock, so listings follow launch order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The schema is managed by golang-migrate from the embedded migrations
// directory.
package store
