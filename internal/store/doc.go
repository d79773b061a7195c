// Package store provides SQLite-backed durable storage for form sessions.
//
// The store is an append-only log with:
//   - Sessions: one row per Runtime session
//   - Commands: every command applied in a session, with its outcome code
//   - Snapshots: the forms collection after each command, with its hash
//
// # Ordering and Identity
//
//   - Commands are ordered by seq (the engine's logical clock), never by
//     wall time. Queries use ORDER BY seq ASC, id COLLATE BINARY ASC.
//   - Command IDs are content-addressed: SHA-256 over the canonical JSON of
//     (session, type, payload, seq) with domain separation. Writing the same
//     command twice is a no-op (ON CONFLICT DO NOTHING).
//   - Snapshot hashes cover the canonical JSON of the forms collection, so
//     ReplaySession can check that re-applying the log is deterministic.
//
// # Database Configuration
//
// Open sets WAL mode, foreign_keys=ON, synchronous=NORMAL and a 5s busy
// timeout; the last two can be changed with WithSynchronous and
// WithBusyTimeout. Schema changes after the embedded schema.sql are
// numbered migrations tracked in PRAGMA user_version. A database newer
// than UserVersion is refused.
package store
