// Package journal persists daemon run history in SQLite.
//
// Each daemon or foreground run gets one row keyed by its run identifier,
// carrying the pid, lifecycle state, heartbeat counters, and the log file
// the run wrote. The daemon updates its own row as it moves through the
// lifecycle; the history command reads the same table afterwards.
//
// The database is an operational record, not an archive: Prune enforces the
// configured retention window, and schema changes bump schemaVersion, after
// which the journal must be cleared to adopt the new layout.
package journal
