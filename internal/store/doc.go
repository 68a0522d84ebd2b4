// Package store provides durable storage for the unlock engine: the
// persistent unlock state (append-only set of finished Once-mode ids the
// compiler consults on a fresh session) and the achieved event log used for
// traces and diagnostics.
//
// The live graph is deliberately never persisted - it is rebuilt
// deterministically by recompiling definitions and replaying known state.
//
// Uses SQLite with WAL mode. Writes are idempotent via ON CONFLICT DO
// NOTHING; reads order by seq ASC, unlock_id ASC for deterministic output.
package store
