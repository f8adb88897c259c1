// Package retention guarantees that every session's backing storage is
// eventually removed exactly once.
//
// Two independent triggers feed the same idempotent removal path: a
// one-shot deferred delete scheduled after a download's bytes are fully
// buffered, and a periodic sweep that reclaims sessions older than the
// retention threshold regardless of download activity. Because removal
// is idempotent, the triggers are safe to race.
package retention
