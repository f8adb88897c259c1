// Package store owns the on-disk state of upload sessions.
//
// Each session is a directory under the upload root containing the
// original files, any pipeline outputs, and a metadata.json record.
// The metadata record is the sole source of truth read back by the
// process, download, and inspection endpoints.
//
// Deletion is idempotent: removing a session that is already gone is a
// no-op, which is what makes the deferred-delete and sweep triggers safe
// to race with each other.
package store
