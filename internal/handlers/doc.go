// Package handlers implements the HTTP API: session upload, processing,
// download, inspection, preview, and cleanup, plus the health and
// version endpoints.
//
// Handlers translate store and packager sentinel errors into the HTTP
// status codes clients rely on: unknown sessions are 404, requests that
// arrive in the wrong lifecycle order are 400, and corrupt session
// metadata is 500.
package handlers
