// Package errors provides the structured error type shared by the injector,
// the HTTP server and the configuration layer. Every error carries a
// machine-readable code, a recommended HTTP status and optional details.
package errors
