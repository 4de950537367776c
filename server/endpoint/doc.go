// Package endpoint provides the built-in HTTP handlers: /health, the
// /livez and /readyz checks, /info and /registrations.
package endpoint
