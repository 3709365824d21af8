// Package logging provides slog helpers shared across the codebase:
// common attribute keys, a verbosity-based setup function, and utilities
// for logging identifiers without exposing tokens or email addresses.
package logging
