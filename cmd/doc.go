// Package cmd implements the command-line interface for gmail.
//
// This package provides the following commands:
//   - auth: log in (OAuth with PKCE), show status, and log out per profile
//   - list: list messages, most recent first, with snippet previews
//   - get: fetch a single message with bodies and attachment metadata
//   - send: send markdown messages with attachments and reply threading
//   - label: list labels and add or remove them on messages
//
// Global flags select the configuration profile (--profile), switch output
// to JSON (--json), and raise log verbosity (-v).
package cmd
