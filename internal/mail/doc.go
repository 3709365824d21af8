// Package mail composes outgoing MIME messages: markdown bodies rendered to
// an HTML alternative, attachments, and reply threading headers. The product
// is the raw RFC 5322 payload handed to the Gmail send API.
package mail
