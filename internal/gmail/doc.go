// Package gmail is an authenticated client for the Gmail REST API covering
// the operations the CLI needs: listing and fetching messages, sending raw
// RFC 822 payloads, and label management.
//
// Authentication is delegated to a TokenSource. The transport attaches a
// bearer token per request and performs a single forced refresh and retry
// when the provider answers 401; every other failure maps onto the APIError
// taxonomy without automatic retries.
package gmail
