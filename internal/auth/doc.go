// Package auth implements the OAuth2 authorization-code flow with PKCE
// against Google and the token lifecycle around it.
//
// A login binds a single-use loopback callback listener, opens the browser
// at the authorization URL, validates the returned state, and exchanges the
// code (with the PKCE verifier) for tokens. Token records are persisted per
// profile, either as files or in the OS keyring, and the Source hands out
// valid access tokens, refreshing through the provider when needed.
package auth
