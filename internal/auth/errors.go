package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies authentication failures so callers can branch on the
// failure class instead of matching error strings.
type Kind string

const (
	// KindBrowserOpenFailed indicates the browser collaborator could not be
	// launched. Non-fatal for login: the authorization URL is still reported.
	KindBrowserOpenFailed Kind = "browser_open_failed"

	// KindListenerBindFailed indicates the loopback callback port could not
	// be bound.
	KindListenerBindFailed Kind = "listener_bind_failed"

	// KindCallbackTimeout indicates no redirect arrived within the
	// configured window.
	KindCallbackTimeout Kind = "callback_timeout"

	// KindStateMismatch indicates the callback carried a state value that
	// does not match the in-flight login attempt. The authorization code is
	// discarded without being exchanged.
	KindStateMismatch Kind = "state_mismatch"

	// KindAuthorizationDenied indicates the provider redirected back with an
	// error instead of an authorization code.
	KindAuthorizationDenied Kind = "authorization_denied"

	// KindTokenExchangeRejected indicates the token endpoint refused the
	// code-for-token exchange.
	KindTokenExchangeRejected Kind = "token_exchange_rejected"

	// KindRefreshRejected indicates no usable refresh token exists or the
	// provider rejected the refresh grant. Callers must treat this as
	// "re-authentication required", not retry it.
	KindRefreshRejected Kind = "refresh_rejected"
)

// Error is the authentication error type surfaced by the flow and the
// token source.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("auth error (%s): %s", e.Kind, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("auth error (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("auth error (%s)", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AuthKind exposes the classification to packages that detect auth failures
// structurally without importing this one.
func (e *Error) AuthKind() string {
	return string(e.Kind)
}

// IsKind reports whether err is an auth Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var authErr *Error
	return errors.As(err, &authErr) && authErr.Kind == kind
}

// ProviderError is a parsed OAuth2 error payload. Providers return
// heterogeneous shapes; anything unrecognized is preserved verbatim in Raw
// with Code set to "unrecognized".
type ProviderError struct {
	Code        string
	Description string
	Raw         string
}

func (e *ProviderError) Error() string {
	if e.Code == "unrecognized" {
		return fmt.Sprintf("provider error: %s", e.Raw)
	}
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Description)
	}
	return e.Code
}

// parseProviderError interprets a token endpoint error body per RFC 6749
// section 5.2, falling back to the raw payload when it does not decode.
func parseProviderError(body []byte) *ProviderError {
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return &ProviderError{
			Code:        payload.Error,
			Description: payload.ErrorDescription,
			Raw:         string(body),
		}
	}

	raw := strings.TrimSpace(string(body))
	if raw == "" {
		raw = "no error details in response body"
	}
	return &ProviderError{Code: "unrecognized", Raw: raw}
}
