package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// Kind classifies an API failure for callers that decide between retrying,
// re-authenticating, and giving up.
type Kind string

const (
	// KindUnauthorized means the provider rejected the credentials even
	// after a forced token refresh.
	KindUnauthorized Kind = "unauthorized"

	// KindRateLimited means the provider asked us to back off.
	KindRateLimited Kind = "rate_limited"

	// KindNotFound means the requested message, label, or attachment does
	// not exist.
	KindNotFound Kind = "not_found"

	// KindMalformed means the request or the provider payload could not be
	// understood.
	KindMalformed Kind = "malformed"

	// KindTransport covers network failures and provider-side errors.
	KindTransport Kind = "transport"
)

// APIError is a Gmail API failure with its classification and, when the
// provider supplied one, HTTP status and reason.
type APIError struct {
	Kind   Kind
	Status int
	Reason string
	Err    error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("gmail api error (%s, http %d): %s", e.Kind, e.Status, e.Reason)
	}
	return fmt.Sprintf("gmail api error (%s): %s", e.Kind, e.Reason)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsKind reports whether err is an APIError of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// rateLimitReasons are the 403 reasons Google uses for quota exhaustion.
var rateLimitReasons = map[string]bool{
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
}

// wrapError maps a google-api-go-client failure onto the error taxonomy.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}

	// Token source failures (a rejected refresh, a missing login) keep
	// their own classification; callers route them to re-authentication.
	var authErr interface{ AuthKind() string }
	if errors.As(err, &authErr) {
		return err
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &APIError{Kind: KindTransport, Reason: err.Error(), Err: err}
	}

	reason := gerr.Message
	if reason == "" {
		reason = strings.TrimSpace(string(gerr.Body))
	}
	if reason == "" {
		reason = http.StatusText(gerr.Code)
	}

	kind := classifyStatus(gerr)
	return &APIError{Kind: kind, Status: gerr.Code, Reason: reason, Err: gerr}
}

func classifyStatus(gerr *googleapi.Error) Kind {
	switch {
	case gerr.Code == http.StatusTooManyRequests:
		return KindRateLimited
	case gerr.Code == http.StatusForbidden && hasRateLimitReason(gerr):
		return KindRateLimited
	case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
		return KindUnauthorized
	case gerr.Code == http.StatusNotFound:
		return KindNotFound
	case gerr.Code >= 400 && gerr.Code < 500:
		return KindMalformed
	default:
		return KindTransport
	}
}

func hasRateLimitReason(gerr *googleapi.Error) bool {
	for _, item := range gerr.Errors {
		if rateLimitReasons[item.Reason] {
			return true
		}
	}
	return false
}
