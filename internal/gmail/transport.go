package gmail

import (
	"context"
	"net/http"
)

// TokenSource provides bearer tokens for outgoing API requests.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	ForceRefresh(ctx context.Context) (string, error)
}

// authTransport attaches a bearer token to every request and retries exactly
// once with a forced refresh when the provider answers 401. Anything beyond
// that single retry surfaces to the caller.
type authTransport struct {
	source TokenSource
	base   http.RoundTripper
}

func newAuthTransport(source TokenSource, base http.RoundTripper) *authTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{source: source, base: base}
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	token, err := t.source.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(withBearer(req, token))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// The request body, if any, must be replayable for the retry.
	retry, ok := rewound(req)
	if !ok {
		return resp, nil
	}
	resp.Body.Close()

	token, err = t.source.ForceRefresh(ctx)
	if err != nil {
		return nil, err
	}
	return t.base.RoundTrip(withBearer(retry, token))
}

func withBearer(req *http.Request, token string) *http.Request {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+token)
	return clone
}

func rewound(req *http.Request) (*http.Request, bool) {
	if req.Body == nil || req.Body == http.NoBody {
		return req, true
	}
	if req.GetBody == nil {
		return nil, false
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, false
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, true
}
