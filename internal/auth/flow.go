package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/tkoenig/gmailcli/internal/config"
	"github.com/tkoenig/gmailcli/internal/logging"
)

// DefaultCallbackTimeout bounds how long a login waits for the browser
// redirect before giving up and releasing the port.
const DefaultCallbackTimeout = 120 * time.Second

// Flow drives the authorization-code login: authorize URL construction,
// browser launch, single-use callback capture, and the code-for-token
// exchange.
type Flow struct {
	settings *config.Settings
	store    Store
	ep       Endpoints
	opener   BrowserOpener
	timeout  time.Duration
	client   *http.Client
	logger   *slog.Logger
}

// FlowOption customizes a Flow.
type FlowOption func(*Flow)

// WithEndpoints overrides the provider endpoints, used by tests.
func WithEndpoints(ep Endpoints) FlowOption {
	return func(f *Flow) { f.ep = ep }
}

// WithBrowserOpener replaces the browser collaborator.
func WithBrowserOpener(opener BrowserOpener) FlowOption {
	return func(f *Flow) { f.opener = opener }
}

// WithTimeout overrides the callback wait window.
func WithTimeout(timeout time.Duration) FlowOption {
	return func(f *Flow) { f.timeout = timeout }
}

// WithHTTPClient sets the HTTP client used for token exchange, revocation
// and userinfo calls.
func WithHTTPClient(client *http.Client) FlowOption {
	return func(f *Flow) { f.client = client }
}

// NewFlow creates a login flow for the given profile settings.
func NewFlow(settings *config.Settings, store Store, opts ...FlowOption) *Flow {
	f := &Flow{
		settings: settings,
		store:    store,
		ep:       GoogleEndpoints(),
		opener:   SystemBrowser{},
		timeout:  DefaultCallbackTimeout,
		client:   http.DefaultClient,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// LoginResult reports the outcome of an interactive login.
type LoginResult struct {
	Profile          string `json:"profile"`
	OpenedBrowser    bool   `json:"opened_browser"`
	AuthorizationURL string `json:"authorization_url"`
	BrowserError     string `json:"browser_error,omitempty"`
	Email            string `json:"email,omitempty"`
	Note             string `json:"note"`
}

// StatusResult reports the stored credential state without network calls.
type StatusResult struct {
	Profile          string `json:"profile"`
	LoggedIn         bool   `json:"logged_in"`
	Email            string `json:"email,omitempty"`
	Expired          *bool  `json:"expired,omitempty"`
	ExpiresInSeconds *int64 `json:"expires_in_seconds,omitempty"`
	HasRefreshToken  *bool  `json:"has_refresh_token,omitempty"`
	Note             string `json:"note,omitempty"`
}

// Login runs the full authorization-code flow with PKCE and persists the
// resulting token record for the profile.
//
// The loopback listener is bound before the browser opens and released on
// every exit path, so a failed attempt never blocks the next one. A browser
// launch failure is not fatal; the authorization URL is always part of the
// result so the caller can present it.
func (f *Flow) Login(ctx context.Context, profile string) (*LoginResult, error) {
	if err := f.settings.Validate(); err != nil {
		return nil, err
	}

	logger := logging.WithProfile(f.logger, profile)
	cfg := oauthConfig(f.settings, f.ep)

	state, err := NewState()
	if err != nil {
		return nil, err
	}
	pkce, err := NewPKCE()
	if err != nil {
		return nil, err
	}

	authURL := cfg.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("code_challenge", pkce.Challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)

	listener, err := Listen(cfg.RedirectURL)
	if err != nil {
		return nil, err
	}
	defer listener.Close()

	openedBrowser := true
	browserError := ""
	if err := f.opener.Open(authURL); err != nil {
		openedBrowser = false
		openErr := &Error{Kind: KindBrowserOpenFailed, Reason: "could not launch a browser; open the authorization url manually", Err: err}
		browserError = openErr.Error()
		logger.Warn("failed to open browser; complete the login manually",
			logging.Operation("login"), logging.Err(openErr))
	}

	code, callbackState, err := listener.Wait(ctx, f.timeout)
	if err != nil {
		return nil, err
	}

	// Anti-CSRF: the state comparison happens before any network call.
	// A mismatch discards the code entirely.
	if callbackState != state {
		return nil, &Error{Kind: KindStateMismatch, Reason: "oauth state mismatch; aborting login"}
	}
	if code == "" {
		return nil, &Error{Kind: KindAuthorizationDenied, Reason: "oauth callback is missing the code parameter"}
	}

	tok, err := f.exchange(ctx, cfg, code, pkce.Verifier)
	if err != nil {
		return nil, err
	}

	rec := recordFromToken(tok, nil)
	if email, name, err := f.fetchUserInfo(ctx, rec.AccessToken); err != nil {
		logger.Debug("userinfo lookup failed", logging.Err(err))
	} else {
		rec.Email = email
		rec.Name = name
	}

	if err := f.store.Save(profile, rec); err != nil {
		return nil, err
	}

	logger.Info("login complete",
		logging.Operation("login"),
		logging.Status(logging.StatusSuccess),
		logging.UserHash(rec.Email))

	return &LoginResult{
		Profile:          profile,
		OpenedBrowser:    openedBrowser,
		AuthorizationURL: authURL,
		BrowserError:     browserError,
		Email:            rec.Email,
		Note:             "oauth login completed and token stored",
	}, nil
}

func (f *Flow) exchange(ctx context.Context, cfg *oauth2.Config, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client)

	tok, err := cfg.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", verifier))
	if err != nil {
		var retrieve *oauth2.RetrieveError
		if errors.As(err, &retrieve) {
			provider := parseProviderError(retrieve.Body)
			return nil, &Error{Kind: KindTokenExchangeRejected, Reason: provider.Error(), Err: provider}
		}
		return nil, &Error{Kind: KindTokenExchangeRejected, Reason: "token exchange failed", Err: err}
	}
	return tok, nil
}

// fetchUserInfo resolves the authenticated address and display name. Best
// effort: login succeeds without it.
func (f *Flow) fetchUserInfo(ctx context.Context, accessToken string) (email, name string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.ep.UserInfo, nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("userinfo endpoint returned %s", resp.Status)
	}

	var payload struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", err
	}
	return payload.Email, payload.Name, nil
}

// Status inspects the stored record for a profile.
func (f *Flow) Status(profile string) (*StatusResult, error) {
	rec, err := f.store.Load(profile)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &StatusResult{Profile: profile, Note: "no token found"}, nil
	}

	now := time.Now()
	expired := !rec.Valid(now)
	hasRefresh := rec.RefreshToken != ""

	res := &StatusResult{
		Profile:         profile,
		LoggedIn:        true,
		Email:           rec.Email,
		Expired:         &expired,
		HasRefreshToken: &hasRefresh,
		Note:            "token loaded from local store",
	}
	if seconds, ok := rec.ExpiresIn(now); ok {
		res.ExpiresInSeconds = &seconds
	}
	return res, nil
}

// Logout revokes the stored credentials best-effort and removes them.
func (f *Flow) Logout(ctx context.Context, profile string) (*StatusResult, error) {
	rec, err := f.store.Load(profile)
	if err != nil {
		return nil, err
	}

	note := "local credentials removed"
	if rec != nil {
		tokenToRevoke := rec.RefreshToken
		if tokenToRevoke == "" {
			tokenToRevoke = rec.AccessToken
		}
		if err := f.revoke(ctx, tokenToRevoke); err != nil {
			note = fmt.Sprintf("local credentials removed (revoke failed: %v)", err)
		} else {
			note = "remote token revoked and local credentials removed"
		}
	}

	if err := f.store.Clear(profile); err != nil {
		return nil, err
	}

	f.logger.Info("logout complete",
		logging.Profile(profile),
		logging.Operation("logout"))

	return &StatusResult{Profile: profile, Note: note}, nil
}

func (f *Flow) revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.ep.Revoke, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke endpoint returned %s", resp.Status)
	}
	return nil
}
