package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/tkoenig/gmailcli/internal/config"
	"github.com/tkoenig/gmailcli/internal/logging"
)

// Source hands out a valid access token for one profile, refreshing through
// the provider when the stored record is expired or about to expire. Every
// caller goes through the Source; nothing reads the access token directly.
type Source struct {
	mu      sync.Mutex
	profile string
	store   Store
	cfg     *oauth2.Config
	logger  *slog.Logger
}

// NewSource creates a token source for a profile.
func NewSource(profile string, store Store, settings *config.Settings, ep Endpoints) *Source {
	return &Source{
		profile: profile,
		store:   store,
		cfg:     oauthConfig(settings, ep),
		logger:  logging.WithProfile(slog.Default(), profile),
	}
}

// AccessToken returns the stored access token while it is still valid,
// performing a refresh-token grant otherwise. A missing record, a missing
// refresh token, or a provider rejection all surface KindRefreshRejected:
// the caller has to go back through interactive login.
func (s *Source) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Load(s.profile)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", &Error{Kind: KindRefreshRejected, Reason: "not logged in; run `gmail auth login`"}
	}
	if rec.Valid(time.Now()) {
		return rec.AccessToken, nil
	}

	refreshed, err := s.refreshLocked(ctx, rec)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// ForceRefresh performs a refresh grant regardless of the stored expiry.
// Used after the API rejects a token the store still considered valid.
func (s *Source) ForceRefresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Load(s.profile)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return "", &Error{Kind: KindRefreshRejected, Reason: "not logged in; run `gmail auth login`"}
	}

	refreshed, err := s.refreshLocked(ctx, rec)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// refreshLocked exchanges the refresh token for a new record and replaces
// the stored one wholesale. The caller holds s.mu.
func (s *Source) refreshLocked(ctx context.Context, rec *Record) (*Record, error) {
	if rec.RefreshToken == "" {
		return nil, &Error{Kind: KindRefreshRejected, Reason: "access token expired and no refresh token is stored"}
	}

	// An expiry in the past forces the refresh grant on the first call.
	ts := s.cfg.TokenSource(ctx, &oauth2.Token{
		RefreshToken: rec.RefreshToken,
		Expiry:       time.Unix(1, 0),
	})

	tok, err := ts.Token()
	if err != nil {
		var retrieve *oauth2.RetrieveError
		if errors.As(err, &retrieve) {
			provider := parseProviderError(retrieve.Body)
			return nil, &Error{Kind: KindRefreshRejected, Reason: provider.Error(), Err: provider}
		}
		return nil, &Error{Kind: KindRefreshRejected, Reason: "refresh grant failed", Err: err}
	}

	refreshed := recordFromToken(tok, rec)
	if err := s.store.Save(s.profile, refreshed); err != nil {
		return nil, err
	}

	s.logger.Info("refreshed access token",
		logging.Operation("token_refresh"),
		slog.Int64("expiry", refreshed.Expiry))
	return refreshed, nil
}
