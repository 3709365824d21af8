package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// DefaultRedirectURI is used when a profile does not configure its own
// loopback redirect.
const DefaultRedirectURI = "http://127.0.0.1:8787/callback"

// Token storage backends.
const (
	StorageFile    = "file"
	StorageKeyring = "keyring"
)

// Settings holds the OAuth client configuration for one profile.
// The persisted form is a JSON object; fields may also be overridden
// through GMAIL_* environment variables.
type Settings struct {
	ClientID     string `json:"client_id" mapstructure:"client_id"`
	ClientSecret string `json:"client_secret,omitempty" mapstructure:"client_secret"`
	RedirectURI  string `json:"redirect_uri,omitempty" mapstructure:"redirect_uri"`
	SenderName   string `json:"sender_name,omitempty" mapstructure:"sender_name"`
	TokenStorage string `json:"token_storage,omitempty" mapstructure:"token_storage"`
}

var settingsKeys = []string{"client_id", "client_secret", "redirect_uri", "sender_name", "token_storage"}

// Error reports a missing or invalid profile field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// LoadSettings reads a profile's settings file. A missing file yields default
// settings so that `auth login` can report what is missing instead of failing
// on startup.
func LoadSettings(paths *Paths, profile string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(paths.SettingsFile(profile))
	v.SetConfigType("json")
	v.SetEnvPrefix("GMAIL")
	v.AutomaticEnv()
	for _, key := range settingsKeys {
		// AutomaticEnv alone does not surface env values through Unmarshal;
		// each key has to be bound explicitly.
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s for profile %s: %w", key, profile, err)
		}
	}

	v.SetDefault("redirect_uri", DefaultRedirectURI)
	v.SetDefault("token_storage", StorageFile)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("reading settings for profile %s: %w", profile, err)
			}
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("parsing settings for profile %s: %w", profile, err)
	}

	return settings, nil
}

// SaveSettings writes the settings file for a profile with owner-only
// permissions.
func SaveSettings(paths *Paths, profile string, settings *Settings) error {
	payload, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	path := paths.SettingsFile(profile)
	if err := os.MkdirAll(paths.ProfilesDir(), 0o700); err != nil {
		return fmt.Errorf("creating profiles directory: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("writing settings to %s: %w", path, err)
	}
	return nil
}

// Validate checks the fields required to start a login.
func (s *Settings) Validate() error {
	if s.ClientID == "" {
		return &Error{Field: "client_id", Reason: "missing oauth client_id; add it to the profile settings file or set GMAIL_CLIENT_ID"}
	}
	if s.RedirectURI == "" {
		return &Error{Field: "redirect_uri", Reason: "redirect_uri must not be empty"}
	}
	switch s.TokenStorage {
	case "", StorageFile, StorageKeyring:
	default:
		return &Error{Field: "token_storage", Reason: fmt.Sprintf("unknown backend %q; use %q or %q", s.TokenStorage, StorageFile, StorageKeyring)}
	}
	return nil
}
