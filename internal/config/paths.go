package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const appDir = "gmailcli"

// Paths resolves the on-disk locations for profile settings and token files.
type Paths struct {
	configDir string
	cacheDir  string
}

// DiscoverPaths resolves the user config and cache directories and creates
// the application subdirectories if they do not exist yet.
func DiscoverPaths() (*Paths, error) {
	configRoot, err := os.UserConfigDir()
	if err != nil {
		return nil, &Error{Field: "config_dir", Reason: fmt.Sprintf("unable to resolve user config directory: %v", err)}
	}
	cacheRoot, err := os.UserCacheDir()
	if err != nil {
		return nil, &Error{Field: "cache_dir", Reason: fmt.Sprintf("unable to resolve user cache directory: %v", err)}
	}

	p := &Paths{
		configDir: filepath.Join(configRoot, appDir),
		cacheDir:  filepath.Join(cacheRoot, appDir),
	}

	if err := os.MkdirAll(p.ProfilesDir(), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create profiles directory: %w", err)
	}
	if err := os.MkdirAll(p.TokensDir(), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create tokens directory: %w", err)
	}

	return p, nil
}

// NewPaths constructs Paths rooted at explicit directories. Used by tests
// and by callers that manage their own layout.
func NewPaths(configDir, cacheDir string) *Paths {
	return &Paths{configDir: configDir, cacheDir: cacheDir}
}

// ProfilesDir returns the directory holding per-profile settings files.
func (p *Paths) ProfilesDir() string {
	return filepath.Join(p.configDir, "profiles")
}

// TokensDir returns the directory holding per-profile token files.
func (p *Paths) TokensDir() string {
	return filepath.Join(p.cacheDir, "tokens")
}

// SettingsFile returns the settings file path for a profile.
func (p *Paths) SettingsFile(profile string) string {
	return filepath.Join(p.ProfilesDir(), profile+".json")
}

// TokenFile returns the token file path for a profile.
func (p *Paths) TokenFile(profile string) string {
	return filepath.Join(p.TokensDir(), profile+".json")
}

// ResolveProfile normalizes a requested profile name, falling back to
// "default" when empty.
func ResolveProfile(requested string) string {
	trimmed := strings.TrimSpace(requested)
	if trimmed == "" {
		return "default"
	}
	return trimmed
}
