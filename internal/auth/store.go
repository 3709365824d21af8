package auth

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tkoenig/gmailcli/internal/config"
	"github.com/tkoenig/gmailcli/internal/logging"
)

// Store persists one token Record per profile. Load returns nil without
// error when no record exists.
type Store interface {
	Load(profile string) (*Record, error)
	Save(profile string, rec *Record) error
	Clear(profile string) error
}

// NewStore selects the storage backend configured for the profile.
func NewStore(paths *config.Paths, settings *config.Settings) (Store, error) {
	switch settings.TokenStorage {
	case "", config.StorageFile:
		return NewFileStore(paths), nil
	case config.StorageKeyring:
		return NewKeyringStore()
	default:
		return nil, &config.Error{Field: "token_storage", Reason: fmt.Sprintf("unknown backend %q", settings.TokenStorage)}
	}
}

// FileStore keeps token records as JSON files, one per profile, with
// owner-only permissions.
type FileStore struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewFileStore creates a file-backed token store.
func NewFileStore(paths *config.Paths) *FileStore {
	return &FileStore{paths: paths, logger: slog.Default()}
}

func (s *FileStore) Load(profile string) (*Record, error) {
	raw, err := os.ReadFile(s.paths.TokenFile(profile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading token file for profile %s: %w", profile, err)
	}

	rec := &Record{}
	if err := json.Unmarshal(raw, rec); err != nil {
		return nil, fmt.Errorf("parsing token file for profile %s: %w", profile, err)
	}
	return rec, nil
}

// Save writes the record to a temporary file in the same directory and
// renames it into place, so a crash mid-write never leaves a corrupt or
// partial token file.
func (s *FileStore) Save(profile string, rec *Record) error {
	payload, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token record: %w", err)
	}

	path := s.paths.TokenFile(profile)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing token file: %w", err)
	}

	s.logger.Debug("saved token record",
		logging.Profile(profile),
		slog.String("access_token", logging.SanitizeToken(rec.AccessToken)))
	return nil
}

func (s *FileStore) Clear(profile string) error {
	err := os.Remove(s.paths.TokenFile(profile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing token file for profile %s: %w", profile, err)
	}
	return nil
}
