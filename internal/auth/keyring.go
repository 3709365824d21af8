package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

const keyringService = "gmailcli"

// KeyringStore keeps token records in the OS keyring, one item per profile.
// Selected with token_storage: keyring in the profile settings.
type KeyringStore struct {
	ring keyring.Keyring
}

// NewKeyringStore opens the system keyring.
func NewKeyringStore() (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
		},
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return &KeyringStore{ring: ring}, nil
}

func (s *KeyringStore) Load(profile string) (*Record, error) {
	item, err := s.ring.Get(profile)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading keyring token for profile %s: %w", profile, err)
	}

	rec := &Record{}
	if err := json.Unmarshal(item.Data, rec); err != nil {
		return nil, fmt.Errorf("parsing keyring token for profile %s: %w", profile, err)
	}
	return rec, nil
}

func (s *KeyringStore) Save(profile string, rec *Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding token record: %w", err)
	}

	if err := s.ring.Set(keyring.Item{Key: profile, Data: payload}); err != nil {
		return fmt.Errorf("writing keyring token for profile %s: %w", profile, err)
	}
	return nil
}

func (s *KeyringStore) Clear(profile string) error {
	err := s.ring.Remove(profile)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("removing keyring token for profile %s: %w", profile, err)
	}
	return nil
}
