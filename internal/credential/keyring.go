// Package credential stores passwords and cached tokens in the system keyring.
package credential

import (
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"
)

// DefaultService is the keyring service name used when none is configured.
const DefaultService = "outlookflat"

// EnvFilePassword holds the passphrase of the encrypted file backend.
const EnvFilePassword = "OUTLOOK_KEYRING_PASSWORD"

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes secrets in a keyring.
type Store struct {
	ring keyring.Keyring
}

// NewStore wraps an already opened keyring.
func NewStore(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open opens the system keyring for service. fileDir is used by the
// encrypted file backend when no native keyring is available. That backend
// is only as strong as its passphrase, taken from OUTLOOK_KEYRING_PASSWORD or
// prompted for on the terminal.
func Open(service, fileDir string) (*Store, error) {
	if service == "" {
		service = DefaultService
	}

	if fileDir == "" {
		fileDir = "~/.config/" + service + "/credentials"
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName: service,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         FilePassword(os.LookupEnv),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}

	return NewStore(ring), nil
}

// FilePassword returns the passphrase source for the file backend: the
// EnvFilePassword value when set, otherwise a terminal prompt.
func FilePassword(lookup func(string) (string, bool)) keyring.PromptFunc {
	if v, ok := lookup(EnvFilePassword); ok && v != "" {
		return keyring.FixedStringPrompt(v)
	}

	return keyring.TerminalPrompt
}

// PasswordKey is the key of the stored account password for username.
func PasswordKey(username string) string {
	return "password:" + username
}

// TokenKey is the key of the cached token for a client and username.
func TokenKey(clientID, username string) string {
	return "token:" + clientID + ":" + username
}

// Get retrieves a credential value by key.
func (s *Store) Get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", fmt.Errorf("%w: %q", ErrNotFound, key)
		}

		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key.
func (s *Store) Set(key, value string) error {
	err := s.ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	err := s.ring.Remove(key)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}
