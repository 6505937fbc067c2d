// Package sessionstore persists JIRA session credentials between client
// instances, keyed by the JIRA base URL.
package sessionstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"

	"github.com/dt-pm-tools/jira-rest-client/jira"
)

const serviceName = "jira-rest-client"

// ErrNotFound is returned when no credential is stored for a base URL.
var ErrNotFound = errors.New("no stored session")

// Store saves and restores session credentials.
type Store interface {
	Save(baseURL string, cred jira.Credential) error
	Load(baseURL string) (jira.Credential, error)
	Delete(baseURL string) error
}

// KeyringStore keeps credentials in a keyring, one item per base URL.
type KeyringStore struct {
	ring keyring.Keyring
}

// NewKeyringStore wraps an open keyring.
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

// Open opens the system keyring, falling back to an encrypted file under
// fileDir when no native backend is available.
func Open(fileDir string) (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(serviceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewKeyringStore(ring), nil
}

// Save stores cred for baseURL, replacing any previous credential.
func (s *KeyringStore) Save(baseURL string, cred jira.Credential) error {
	if cred.IsZero() {
		return jira.ErrEmptyCredential
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshalling credential: %w", err)
	}
	err = s.ring.Set(keyring.Item{
		Key:         itemKey(baseURL),
		Data:        data,
		Label:       "JIRA session for " + baseURL,
		Description: "JIRA REST session credential",
	})
	if err != nil {
		return fmt.Errorf("setting credential for %q: %w", baseURL, err)
	}
	return nil
}

// Load returns the credential stored for baseURL.
func (s *KeyringStore) Load(baseURL string) (jira.Credential, error) {
	item, err := s.ring.Get(itemKey(baseURL))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return jira.Credential{}, fmt.Errorf("%w for %q", ErrNotFound, baseURL)
	}
	if err != nil {
		return jira.Credential{}, fmt.Errorf("getting credential for %q: %w", baseURL, err)
	}

	var cred jira.Credential
	if err := json.Unmarshal(item.Data, &cred); err != nil {
		return jira.Credential{}, fmt.Errorf("decoding credential for %q: %w", baseURL, err)
	}
	return cred, nil
}

// Delete removes the credential for baseURL. Deleting a missing
// credential is not an error.
func (s *KeyringStore) Delete(baseURL string) error {
	err := s.ring.Remove(itemKey(baseURL))
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting credential for %q: %w", baseURL, err)
	}
	return nil
}

func itemKey(baseURL string) string {
	return "session:" + strings.TrimRight(strings.ToLower(baseURL), "/")
}

// Restore imports the credential stored for client's base URL. It reports
// false without error when nothing is stored.
func Restore(store Store, client *jira.Client) (bool, error) {
	cred, err := store.Load(client.BaseURL())
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := client.ImportSession(cred); err != nil {
		return false, fmt.Errorf("importing stored session: %w", err)
	}
	return true, nil
}

// Persist saves the session of client, if it has one.
func Persist(store Store, client *jira.Client) error {
	cred, ok := client.ExportSession()
	if !ok {
		return nil
	}
	return store.Save(client.BaseURL(), cred)
}
