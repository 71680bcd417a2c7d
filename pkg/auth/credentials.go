// Package auth persists the API credential pool outside the config file.
//
// Credentials are stored by label in the system keychain, in an encrypted
// file, or read from the environment. Manager merges all available stores
// and hands the ordered key list to the rotator.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"igaggregator/pkg/logger"
)

// Credential is one labelled API key
type Credential struct {
	Label   string    `json:"label"`
	Key     string    `json:"key"`
	AddedAt time.Time `json:"added_at"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves a credential under its label
	Store(cred *Credential) error

	// Retrieve gets the credential for a label
	Retrieve(label string) (*Credential, error)

	// List returns all stored credentials
	List() ([]*Credential, error)

	// Delete removes the credential for a label
	Delete(label string) error

	// Exists checks if a credential exists for a label
	Exists(label string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager over the keychain (when
// available), an encrypted file under the config directory and the
// environment, in that order of preference
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "keys.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over the given stores
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves a credential using the first store that accepts it
func (m *Manager) Store(cred *Credential) error {
	if cred == nil {
		return ErrInvalidCredentials
	}
	cred.Label = strings.TrimSpace(cred.Label)
	cred.Key = strings.TrimSpace(cred.Key)
	if cred.Label == "" {
		return errors.New("label is required")
	}
	if cred.Key == "" {
		return errors.New("API key is required")
	}
	if cred.AddedAt.IsZero() {
		cred.AddedAt = time.Now()
	}

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(cred)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credential: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets a credential from the first store that has it
func (m *Manager) Retrieve(label string) (*Credential, error) {
	for _, store := range m.stores {
		if cred, err := store.Retrieve(label); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("credential not found for label: %s", label)
}

// List returns the credentials of all stores, one per label, ordered by
// the time they were added
func (m *Manager) List() ([]*Credential, error) {
	byLabel := make(map[string]*Credential)

	for _, store := range m.stores {
		creds, err := store.List()
		if err != nil {
			continue
		}
		for _, cred := range creds {
			// Use the most recently added version
			if existing, ok := byLabel[cred.Label]; !ok || cred.AddedAt.After(existing.AddedAt) {
				byLabel[cred.Label] = cred
			}
		}
	}

	result := make([]*Credential, 0, len(byLabel))
	for _, cred := range byLabel {
		result = append(result, cred)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].AddedAt.Equal(result[j].AddedAt) {
			return result[i].AddedAt.Before(result[j].AddedAt)
		}
		return result[i].Label < result[j].Label
	})

	return result, nil
}

// Keys returns the distinct API keys of all stores in List order
func (m *Manager) Keys() ([]string, error) {
	creds, err := m.List()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(creds))
	var keys []string
	for _, cred := range creds {
		if cred.Key == "" || seen[cred.Key] {
			continue
		}
		seen[cred.Key] = true
		keys = append(keys, cred.Key)
	}
	return keys, nil
}

// Delete removes a credential from all stores
func (m *Manager) Delete(label string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(label); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete credential: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("credential not found for label: %s", label)
	}

	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "igaggregator")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "igaggregator")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "igaggregator")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "igaggregator")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeCredential returns a copy of cred with the key masked
func SanitizeCredential(cred *Credential) *Credential {
	if cred == nil {
		return nil
	}
	return &Credential{
		Label:   cred.Label,
		Key:     logger.MaskKey(cred.Key),
		AddedAt: cred.AddedAt,
	}
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
