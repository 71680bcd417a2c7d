package auth

import (
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/zalando/go-keyring"
)

const (
	keyringService = "igaggregator"
	keyringUser    = "api_keys"
)

// KeyringStore implements CredentialStore using the system keychain.
// The whole pool lives in one keychain entry since go-keyring cannot
// enumerate entries.
type KeyringStore struct {
	mu sync.Mutex
}

// NewKeyringStore creates a new keyring-based credential store
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves a credential to the system keychain
func (k *KeyringStore) Store(cred *Credential) error {
	if cred == nil || cred.Label == "" || cred.Key == "" {
		return ErrInvalidCredentials
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	pool, err := k.load()
	if err != nil {
		return err
	}
	pool[cred.Label] = *cred
	return k.save(pool)
}

// Retrieve gets a credential from the system keychain
func (k *KeyringStore) Retrieve(label string) (*Credential, error) {
	if label == "" {
		return nil, ErrInvalidCredentials
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	pool, err := k.load()
	if err != nil {
		return nil, err
	}
	cred, ok := pool[label]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &cred, nil
}

// List returns all credentials held in the keychain
func (k *KeyringStore) List() ([]*Credential, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	pool, err := k.load()
	if err != nil {
		return nil, err
	}
	creds := make([]*Credential, 0, len(pool))
	for _, cred := range pool {
		c := cred
		creds = append(creds, &c)
	}
	return creds, nil
}

// Delete removes a credential from the system keychain
func (k *KeyringStore) Delete(label string) error {
	if label == "" {
		return ErrInvalidCredentials
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	pool, err := k.load()
	if err != nil {
		return err
	}
	if _, ok := pool[label]; !ok {
		return ErrCredentialsNotFound
	}
	delete(pool, label)

	if len(pool) == 0 {
		if err := keyring.Delete(keyringService, keyringUser); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to delete from keyring: %w", err)
		}
		return nil
	}
	return k.save(pool)
}

// Exists checks if a credential exists in the keychain
func (k *KeyringStore) Exists(label string) bool {
	cred, err := k.Retrieve(label)
	return err == nil && cred != nil
}

func (k *KeyringStore) load() (map[string]Credential, error) {
	data, err := keyring.Get(keyringService, keyringUser)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return make(map[string]Credential), nil
		}
		return nil, fmt.Errorf("failed to read from keyring: %w", err)
	}

	pool := make(map[string]Credential)
	if err := json.Unmarshal([]byte(data), &pool); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return pool, nil
}

func (k *KeyringStore) save(pool map[string]Credential) error {
	data, err := json.Marshal(pool)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := keyring.Set(keyringService, keyringUser, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}
