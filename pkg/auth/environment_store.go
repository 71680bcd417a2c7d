package auth

import (
	"fmt"
	"os"
	"time"

	"igaggregator/pkg/config"
)

// EnvVar holds the comma separated key list read by EnvironmentStore
const EnvVar = "INSTAGRAM_API_KEYS"

// EnvironmentStore implements CredentialStore over the INSTAGRAM_API_KEYS
// variable. Its credentials are labelled env-1, env-2 and so on.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve gets a credential by its env-N label
func (e *EnvironmentStore) Retrieve(label string) (*Credential, error) {
	creds, _ := e.List()
	for _, cred := range creds {
		if cred.Label == label {
			return cred, nil
		}
	}
	return nil, ErrCredentialsNotFound
}

// List returns one credential per key in the environment. AddedAt is
// offset from the process start by the key's position so that Manager.List
// keeps the declared order.
func (e *EnvironmentStore) List() ([]*Credential, error) {
	keys := config.SplitKeys(os.Getenv(EnvVar))
	creds := make([]*Credential, 0, len(keys))
	for i, key := range keys {
		creds = append(creds, &Credential{
			Label:   fmt.Sprintf("env-%d", i+1),
			Key:     key,
			AddedAt: processStart.Add(time.Duration(i)),
		})
	}
	return creds, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(label string) error {
	return ErrStoreUnavailable
}

// Exists checks if the environment carries the labelled key
func (e *EnvironmentStore) Exists(label string) bool {
	_, err := e.Retrieve(label)
	return err == nil
}

var processStart = time.Now()
