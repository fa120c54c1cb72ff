package auth

import (
	"os"
	"time"
)

// EnvironmentStore reads the account from EDUCABIZ_SLUG, EDUCABIZ_USERNAME and
// EDUCABIZ_PASSWORD. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment account. An empty key matches it; any
// other key must equal the account's own key.
func (e *EnvironmentStore) Retrieve(key string) (*Account, error) {
	account := &Account{
		Slug:         os.Getenv("EDUCABIZ_SLUG"),
		Username:     os.Getenv("EDUCABIZ_USERNAME"),
		Password:     os.Getenv("EDUCABIZ_PASSWORD"),
		LastModified: time.Time{},
	}

	if account.Username == "" || account.Password == "" {
		return nil, ErrCredentialsNotFound
	}
	if key != "" && key != account.Key() {
		return nil, ErrCredentialsNotFound
	}

	return account, nil
}

// List returns a single account if environment variables are set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(key string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist for key
func (e *EnvironmentStore) Exists(key string) bool {
	_, err := e.Retrieve(key)
	return err == nil
}
