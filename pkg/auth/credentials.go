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
)

// Account is a parent's login on one portal deployment
type Account struct {
	Slug         string    `json:"slug"`
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	LastModified time.Time `json:"last_modified"`
}

// Key identifies the account across stores
func (a *Account) Key() string {
	return AccountKey(a.Slug, a.Username)
}

// AccountKey builds the store key for a deployment and username
func AccountKey(slug, username string) string {
	return strings.ToLower(slug) + "/" + username
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves credentials for a given account
	Store(account *Account) error

	// Retrieve gets credentials by account key
	Retrieve(key string) (*Account, error)

	// List returns all stored accounts
	List() ([]*Account, error)

	// Delete removes credentials by account key
	Delete(key string) error

	// Exists checks if credentials exist for a key
	Exists(key string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager over the system keychain, an
// encrypted file in the config directory and the environment, in that order
func NewManager() (*Manager, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return NewManagerAt(configDir, true)
}

// NewManagerAt creates a credential manager rooted at configDir. The keychain
// is only consulted when useKeyring is set.
func NewManagerAt(configDir string, useKeyring bool) (*Manager, error) {
	var stores []CredentialStore

	if useKeyring {
		if keyringStore, err := NewKeyringStore(); err == nil {
			stores = append(stores, keyringStore)
		}
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves credentials using the first store that accepts them
func (m *Manager) Store(account *Account) error {
	if err := validate(account); err != nil {
		return err
	}

	account.LastModified = time.Now()

	var lastErr error
	for i, store := range m.stores {
		err := store.Store(account)
		if err == nil {
			m.storeIndex(account, m.stores[i+1:])
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// storeIndex records the account without its password in the later stores
// so that List can show accounts kept in the keychain
func (m *Manager) storeIndex(account *Account, rest []CredentialStore) {
	entry := *account
	entry.Password = ""
	for _, store := range rest {
		_ = store.Store(&entry)
	}
}

func validate(account *Account) error {
	switch {
	case account == nil:
		return ErrInvalidCredentials
	case account.Slug == "":
		return errors.New("portal slug is required")
	case account.Username == "":
		return errors.New("username is required")
	case account.Password == "":
		return errors.New("password is required")
	}
	return nil
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(slug, username string) (*Account, error) {
	key := AccountKey(slug, username)
	for _, store := range m.stores {
		if account, err := store.Retrieve(key); err == nil && account != nil && account.Password != "" {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrCredentialsNotFound, key)
}

// RetrieveDefault returns the environment account if one is set, otherwise
// the single stored account for slug. With several stored accounts the caller
// has to pick one.
func (m *Manager) RetrieveDefault(slug string) (*Account, error) {
	for _, store := range m.stores {
		if envStore, ok := store.(*EnvironmentStore); ok {
			if account, err := envStore.Retrieve(""); err == nil {
				if slug == "" || strings.EqualFold(account.Slug, slug) {
					return account, nil
				}
			}
		}
	}

	accounts, err := m.List()
	if err != nil {
		return nil, err
	}

	var matches []*Account
	for _, account := range accounts {
		if slug == "" || strings.EqualFold(account.Slug, slug) {
			matches = append(matches, account)
		}
	}

	switch len(matches) {
	case 0:
		return nil, ErrCredentialsNotFound
	case 1:
		if matches[0].Password == "" {
			return m.Retrieve(matches[0].Slug, matches[0].Username)
		}
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%d accounts stored for %q, choose one with --account", len(matches), slug)
	}
}

// List returns all stored accounts from all stores, newest version first
// per key, sorted by key
func (m *Manager) List() ([]*Account, error) {
	accountMap := make(map[string]*Account)

	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			if existing, ok := accountMap[account.Key()]; !ok || account.LastModified.After(existing.LastModified) {
				accountMap[account.Key()] = account
			}
		}
	}

	result := make([]*Account, 0, len(accountMap))
	for _, account := range accountMap {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key() < result[j].Key() })

	return result, nil
}

// Delete removes credentials from all stores
func (m *Manager) Delete(slug, username string) error {
	key := AccountKey(slug, username)
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(key); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil && !errors.Is(lastErr, ErrCredentialsNotFound) && !errors.Is(lastErr, ErrStoreUnavailable) {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w for %s", ErrCredentialsNotFound, key)
}

// DeleteAll removes all stored credentials
func (m *Manager) DeleteAll() error {
	accounts, err := m.List()
	if err != nil {
		return err
	}

	for _, account := range accounts {
		_ = m.Delete(account.Slug, account.Username)
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
		configDir = filepath.Join(home, "Library", "Application Support", "ebexport")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "ebexport")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "ebexport")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "ebexport")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeAccount creates a copy of the account with the password masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}

	sanitized := *account
	sanitized.Password = maskString(account.Password)
	return &sanitized
}

func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:2] + "..." + s[len(s)-2:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
