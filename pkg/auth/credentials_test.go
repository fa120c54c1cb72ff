package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func testAccount() *Account {
	return &Account{
		Slug:     "happykids",
		Username: "parent@example.com",
		Password: "correct horse battery",
	}
}

func clearEnv(t *testing.T) {
	t.Setenv("EDUCABIZ_SLUG", "")
	t.Setenv("EDUCABIZ_USERNAME", "")
	t.Setenv("EDUCABIZ_PASSWORD", "")
}

func TestAccountKey(t *testing.T) {
	assert.Equal(t, "happykids/parent@example.com", testAccount().Key())
	assert.Equal(t, "happykids/u", AccountKey("HappyKids", "u"))
}

func TestManagerRoundTrip(t *testing.T) {
	clearEnv(t)
	manager, store := NewMockManager()

	require.NoError(t, manager.Store(testAccount()))
	assert.Equal(t, 1, store.Count())

	got, err := manager.Retrieve("happykids", "parent@example.com")
	require.NoError(t, err)
	assert.Equal(t, "correct horse battery", got.Password)
	assert.False(t, got.LastModified.IsZero())

	accounts, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	require.NoError(t, manager.Delete("happykids", "parent@example.com"))
	_, err = manager.Retrieve("happykids", "parent@example.com")
	assert.True(t, errors.Is(err, ErrCredentialsNotFound))
}

func TestManagerStoreValidates(t *testing.T) {
	manager, _ := NewMockManager()

	for name, mutate := range map[string]func(*Account){
		"slug":     func(a *Account) { a.Slug = "" },
		"username": func(a *Account) { a.Username = "" },
		"password": func(a *Account) { a.Password = "" },
	} {
		t.Run(name, func(t *testing.T) {
			a := testAccount()
			mutate(a)
			assert.Error(t, manager.Store(a))
		})
	}
	assert.ErrorIs(t, manager.Store(nil), ErrInvalidCredentials)
}

func TestManagerFallsBackAndIndexes(t *testing.T) {
	clearEnv(t)
	primary := NewMockStore()
	index := NewMockStore()
	manager := NewManagerWithStores(primary, index)

	require.NoError(t, manager.Store(testAccount()))

	indexed, err := index.Retrieve(testAccount().Key())
	require.NoError(t, err)
	assert.Empty(t, indexed.Password, "index entries never carry the password")

	got, err := manager.Retrieve("happykids", "parent@example.com")
	require.NoError(t, err)
	assert.Equal(t, "correct horse battery", got.Password)

	primary.StoreError = errors.New("keychain locked")
	second := testAccount()
	second.Username = "other@example.com"
	require.NoError(t, manager.Store(second))
	stored, err := index.Retrieve(second.Key())
	require.NoError(t, err)
	assert.Equal(t, "correct horse battery", stored.Password)
}

func TestRetrieveDefault(t *testing.T) {
	clearEnv(t)
	manager, _ := NewMockManager()

	_, err := manager.RetrieveDefault("happykids")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, manager.Store(testAccount()))
	got, err := manager.RetrieveDefault("happykids")
	require.NoError(t, err)
	assert.Equal(t, "parent@example.com", got.Username)

	second := testAccount()
	second.Username = "other@example.com"
	require.NoError(t, manager.Store(second))
	_, err = manager.RetrieveDefault("happykids")
	assert.ErrorContains(t, err, "--account")

	_, err = manager.RetrieveDefault("otherschool")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestRetrieveDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv("EDUCABIZ_SLUG", "happykids")
	t.Setenv("EDUCABIZ_USERNAME", "env@example.com")
	t.Setenv("EDUCABIZ_PASSWORD", "from-env")

	mock := NewMockStore()
	require.NoError(t, mock.Store(testAccount()))
	manager := NewManagerWithStores(mock, NewEnvironmentStore())

	got, err := manager.RetrieveDefault("happykids")
	require.NoError(t, err)
	assert.Equal(t, "env@example.com", got.Username)
}

func TestEnvironmentStore(t *testing.T) {
	clearEnv(t)
	store := NewEnvironmentStore()

	assert.False(t, store.Exists(""))
	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)

	t.Setenv("EDUCABIZ_SLUG", "happykids")
	t.Setenv("EDUCABIZ_USERNAME", "parent@example.com")
	t.Setenv("EDUCABIZ_PASSWORD", "pw")

	assert.True(t, store.Exists(""))
	assert.True(t, store.Exists("happykids/parent@example.com"))
	assert.False(t, store.Exists("happykids/someone@example.com"))
	assert.ErrorIs(t, store.Store(testAccount()), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete(""), ErrStoreUnavailable)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(passphraseEnv, "test-passphrase")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = store.Retrieve(testAccount().Key())
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, store.Store(testAccount()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "correct horse battery")
	assert.NotContains(t, string(raw), "parent@example.com")

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	got, err := reopened.Retrieve(testAccount().Key())
	require.NoError(t, err)
	assert.Equal(t, "correct horse battery", got.Password)

	require.NoError(t, reopened.Delete(testAccount().Key()))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(passphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(testAccount()))

	t.Setenv(passphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve(testAccount().Key())
	assert.ErrorContains(t, err, passphraseEnv)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(passphraseEnv, "")
	dir := t.TempDir()

	_, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, passphraseFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(testAccount()))
	assert.True(t, store.Exists(testAccount().Key()))

	got, err := store.Retrieve(testAccount().Key())
	require.NoError(t, err)
	assert.Equal(t, "correct horse battery", got.Password)

	require.NoError(t, store.Delete(testAccount().Key()))
	assert.ErrorIs(t, store.Delete(testAccount().Key()), ErrCredentialsNotFound)
}

func TestNewManagerAtListsKeyringAccounts(t *testing.T) {
	keyring.MockInit()
	clearEnv(t)
	t.Setenv(passphraseEnv, "test-passphrase")

	manager, err := NewManagerAt(t.TempDir(), true)
	require.NoError(t, err)
	require.NoError(t, manager.Store(testAccount()))

	accounts, err := manager.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	got, err := manager.RetrieveDefault("happykids")
	require.NoError(t, err)
	assert.Equal(t, "correct horse battery", got.Password)

	require.NoError(t, manager.DeleteAll())
	accounts, err = manager.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestSanitizeAccount(t *testing.T) {
	s := SanitizeAccount(testAccount())
	assert.Equal(t, "parent@example.com", s.Username)
	assert.NotEqual(t, "correct horse battery", s.Password)
	assert.Nil(t, SanitizeAccount(nil))
}

func TestShowCredentialGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowCredentialGuide(&buf)
	assert.Contains(t, buf.String(), "EDUCABIZ_PASSWORD")
	assert.Contains(t, buf.String(), "ebexport auth login")
}
