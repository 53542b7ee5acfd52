package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// memSecrets is an in-memory SecretStore that counts writes
type memSecrets struct {
	data   map[string]string
	sets   int
	getErr error
}

func newMemSecrets() *memSecrets {
	return &memSecrets{data: map[string]string{}}
}

func (m *memSecrets) Get(service, user string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[service+"|"+user]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}

func (m *memSecrets) Set(service, user, secret string) error {
	m.sets++
	m.data[service+"|"+user] = secret
	return nil
}

func (m *memSecrets) Delete(service, user string) error {
	if _, ok := m.data[service+"|"+user]; !ok {
		return keyring.ErrNotFound
	}
	delete(m.data, service+"|"+user)
	return nil
}

func TestStoreEndpointRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "geofront-cli")
	store := NewStore(dir, newMemSecrets())

	_, err := store.LoadEndpoint(false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoEndpoint), "got %v", err)

	ep := mustParseEndpoint(t, "https://Geofront.Example/api", false)
	require.NoError(t, store.SaveEndpoint(ep))

	info, err := os.Stat(store.ServerFile())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(store.ServerFile())
	require.NoError(t, err)
	assert.Equal(t, "https://geofront.example/api/\n", string(data))

	loaded, err := store.LoadEndpoint(false)
	require.NoError(t, err)
	assert.Equal(t, ep.String(), loaded.String())
}

func TestStoreLoadEndpointInsecure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ServerFileName), []byte("http://geofront.local/\n"), 0600))
	store := NewStore(dir, newMemSecrets())

	_, err := store.LoadEndpoint(false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsecureEndpoint), "got %v", err)

	ep, err := store.LoadEndpoint(true)
	require.NoError(t, err)
	assert.True(t, ep.Insecure())
}

func TestStoreLoadEndpointEmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ServerFileName), []byte("  \n"), 0600))

	_, err := NewStore(dir, newMemSecrets()).LoadEndpoint(false)
	assert.True(t, errors.Is(err, ErrNoEndpoint), "got %v", err)
}

func TestStoreTokenLifecycle(t *testing.T) {
	secrets := newMemSecrets()
	store := NewStore(t.TempDir(), secrets)
	ep := mustParseEndpoint(t, "https://geofront.example/", false)
	other := mustParseEndpoint(t, "https://other.example/", false)

	_, err := store.Token(ep)
	assert.True(t, errors.Is(err, ErrNoToken), "got %v", err)

	require.NoError(t, store.SaveToken(ep, "abc"))
	assert.Equal(t, 1, secrets.sets, "token must be written in a single keyring call")

	tok, err := store.Token(ep)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	// tokens are bound to one endpoint
	_, err = store.Token(other)
	assert.True(t, errors.Is(err, ErrNoToken))

	require.NoError(t, store.DeleteToken(ep))
	_, err = store.Token(ep)
	assert.True(t, errors.Is(err, ErrNoToken))

	// deleting again is fine
	require.NoError(t, store.DeleteToken(ep))
}

func TestStoreRejectsEmptyToken(t *testing.T) {
	secrets := newMemSecrets()
	store := NewStore(t.TempDir(), secrets)

	err := store.SaveToken(mustParseEndpoint(t, "https://geofront.example/", false), "")
	require.Error(t, err)
	assert.Equal(t, 0, secrets.sets)
}

func TestStoreKeyringFailure(t *testing.T) {
	secrets := newMemSecrets()
	secrets.getErr = errors.New("dbus: connection refused")
	store := NewStore(t.TempDir(), secrets)

	_, err := store.Token(mustParseEndpoint(t, "https://geofront.example/", false))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoToken))
	assert.Contains(t, err.Error(), "dbus")
}

func TestStoreWithMockKeyring(t *testing.T) {
	keyring.MockInit()

	store := NewStore(t.TempDir(), nil)
	ep := mustParseEndpoint(t, "https://geofront.example/", false)

	require.NoError(t, store.SaveToken(ep, "tok-1"))
	tok, err := store.Token(ep)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	v, err := keyring.Get(KeyringService, ep.String())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", v)

	require.NoError(t, store.DeleteToken(ep))
}
