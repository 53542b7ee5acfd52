package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/juju/errors"
	"github.com/zalando/go-keyring"

	"github.com/derekg/geofront-cli/internal/security"
)

var (
	// ErrNoEndpoint is returned when no server URL has been configured yet
	ErrNoEndpoint = errors.New("no server URL configured; run `geofront-cli start` first")

	// ErrNoToken is returned when the keyring holds no token for the endpoint
	ErrNoToken = errors.New("no access token stored")
)

// SecretStore is the subset of a platform keyring the store needs
type SecretStore interface {
	Get(service, user string) (string, error)
	Set(service, user, secret string) error
	Delete(service, user string) error
}

// keyringStore adapts the zalando/go-keyring package functions
type keyringStore struct{}

func (keyringStore) Get(service, user string) (string, error) { return keyring.Get(service, user) }
func (keyringStore) Set(service, user, secret string) error  { return keyring.Set(service, user, secret) }
func (keyringStore) Delete(service, user string) error       { return keyring.Delete(service, user) }

// SystemKeyring returns the platform keyring
func SystemKeyring() SecretStore {
	return keyringStore{}
}

// Store owns the persisted server URL and the access token
type Store struct {
	dir     string
	secrets SecretStore
}

// NewStore creates a store rooted at dir. An empty dir means DefaultDir(),
// a nil secrets means the system keyring.
func NewStore(dir string, secrets SecretStore) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	if secrets == nil {
		secrets = SystemKeyring()
	}
	return &Store{dir: dir, secrets: secrets}
}

// DefaultDir returns $XDG_CONFIG_HOME/geofront-cli
func DefaultDir() string {
	return filepath.Join(xdg.ConfigHome, ConfigDirName)
}

// Dir returns the directory the store writes to
func (s *Store) Dir() string {
	return s.dir
}

// ServerFile returns the path of the file holding the server URL
func (s *Store) ServerFile() string {
	return filepath.Join(s.dir, ServerFileName)
}

// LoadEndpoint reads and validates the configured server URL
func (s *Store) LoadEndpoint(allowInsecure bool) (Endpoint, error) {
	data, err := os.ReadFile(s.ServerFile())
	if os.IsNotExist(err) {
		return Endpoint{}, errors.Trace(ErrNoEndpoint)
	}
	if err != nil {
		return Endpoint{}, errors.Annotatef(err, "reading %s", s.ServerFile())
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return Endpoint{}, errors.Trace(ErrNoEndpoint)
	}

	ep, err := ParseEndpoint(raw, allowInsecure)
	if err != nil {
		return Endpoint{}, errors.Annotatef(err, "server URL in %s", s.ServerFile())
	}
	return ep, nil
}

// SaveEndpoint writes the server URL atomically with 0600 permissions
func (s *Store) SaveEndpoint(ep Endpoint) error {
	if ep.IsZero() {
		return errors.NotValidf("empty endpoint")
	}
	if err := os.MkdirAll(s.dir, SecureDirectoryPermissions); err != nil {
		return errors.Annotatef(err, "creating %s", s.dir)
	}
	err := security.WriteFileAtomic(s.ServerFile(), []byte(ep.String()+"\n"), SecureFilePermissions)
	return errors.Annotate(err, "saving server URL")
}

// Token returns the access token stored for ep
func (s *Store) Token(ep Endpoint) (string, error) {
	tok, err := s.secrets.Get(KeyringService, ep.String())
	if errors.Is(err, keyring.ErrNotFound) {
		return "", errors.Trace(ErrNoToken)
	}
	if err != nil {
		return "", errors.Annotate(err, "reading token from keyring")
	}
	if tok == "" {
		return "", errors.Trace(ErrNoToken)
	}
	return tok, nil
}

// SaveToken stores token for ep in a single keyring write
func (s *Store) SaveToken(ep Endpoint, token string) error {
	if token == "" {
		return errors.NotValidf("empty token")
	}
	err := s.secrets.Set(KeyringService, ep.String(), token)
	return errors.Annotate(err, "saving token to keyring")
}

// DeleteToken removes the token for ep. A missing token is not an error.
func (s *Store) DeleteToken(ep Endpoint) error {
	err := s.secrets.Delete(KeyringService, ep.String())
	if err == nil || errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return errors.Annotate(err, "deleting token from keyring")
}
