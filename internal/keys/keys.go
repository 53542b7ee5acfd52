// Package keys reads OpenSSH public keys and certificates for registration
// with the server and for attaching short-lived certificates to a target.
package keys

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/derekg/geofront-cli/internal/config"
)

// ErrNoPublicKey is returned when none of the default public key files exist
var ErrNoPublicKey = errors.New("no SSH public key found")

// PublicKey is a parsed authorized_keys entry
type PublicKey struct {
	Key     ssh.PublicKey
	Comment string
}

// ParseAuthorizedKey parses a single authorized_keys line
func ParseAuthorizedKey(line []byte) (*PublicKey, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, fmt.Errorf("empty public key")
	}
	key, comment, _, _, err := ssh.ParseAuthorizedKey(line)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	return &PublicKey{Key: key, Comment: comment}, nil
}

// Type returns the key algorithm, e.g. "ssh-ed25519"
func (k *PublicKey) Type() string {
	return k.Key.Type()
}

// Fingerprint returns the colon-separated MD5 fingerprint the server keys
// its key list by.
func (k *PublicKey) Fingerprint() string {
	return ssh.FingerprintLegacyMD5(k.Key)
}

// FingerprintSHA256 returns the fingerprint in the format modern OpenSSH prints
func (k *PublicKey) FingerprintSHA256() string {
	return ssh.FingerprintSHA256(k.Key)
}

// AuthorizedKey renders the key as an authorized_keys line without a trailing newline
func (k *PublicKey) AuthorizedKey() string {
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(k.Key)))
	if k.Comment != "" {
		line += " " + k.Comment
	}
	return line
}

// String implements fmt.Stringer
func (k *PublicKey) String() string {
	return k.AuthorizedKey()
}

// Equal compares key material only; comments are ignored
func (k *PublicKey) Equal(other *PublicKey) bool {
	if k == nil || other == nil {
		return k == other
	}
	return bytes.Equal(k.Key.Marshal(), other.Key.Marshal())
}

// Discover finds the preferred public key in homeDir/.ssh, trying
// ed25519, ecdsa and rsa in that order. Unreadable or malformed files are
// logged and skipped.
func Discover(homeDir string, logger *log.Logger) (string, *PublicKey, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if homeDir == "" {
		return "", nil, fmt.Errorf("home directory is required for key discovery")
	}

	sshDir := filepath.Join(homeDir, config.SSHConfigDir)
	if _, err := os.Stat(sshDir); os.IsNotExist(err) {
		logger.Printf("SSH directory %s does not exist", sshDir)
		return "", nil, ErrNoPublicKey
	}

	for _, name := range config.PublicKeyFiles {
		path := filepath.Join(sshDir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Printf("Failed to read %s: %v", path, err)
			continue
		}

		key, err := ParseAuthorizedKey(data)
		if err != nil {
			logger.Printf("Skipping %s: %v", path, err)
			continue
		}

		logger.Printf("Found public key: %s (type: %s)", path, key.Type())
		return path, key, nil
	}

	logger.Printf("No public keys found in %s (searched: %v)", sshDir, config.PublicKeyFiles)
	return "", nil, ErrNoPublicKey
}

// IdentityFor returns the private key path that belongs to a discovered
// public key path, if that file exists.
func IdentityFor(publicKeyPath string) string {
	priv := strings.TrimSuffix(publicKeyPath, ".pub")
	if priv == publicKeyPath {
		return ""
	}
	if info, err := os.Stat(priv); err == nil && !info.IsDir() {
		return priv
	}
	return ""
}

// ParseCertificate parses an OpenSSH certificate in authorized_keys format
func ParseCertificate(data []byte) (*ssh.Certificate, error) {
	key, err := ParseAuthorizedKey(data)
	if err != nil {
		return nil, err
	}
	cert, ok := key.Key.(*ssh.Certificate)
	if !ok {
		return nil, fmt.Errorf("not an SSH certificate: %s", key.Type())
	}
	return cert, nil
}

// CertificateValidAt reports whether now lies inside the certificate's validity window
func CertificateValidAt(cert *ssh.Certificate, now time.Time) bool {
	unix := uint64(now.Unix())
	if unix < cert.ValidAfter {
		return false
	}
	return cert.ValidBefore == ssh.CertTimeInfinity || unix < cert.ValidBefore
}
