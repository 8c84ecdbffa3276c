package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-password/password"
)

const (
	authKeyLength    = 86
	signingKeyLength = 64
)

// Manager holds the cluster-wide shared secret (munge key) and the JWT
// signing key on local disk. Keys travel between units only through
// relation facts, base64-encoded.
type Manager struct {
	authKeyPath    string
	signingKeyPath string
}

func NewManager(authKeyPath, signingKeyPath string) *Manager {
	return &Manager{
		authKeyPath:    authKeyPath,
		signingKeyPath: signingKeyPath,
	}
}

// GenerateAuthKey creates fresh shared-secret material and installs it
// locally. Rotating the key supersedes the previous one entirely.
func (m *Manager) GenerateAuthKey() (string, error) {
	key, err := password.Generate(authKeyLength, 10, 0, false, true)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate auth key")
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(key))
	if err := m.SetAuthKey(encoded); err != nil {
		return "", err
	}
	return encoded, nil
}

// AuthKey returns the locally installed shared secret, base64-encoded
// for transport.
func (m *Manager) AuthKey() (string, error) {
	raw, err := os.ReadFile(m.authKeyPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to read auth key")
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// SetAuthKey installs received shared-secret material locally.
func (m *Manager) SetAuthKey(encoded string) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return errors.Wrap(err, "auth key is not valid base64")
	}
	return writeKeyFile(m.authKeyPath, raw)
}

// GenerateSigningKey creates a cryptographically secure random signing
// key for token authentication and installs it locally.
func (m *Manager) GenerateSigningKey() (string, error) {
	key := make([]byte, signingKeyLength)
	if _, err := rand.Read(key); err != nil {
		return "", errors.Wrap(err, "failed to generate signing key")
	}

	if err := writeKeyFile(m.signingKeyPath, key); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// SigningKey returns the locally installed signing key, base64-encoded.
func (m *Manager) SigningKey() (string, error) {
	raw, err := os.ReadFile(m.signingKeyPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to read signing key")
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// SetSigningKey installs a received signing key locally.
func (m *Manager) SetSigningKey(encoded string) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return errors.Wrap(err, "signing key is not valid base64")
	}
	return writeKeyFile(m.signingKeyPath, raw)
}

func writeKeyFile(path string, raw []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrapf(err, "failed to create key directory for %s", path)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return errors.Wrapf(err, "failed to write key file %s", path)
	}
	return nil
}
