package secrets

import (
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// DefaultTokenLifetime bounds REST API tokens issued from the signing
// key.
const DefaultTokenLifetime = 30 * time.Minute

// TokenClaims extends the registered JWT claims with the Slurm
// username the REST daemon authenticates.
type TokenClaims struct {
	jwt.RegisteredClaims

	SlurmUsername string `json:"sun,omitempty"`
}

// IssueToken signs a short-lived token for the given username with the
// locally installed signing key.
func (m *Manager) IssueToken(username string, lifetime time.Duration) (string, error) {
	if username == "" {
		return "", errors.New("username is not provided")
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}

	signingKey, err := os.ReadFile(m.signingKeyPath)
	if err != nil {
		return "", errors.Wrap(err, "failed to read signing key")
	}

	issuedAt := time.Now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			NotBefore: jwt.NewNumericDate(issuedAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(lifetime)),
		},
		SlurmUsername: username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}
