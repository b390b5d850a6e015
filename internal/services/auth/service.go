package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/partycoord/internal/model"
)

// ErrNoAdminSecret is returned when the service is built without a secret
var ErrNoAdminSecret = errors.New("admin secret must not be empty")

// AdminVerifier checks the admin password required to create parties.
// The secret is either plain text or a bcrypt hash.
type AdminVerifier struct {
	digest [sha256.Size]byte
	hash   []byte
}

// NewAdminVerifier builds a verifier from the configured secret
func NewAdminVerifier(secret string) (*AdminVerifier, error) {
	if secret == "" {
		return nil, ErrNoAdminSecret
	}
	if IsBcryptHash(secret) {
		if _, err := bcrypt.Cost([]byte(secret)); err != nil {
			return nil, err
		}
		return &AdminVerifier{hash: []byte(secret)}, nil
	}
	return &AdminVerifier{digest: sha256.Sum256([]byte(secret))}, nil
}

// Verify returns model.ErrInvalidAdminPassword unless password matches the secret
func (v *AdminVerifier) Verify(password string) error {
	if v.hash != nil {
		if err := bcrypt.CompareHashAndPassword(v.hash, []byte(password)); err != nil {
			return model.ErrInvalidAdminPassword
		}
		return nil
	}

	// Digests have a fixed length so the comparison time does not depend on the input
	given := sha256.Sum256([]byte(password))
	if subtle.ConstantTimeCompare(given[:], v.digest[:]) != 1 {
		return model.ErrInvalidAdminPassword
	}
	return nil
}

// IsBcryptHash reports whether secret looks like a bcrypt hash
func IsBcryptHash(secret string) bool {
	return strings.HasPrefix(secret, "$2a$") ||
		strings.HasPrefix(secret, "$2b$") ||
		strings.HasPrefix(secret, "$2y$")
}

// HashSecret produces a bcrypt hash suitable for the admin password setting
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
