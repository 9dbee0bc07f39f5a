// Package admin verifies administrator credentials. The clinic previously
// shipped a hard-coded password check in the front end; this replaces it
// with a bcrypt hash supplied through configuration.
package admin

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredential = errors.New("invalid admin credential")

// Verifier checks a presented admin credential.
type Verifier interface {
	Verify(credential string) error
}

type bcryptVerifier struct {
	hash []byte
}

// NewBcryptVerifier builds a Verifier from a bcrypt hash. An empty hash
// yields a verifier that rejects everything, which effectively disables
// the admin surface.
func NewBcryptVerifier(hash string) Verifier {
	return &bcryptVerifier{hash: []byte(hash)}
}

func (v *bcryptVerifier) Verify(credential string) error {
	if len(v.hash) == 0 {
		return ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword(v.hash, []byte(credential)); err != nil {
		return ErrInvalidCredential
	}
	return nil
}

// HashCredential produces a bcrypt hash suitable for ADMIN_CREDENTIAL_HASH.
func HashCredential(credential string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
