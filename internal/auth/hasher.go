package auth

import (
	"golang.org/x/crypto/bcrypt"

	dErrors "tradegate/pkg/domain-errors"
)

// PasswordHasher abstracts the hash scheme so tests can swap in a cheap one.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// BcryptHasher hashes with bcrypt at the default cost.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: bcrypt.DefaultCost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	raw, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (h *BcryptHasher) Compare(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

const minPasswordLength = 8

// ValidatePassword enforces the minimum credential strength accepted at
// registration and reset.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return dErrors.Newf(dErrors.CodeValidation, "password must be at least %d characters long", minPasswordLength)
	}
	return nil
}
