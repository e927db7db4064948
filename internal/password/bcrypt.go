package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMismatch is returned when a plaintext does not match a hash
var ErrMismatch = errors.New("password does not match")

// Verifier hashes and verifies passwords
type Verifier interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) error
}

// BcryptVerifier implements Verifier with bcrypt
type BcryptVerifier struct {
	cost int
}

// NewBcrypt returns a bcrypt verifier. Out of range costs fall back to bcrypt.DefaultCost.
func NewBcrypt(cost int) *BcryptVerifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptVerifier{cost: cost}
}

func (b *BcryptVerifier) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), b.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

func (b *BcryptVerifier) Verify(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	return nil
}
