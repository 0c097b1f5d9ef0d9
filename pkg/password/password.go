// Package password provides one-way password hashing with a tunable work
// factor using bcrypt.
//
// The work factor (bcrypt cost) controls brute-force resistance: each
// increment doubles the hashing time. Costs below bcrypt.MinCost fall back
// to DefaultCost so a zero-value Hasher is safe to use.
//
// Usage:
//
//	hasher := password.New(12)
//
//	hash, err := hasher.Hash("s3cret")
//	if err != nil {
//		return err
//	}
//
//	if !hasher.Verify("s3cret", hash) {
//		return ErrInvalidCredentials
//	}
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// ErrHashFailed is returned when the underlying bcrypt operation fails,
// e.g. for passwords longer than 72 bytes.
var ErrHashFailed = errors.New("password: hashing failed")

// Hasher hashes and verifies passwords with a fixed work factor.
// The zero value uses DefaultCost.
type Hasher struct {
	cost int
}

// New creates a Hasher with the given bcrypt cost.
// Costs outside [bcrypt.MinCost, bcrypt.MaxCost] are replaced with DefaultCost.
func New(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return Hasher{cost: cost}
}

// Hash returns the bcrypt hash of plaintext. The result embeds the cost and
// salt, so it is not deterministic, but always verifiable via Verify.
func (h Hasher) Hash(plaintext string) (string, error) {
	cost := h.cost
	if cost == 0 {
		cost = DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", errors.Join(ErrHashFailed, err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the given bcrypt hash.
// The comparison is performed by bcrypt itself and is safe against timing
// attacks. Any malformed hash simply yields false.
func (h Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
