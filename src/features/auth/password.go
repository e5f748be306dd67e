package auth

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const algorithmBcrypt = "bcrypt"

// PasswordHasher hashes and verifies passwords with bcrypt. The work
// factor is configurable; the default matches a home deployment.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher with the given bcrypt cost.
// A cost of 0 selects the default; out-of-range values are clamped.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost == 0 {
		cost = 8
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash generates a salted hash of the password and returns it with
// its algorithm tag.
func (h *PasswordHasher) Hash(password string) (hash, algorithm string, err error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), algorithmBcrypt, nil
}

// Verify compares a password with a stored hash. Hashes with an
// unknown algorithm tag never verify.
func (h *PasswordHasher) Verify(password, hash, algorithm string) bool {
	if algorithm != algorithmBcrypt {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// StrengthPolicy sets a minimum password length per character-class
// count (lowercase, uppercase, digit, symbol). The defaults are
// deliberately permissive for a single-user deployment.
type StrengthPolicy struct {
	MinLength [4]int // index = class count - 1
}

// DefaultStrengthPolicy requires length 4 at every tier.
func DefaultStrengthPolicy() StrengthPolicy {
	return StrengthPolicy{MinLength: [4]int{4, 4, 4, 4}}
}

// Validate reports whether the password satisfies the policy. The
// returned error is a *WeakPasswordError carrying the reason.
func (p StrengthPolicy) Validate(password string) error {
	if password == "" {
		return &WeakPasswordError{Reason: "password is empty"}
	}

	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	classes := 0
	for _, present := range []bool{lower, upper, digit, symbol} {
		if present {
			classes++
		}
	}

	// Length is measured in characters, not bytes, so multi-byte
	// passwords are not over-counted.
	min := p.MinLength[classes-1]
	if utf8.RuneCountInString(password) < min {
		return &WeakPasswordError{
			Reason: fmt.Sprintf("%d character class(es) require at least %d characters", classes, min),
		}
	}
	return nil
}
