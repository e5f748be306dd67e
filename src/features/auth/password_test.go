package auth

import (
	"errors"
	"testing"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(4)

	hash, algorithm, err := hasher.Hash("correct horse")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if algorithm != "bcrypt" {
		t.Errorf("expected bcrypt tag, got %q", algorithm)
	}
	if !hasher.Verify("correct horse", hash, algorithm) {
		t.Error("expected matching password to verify")
	}
	if hasher.Verify("wrong horse", hash, algorithm) {
		t.Error("expected mismatched password to fail")
	}
}

func TestUnknownAlgorithmNeverVerifies(t *testing.T) {
	hasher := NewPasswordHasher(4)

	hash, _, err := hasher.Hash("secret")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hasher.Verify("secret", hash, "md5") {
		t.Error("expected unknown algorithm tag to fail verification")
	}
}

func TestHasherCostClamping(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, 8},
		{2, 4},   // below bcrypt minimum
		{40, 31}, // above bcrypt maximum
		{10, 10},
	}
	for _, c := range cases {
		hasher := NewPasswordHasher(c.in)
		if hasher.cost != c.want {
			t.Errorf("cost %d: expected %d, got %d", c.in, c.want, hasher.cost)
		}
	}
}

func TestStrengthPolicyClassTiers(t *testing.T) {
	policy := StrengthPolicy{MinLength: [4]int{12, 10, 8, 6}}

	cases := []struct {
		name     string
		password string
		ok       bool
	}{
		{"one class too short", "aaaaaaaa", false},
		{"one class long enough", "aaaaaaaaaaaa", true},
		{"two classes too short", "aaaaAAAA", false},
		{"two classes long enough", "aaaaaAAAAA", true},
		{"three classes", "aaaAAA11", true},
		{"four classes", "aA1!aA", true},
		{"four classes too short", "aA1!", false},
	}
	for _, c := range cases {
		err := policy.Validate(c.password)
		if c.ok && err != nil {
			t.Errorf("%s: expected valid, got %v", c.name, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%s: expected weak-password error", c.name)
		}
	}
}

func TestStrengthPolicyEmptyPassword(t *testing.T) {
	err := DefaultStrengthPolicy().Validate("")
	var weak *WeakPasswordError
	if !errors.As(err, &weak) {
		t.Fatalf("expected WeakPasswordError, got %v", err)
	}
}

func TestDefaultPolicyAcceptsShortPasswords(t *testing.T) {
	if err := DefaultStrengthPolicy().Validate("abcd"); err != nil {
		t.Errorf("expected 4-character password accepted by default, got %v", err)
	}
}

func TestStrengthPolicyCountsCharactersNotBytes(t *testing.T) {
	policy := DefaultStrengthPolicy()

	// Two characters, four bytes: still too short.
	if err := policy.Validate("åå"); err == nil {
		t.Error("expected 2-character multi-byte password rejected")
	}
	// Four characters, eight bytes: long enough.
	if err := policy.Validate("åååå"); err != nil {
		t.Errorf("expected 4-character multi-byte password accepted, got %v", err)
	}
}
