package security

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/apiecommerce/identity-service/internal/core/domain"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	for _, pwd := range []string{"Secr3t!", "", "pässwörd", strings.Repeat("a", 60)} {
		hash, err := h.Hash(pwd)
		if err != nil {
			t.Fatalf("Hash(%q) returned error: %v", pwd, err)
		}
		if hash == pwd {
			t.Fatalf("expected password to be hashed")
		}
		if !h.Verify(pwd, hash) {
			t.Fatalf("Verify(%q) = false, want true", pwd)
		}
		if h.Verify(pwd+"x", hash) {
			t.Fatalf("Verify accepted a different password")
		}
	}
}

func TestBcryptHasher_SaltPerCall(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	a, _ := h.Hash("same")
	b, _ := h.Hash("same")
	if a == b {
		t.Fatalf("expected distinct hashes for the same password")
	}
}

func TestBcryptHasher_MalformedHash(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	for _, hash := range []string{"", "not-a-hash", "$2a$10$short"} {
		if h.Verify("pwd", hash) {
			t.Fatalf("Verify accepted malformed hash %q", hash)
		}
	}
}

func TestBcryptHasher_TooLong(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	if _, err := h.Hash(strings.Repeat("a", 73)); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNewBcryptHasher_DefaultCost(t *testing.T) {
	if h := NewBcryptHasher(0); h.cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", h.cost)
	}
	if h := NewBcryptHasher(99); h.cost != bcrypt.DefaultCost {
		t.Fatalf("expected default cost, got %d", h.cost)
	}
}
