package auth

import (
	"errors"
	"testing"
	"time"
)

func TestSignAndParse(t *testing.T) {
	s := NewSigner("top-secret")
	tok, err := s.Sign("user-1", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	uid, err := s.Parse(tok)
	if err != nil || uid != "user-1" {
		t.Errorf("Parse = %q, %v", uid, err)
	}

	if _, err := NewSigner("other").Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for wrong secret, got %v", err)
	}
	if _, err := s.Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestParseExpired(t *testing.T) {
	s := NewSigner("top-secret")
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err := s.Sign("user-1", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	s.now = time.Now
	if _, err := s.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected expired token to be rejected, got %v", err)
	}
}

func TestSignRequiresUser(t *testing.T) {
	if _, err := NewSigner("x").Sign("", time.Hour); err == nil {
		t.Error("Expected error for empty user id")
	}
}
