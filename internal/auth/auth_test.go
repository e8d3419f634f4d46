package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	service := NewService("test-secret", "quizforge", time.Hour)

	token, err := service.Issue("owner-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	ownerID, err := service.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ownerID != "owner-1" {
		t.Fatalf("expected owner-1, got %q", ownerID)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewService("secret-a", "quizforge", time.Hour)
	verifier := NewService("secret-b", "quizforge", time.Hour)

	token, err := issuer.Issue("owner-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	service := NewService("test-secret", "quizforge", time.Hour)
	if _, err := service.Verify("not.a.token"); err != ErrInvalidToken {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if _, err := service.Verify(""); err != ErrInvalidToken {
		t.Fatalf("expected invalid token for empty string, got %v", err)
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	issuer := NewService("test-secret", "someone-else", time.Hour)
	verifier := NewService("test-secret", "quizforge", time.Hour)

	token, err := issuer.Issue("owner-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected issuer mismatch rejection, got %v", err)
	}

	// No configured issuer accepts any issuer claim.
	open := NewService("test-secret", "", time.Hour)
	if _, err := open.Verify(token); err != nil {
		t.Fatalf("expected open verifier to accept token, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	service := NewService("test-secret", "quizforge", -time.Hour)
	// ttl <= 0 falls back to a day, so build one that is already expired.
	short := &Service{secret: []byte("test-secret"), issuer: "quizforge", ttl: -time.Minute}
	token, err := short.Issue("owner-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := service.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expected expired token rejection, got %v", err)
	}
}
