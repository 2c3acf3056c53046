package auth

import (
	"testing"
	"time"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour, "dentaray")

	id := &Identity{
		Email:          "doc@example.com",
		Name:           "Dr. Example",
		Role:           RoleDoctor,
		OrganizationID: "org-1",
	}

	token, err := issuer.Issue(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if claims.Email != "doc@example.com" {
		t.Errorf("expected email doc@example.com, got %s", claims.Email)
	}
	if claims.Role != RoleDoctor {
		t.Errorf("expected role doctor, got %s", claims.Role)
	}
	if claims.OrganizationID != "org-1" {
		t.Errorf("expected organization org-1, got %s", claims.OrganizationID)
	}
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", -time.Minute, "dentaray")

	token, err := issuer.Issue(&Identity{Email: "a@b.c", Role: RolePatient})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := issuer.Verify(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestTokenIssuer_RejectsWrongSecret(t *testing.T) {
	issuer := NewTokenIssuer("secret-a", time.Hour, "dentaray")
	other := NewTokenIssuer("secret-b", time.Hour, "dentaray")

	token, err := issuer.Issue(&Identity{Email: "a@b.c", Role: RolePatient})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := other.Verify(token); err == nil {
		t.Error("expected error for token signed with different secret")
	}
}

func TestTokenIssuer_RejectsGarbage(t *testing.T) {
	issuer := NewTokenIssuer("test-secret", time.Hour, "dentaray")
	if _, err := issuer.Verify("not.a.token"); err == nil {
		t.Error("expected error for malformed token")
	}
}
