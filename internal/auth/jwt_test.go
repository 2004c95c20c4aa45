package auth

import (
	"testing"
	"time"
)

func testManager() *Manager {
	return &Manager{
		Secret:     []byte("test-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Issuer:     "portfolio-backend",
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := testManager()

	token, err := m.NewAccessToken("admin")
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	claims, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Role != "admin" {
		t.Errorf("role = %q, want admin", claims.Role)
	}
	if claims.Issuer != "portfolio-backend" {
		t.Errorf("issuer = %q, want portfolio-backend", claims.Issuer)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	m := testManager()
	token, err := m.NewAccessToken("admin")
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}

	other := testManager()
	other.Secret = []byte("different-secret")
	if _, err := other.Parse(token); err == nil {
		t.Error("expected parse error with wrong secret")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := testManager()
	m.AccessTTL = -time.Minute

	token, err := m.NewAccessToken("admin")
	if err != nil {
		t.Fatalf("NewAccessToken: %v", err)
	}
	if _, err := m.Parse(token); err == nil {
		t.Error("expected parse error for expired token")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	m := testManager()
	if _, err := m.Parse("not-a-jwt"); err == nil {
		t.Error("expected parse error for malformed token")
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash must not equal plaintext")
	}
	if err := ComparePassword(hash, "correct horse battery staple"); err != nil {
		t.Errorf("ComparePassword: %v", err)
	}
	if err := ComparePassword(hash, "wrong password"); err == nil {
		t.Error("expected mismatch error")
	}
}
