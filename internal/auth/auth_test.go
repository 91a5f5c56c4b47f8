package auth

import (
	"net/http/httptest"
	"testing"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	a := New("secret", 60)

	hash, err := a.HashPassword("hunter22hunter22")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !a.CheckPassword(hash, "hunter22hunter22") {
		t.Error("correct password rejected")
	}
	if a.CheckPassword(hash, "wrong-password") {
		t.Error("wrong password accepted")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	a := New("secret", 60)

	token, err := a.GenerateToken("u1", "pat")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := a.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "pat" {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	a := New("secret", 60)
	b := New("other-secret", 60)

	token, err := a.GenerateToken("u1", "pat")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := b.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret validated")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	a := New("secret", -1) // already expired at issue time

	token, err := a.GenerateToken("u1", "pat")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := a.ValidateToken(token); err == nil {
		t.Error("expired token validated")
	}
}

func TestExtractClaims(t *testing.T) {
	a := New("secret", 60)
	token, _ := a.GenerateToken("u1", "pat")

	r := httptest.NewRequest("GET", "/games", nil)
	if a.ExtractClaims(r) != nil {
		t.Error("expected nil claims without Authorization header")
	}

	r.Header.Set("Authorization", "Bearer "+token)
	claims := a.ExtractClaims(r)
	if claims == nil || claims.UserID != "u1" {
		t.Errorf("expected claims for valid bearer token, got %+v", claims)
	}

	r.Header.Set("Authorization", "Bearer garbage")
	if a.ExtractClaims(r) != nil {
		t.Error("expected nil claims for invalid token")
	}

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if a.ExtractClaims(r) != nil {
		t.Error("expected nil claims for non-bearer scheme")
	}
}

func TestHasBearer(t *testing.T) {
	r := httptest.NewRequest("GET", "/games", nil)
	if HasBearer(r) {
		t.Error("no header should not count as bearer")
	}
	r.Header.Set("Authorization", "Bearer something")
	if !HasBearer(r) {
		t.Error("bearer header not detected")
	}
	r.Header.Set("Authorization", "Basic xyz")
	if HasBearer(r) {
		t.Error("basic auth counted as bearer")
	}
}
