package utils

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")

	token, err := GenerateToken("42", "admin")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "42" || claims.Role != "admin" {
		t.Fatalf("claims do not round-trip: %+v", claims)
	}
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-one")
	token, err := GenerateToken("1", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	t.Setenv("JWT_SECRET", "secret-two")
	if _, err := VerifyToken(token); err == nil {
		t.Fatal("token signed with another secret must not verify")
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := GenerateToken("1", "user"); err == nil {
		t.Fatal("expected error when JWT_SECRET is unset")
	}
}
