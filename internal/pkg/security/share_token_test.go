package security

import (
	"strings"
	"testing"
	"time"
)

func TestShareTokenRoundTrip(t *testing.T) {
	token, err := GenerateShareToken(42, "req-uuid-1", time.Hour, "secret")
	if err != nil {
		t.Fatalf("GenerateShareToken: %v", err)
	}

	claims, err := VerifyShareToken(token, "secret")
	if err != nil {
		t.Fatalf("VerifyShareToken: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("user id = %d, want 42", claims.UserID)
	}
	if claims.RequestUUID != "req-uuid-1" {
		t.Fatalf("request uuid = %q, want req-uuid-1", claims.RequestUUID)
	}
}

func TestShareTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateShareToken(1, "req", time.Hour, "secret-a")
	if err != nil {
		t.Fatalf("GenerateShareToken: %v", err)
	}
	if _, err := VerifyShareToken(token, "secret-b"); err == nil {
		t.Fatal("expected verification to fail with wrong secret")
	}
}

func TestShareTokenRejectsTampering(t *testing.T) {
	token, err := GenerateShareToken(1, "req", time.Hour, "secret")
	if err != nil {
		t.Fatalf("GenerateShareToken: %v", err)
	}
	parts := strings.SplitN(token, ".", 2)
	tampered := parts[0] + "x." + parts[1]
	if _, err := VerifyShareToken(tampered, "secret"); err == nil {
		t.Fatal("expected verification to fail for tampered payload")
	}
}

func TestShareTokenRejectsExpired(t *testing.T) {
	token, err := GenerateShareToken(1, "req", -time.Minute, "secret")
	if err != nil {
		t.Fatalf("GenerateShareToken: %v", err)
	}
	if _, err := VerifyShareToken(token, "secret"); err == nil {
		t.Fatal("expected verification to fail for expired token")
	}
}

func TestShareTokenRequiresSecret(t *testing.T) {
	if _, err := GenerateShareToken(1, "req", time.Hour, ""); err == nil {
		t.Fatal("expected generation to fail without secret")
	}
	if _, err := VerifyShareToken("a.b", ""); err == nil {
		t.Fatal("expected verification to fail without secret")
	}
}
