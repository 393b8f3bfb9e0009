package auth

import (
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)

	raw, err := m.Sign(42, "player1", "user")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := m.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	userID, err := claims.UserID()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if userID != 42 || claims.Username != "player1" || claims.Role != "user" {
		t.Fatalf("unexpected claims: id=%d username=%q role=%q", userID, claims.Username, claims.Role)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, err := NewTokenManager("secret-a", time.Hour).Sign(1, "player1", "user")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewTokenManager("secret-b", time.Hour).Verify(raw); err == nil {
		t.Fatalf("token signed with another secret must not verify")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewTokenManager("secret", -time.Minute)
	raw, err := m.Sign(1, "player1", "user")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Verify(raw); err == nil {
		t.Fatalf("expired token must not verify")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	if _, err := m.Verify("not.a.token"); err == nil {
		t.Fatalf("garbage must not verify")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter2!" {
		t.Fatalf("hash must not equal the plaintext")
	}
	if !VerifyPassword(hash, "hunter2!") {
		t.Fatalf("correct password must verify")
	}
	if VerifyPassword(hash, "wrong") {
		t.Fatalf("wrong password must not verify")
	}
}
