package utils

import (
	"errors"
	"testing"
	"time"
)

func init() {
	SetJWTSecret("test-secret-key-for-testing")
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(1, "alice", "admin", 24)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if token == "" {
		t.Error("GenerateToken() returned empty token")
	}

	if len(token) < 50 {
		t.Errorf("token seems too short: %d chars", len(token))
	}
}

func TestGenerateToken_DifferentUsers(t *testing.T) {
	token1, _ := GenerateToken(1, "alice", "admin", 24)
	token2, _ := GenerateToken(2, "bob", "member", 24)

	if token1 == token2 {
		t.Error("different users should produce different tokens")
	}
}

func TestParseToken_RoundTrip(t *testing.T) {
	token, _ := GenerateToken(42, "carol", "team_leader", 24)

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	if claims.UserID != 42 {
		t.Errorf("UserID = %d, expected 42", claims.UserID)
	}
	if claims.Username != "carol" {
		t.Errorf("Username = %q, expected %q", claims.Username, "carol")
	}
	if claims.Role != "team_leader" {
		t.Errorf("Role = %q, expected %q", claims.Role, "team_leader")
	}
}

func TestParseToken_Malformed(t *testing.T) {
	invalidTokens := []string{
		"",
		"garbage",
		"not.a.token",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
	}

	for _, token := range invalidTokens {
		_, err := ParseToken(token)
		if !errors.Is(err, ErrTokenMalformed) {
			t.Errorf("ParseToken(%q) error = %v, expected ErrTokenMalformed", token, err)
		}
	}
}

func TestParseToken_Expired(t *testing.T) {
	token, err := GenerateToken(1, "alice", "member", -1)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	_, err = ParseToken(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("ParseToken() error = %v, expected ErrTokenExpired", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	SetJWTSecret("original-secret")
	token, _ := GenerateToken(1, "alice", "admin", 24)

	SetJWTSecret("different-secret")
	_, err := ParseToken(token)

	SetJWTSecret("test-secret-key-for-testing")

	if err == nil {
		t.Error("ParseToken should fail with wrong secret")
	}
}

func TestGenerateToken_Expiration(t *testing.T) {
	token, _ := GenerateToken(1, "alice", "admin", 1)
	claims, _ := ParseToken(token)

	expiresAt := claims.ExpiresAt.Time
	now := time.Now()

	if expiresAt.Before(now) {
		t.Error("token should not be expired immediately")
	}

	expectedExpiry := now.Add(1 * time.Hour)
	diff := expiresAt.Sub(expectedExpiry)
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("expiration time is off by more than 1 minute: %v", diff)
	}
}
