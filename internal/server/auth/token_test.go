package auth

import (
	"errors"
	"testing"

	"github.com/storeit-app/storeit/internal/common"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateSessionToken("sess-123", secret)
	if err != nil {
		t.Fatalf("GenerateSessionToken error: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}

	id, err := GetSessionIDFromToken(token, secret)
	if err != nil {
		t.Fatalf("GetSessionIDFromToken error: %v", err)
	}
	if id != "sess-123" {
		t.Fatalf("want sess-123, got %q", id)
	}
}

func TestGetSessionIDFromToken_WrongKey(t *testing.T) {
	token, err := GenerateSessionToken("sess-123", []byte("key-a"))
	if err != nil {
		t.Fatalf("GenerateSessionToken error: %v", err)
	}

	_, err = GetSessionIDFromToken(token, []byte("key-b"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}

func TestGetSessionIDFromToken_Garbage(t *testing.T) {
	_, err := GetSessionIDFromToken("not-a-token", []byte("key"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("want ErrInvalidToken, got %v", err)
	}
}
