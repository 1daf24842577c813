package server

import (
	"strings"
	"testing"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	secret := "session-secret"

	token := SignSessionToken(secret, "user_1")
	userID, ok := VerifySessionToken(secret, token)
	if !ok {
		t.Fatal("expected token to verify")
	}
	if userID != "user_1" {
		t.Fatalf("expected user_1, got %q", userID)
	}
}

func TestVerifySessionTokenRejectsTampering(t *testing.T) {
	secret := "session-secret"
	token := SignSessionToken(secret, "user_1")

	swapped := strings.Replace(token, "user_1", "user_2", 1)
	if _, ok := VerifySessionToken(secret, swapped); ok {
		t.Fatal("expected token with swapped user id to fail")
	}

	if _, ok := VerifySessionToken("other-secret", token); ok {
		t.Fatal("expected token to fail under a different secret")
	}

	truncated := token[:len(token)-2]
	if _, ok := VerifySessionToken(secret, truncated); ok {
		t.Fatal("expected truncated token to fail")
	}
}

func TestVerifySessionTokenRejectsMalformedInput(t *testing.T) {
	secret := "session-secret"

	for _, token := range []string{
		"",
		"v1",
		"v1:user_1",
		"v2:user_1:deadbeef",
		"v1::deadbeef",
	} {
		if _, ok := VerifySessionToken(secret, token); ok {
			t.Fatalf("expected token %q to fail", token)
		}
	}

	if _, ok := VerifySessionToken("", SignSessionToken("", "user_1")); ok {
		t.Fatal("expected empty secret to refuse all tokens")
	}
}
