package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const sessionTokenVersion = "v1"

// SignSessionToken mints an opaque bearer token binding the identity
// provider user id with the session secret.
func SignSessionToken(secret, userExternalID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(sessionTokenVersion + ":" + userExternalID))
	return sessionTokenVersion + ":" + userExternalID + ":" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySessionToken checks the token signature and returns the user id
// it was minted for.
func VerifySessionToken(secret, token string) (string, bool) {
	if secret == "" || token == "" {
		return "", false
	}
	parts := strings.Split(token, ":")
	if len(parts) != 3 || parts[0] != sessionTokenVersion {
		return "", false
	}
	userExternalID := parts[1]
	if userExternalID == "" {
		return "", false
	}

	expected := SignSessionToken(secret, userExternalID)
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return "", false
	}
	return userExternalID, true
}
