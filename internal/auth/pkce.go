package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCE is a verifier/challenge pair per RFC 7636. A fresh pair is generated
// for every login attempt and never persisted.
type PKCE struct {
	Verifier  string
	Challenge string
}

// NewPKCE generates a PKCE pair using the S256 challenge method.
// 32 random bytes base64url-encode to a 43 character verifier, the minimum
// length the RFC allows, drawn entirely from the unreserved character set.
func NewPKCE() (PKCE, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return PKCE{}, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	verifier := base64.RawURLEncoding.EncodeToString(b)
	return PKCE{
		Verifier:  verifier,
		Challenge: ChallengeS256(verifier),
	}, nil
}

// ChallengeS256 computes BASE64URL(SHA256(ASCII(verifier))).
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// NewState generates a random state parameter for CSRF protection.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
