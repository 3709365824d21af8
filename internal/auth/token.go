package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// ExpirySkew is subtracted from a token's lifetime before it is considered
// usable, so calls never go out with a token about to lapse mid-flight.
const ExpirySkew = 60 * time.Second

// Record is the persisted token state for one profile. A refresh replaces
// the record wholesale; it is never mutated field by field.
//
// The wire format is a JSON object with expiry in epoch seconds. Email and
// name are captured from the userinfo endpoint at login and reused for the
// From header when sending.
type Record struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Expiry       int64  `json:"expiry,omitempty"`
	Scope        string `json:"scope,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"name,omitempty"`
}

// Valid reports whether the access token can still be used at now,
// accounting for the expiry skew. Records without an expiry never expire.
func (r *Record) Valid(now time.Time) bool {
	if r == nil || r.AccessToken == "" {
		return false
	}
	if r.Expiry == 0 {
		return true
	}
	return now.Add(ExpirySkew).Before(time.Unix(r.Expiry, 0))
}

// ExpiresIn returns the number of seconds until expiry, negative when the
// token has already expired. The second result is false when the record has
// no expiry.
func (r *Record) ExpiresIn(now time.Time) (int64, bool) {
	if r.Expiry == 0 {
		return 0, false
	}
	return r.Expiry - now.Unix(), true
}

// recordFromToken converts an oauth2 token into a Record. The refresh token
// and identity of prev are carried over when the provider omits them.
func recordFromToken(tok *oauth2.Token, prev *Record) *Record {
	rec := &Record{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		rec.Expiry = tok.Expiry.Unix()
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		rec.Scope = scope
	}
	if prev != nil {
		if rec.RefreshToken == "" {
			rec.RefreshToken = prev.RefreshToken
		}
		if rec.Scope == "" {
			rec.Scope = prev.Scope
		}
		rec.Email = prev.Email
		rec.Name = prev.Name
	}
	return rec
}
