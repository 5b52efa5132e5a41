package services

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is what can be read from a bearer token without verifying it.
type TokenInfo struct {
	Parsed    bool
	Subject   string
	ExpiresAt *time.Time
}

// DescribeToken decodes the claims of a JWT for display only. The signature
// is not checked and nothing is gated on the result; an expired token is
// discovered when the backend rejects it.
func DescribeToken(token string) TokenInfo {
	if token == "" {
		return TokenInfo{}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}
	}

	info := TokenInfo{Parsed: true}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ExpiresAt = &t
	}
	return info
}
