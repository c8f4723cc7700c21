package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken is returned when a token cannot be split or its payload
	// is not JSON.
	ErrMalformedToken = errors.New("malformed access token")
	// ErrNoExpiry is returned when the payload decodes but carries no exp claim.
	ErrNoExpiry = errors.New("access token has no exp claim")
)

// Expiry decodes the exp claim of token without verifying its signature.
func Expiry(token string) (time.Time, error) {
	claims, err := Peek(token)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// Peek decodes the payload of token without verifying its signature.
func Peek(token string) (*AccessClaims, error) {
	if token == "" {
		return nil, ErrMalformedToken
	}
	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return claims, nil
}

// Expired reports whether token is expired at now. Undecodable tokens count as
// expired.
func Expired(token string, now time.Time) bool {
	exp, err := Expiry(token)
	if err != nil {
		return true
	}
	return !now.Before(exp)
}
