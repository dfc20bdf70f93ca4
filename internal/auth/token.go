// internal/auth/token.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credential verification failures. Verification yields the embedded
// identity or exactly one of these; never partial data.
var (
	// ErrExpiredToken indicates the token's expiry has passed.
	ErrExpiredToken = errors.New("expired token")
	// ErrMalformedToken indicates the token is structurally invalid.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidToken indicates a bad signature, wrong token type, or
	// otherwise unusable token.
	ErrInvalidToken = errors.New("invalid token")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// LobbyClaims are the JWT claims for lobby-scoped player credentials.
type LobbyClaims struct {
	Name      string `json:"name"`
	Pin       string `json:"pin"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// IssueLobbyTokens mints an access/refresh credential pair bound to a
// player name within a lobby pin. The access token carries the short TTL,
// the refresh token the long one.
func IssueLobbyTokens(name, pin string) (access, refresh string, err error) {
	access, err = signLobbyToken(name, pin, tokenTypeAccess, accessTokenTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = signLobbyToken(name, pin, tokenTypeRefresh, refreshTokenTTL)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func signLobbyToken(name, pin, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := LobbyClaims{
		Name:      name,
		Pin:       pin,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyAccess verifies a lobby access credential and returns the embedded
// name and pin.
func VerifyAccess(tokenString string) (name, pin string, err error) {
	claims, err := parseLobbyToken(tokenString, tokenTypeAccess)
	if err != nil {
		return "", "", err
	}
	return claims.Name, claims.Pin, nil
}

// Refresh exchanges a valid, unexpired refresh credential for a fresh
// access/refresh pair bound to the same identity.
func Refresh(refreshToken string) (access, refresh string, err error) {
	claims, err := parseLobbyToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return "", "", err
	}
	return IssueLobbyTokens(claims.Name, claims.Pin)
}

func parseLobbyToken(tokenString, wantType string) (*LobbyClaims, error) {
	t, err := jwt.ParseWithClaims(tokenString, &LobbyClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	claims, ok := t.Claims.(*LobbyClaims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("%w: wrong token type", ErrInvalidToken)
	}
	if claims.Name == "" || claims.Pin == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrInvalidToken)
	}
	return claims, nil
}
