// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

// Package auth provides JWT-based authentication for the event API.
//
// Tokens are short-lived HS256 JWTs minted by POST /login against a
// bcrypt-hashed credential store. Every other endpoint requires a valid
// token; all authentication failures return 403 with a machine-readable
// error code so clients can distinguish a missing token from an expired one.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors for token validation failures. Callers map these onto
// the API error codes TOKEN_MISSING, TOKEN_MALFORMED, and TOKEN_EXPIRED.
var (
	ErrTokenMissing   = errors.New("authorization token is missing")
	ErrTokenMalformed = errors.New("authorization token is malformed")
	ErrTokenExpired   = errors.New("authorization token is expired")
)

// Claims represents the JWT claims carried by an Auditlog session token.
type Claims struct {
	// Identity is the authenticated username. It becomes the identity
	// stamped onto every event the holder submits.
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token creation and validation.
// Uses HMAC-SHA256 signing; the secret is stored as []byte.
type JWTManager struct {
	secret   []byte
	lifetime time.Duration
}

// NewJWTManager creates a JWT token manager with the given secret and token
// lifetime. The secret must be at least 32 characters.
func NewJWTManager(secret string, lifetime time.Duration) (*JWTManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 characters, got %d", len(secret))
	}
	if lifetime <= 0 {
		lifetime = 3 * time.Minute
	}

	return &JWTManager{
		secret:   []byte(secret),
		lifetime: lifetime,
	}, nil
}

// Lifetime returns the configured token lifetime.
func (m *JWTManager) Lifetime() time.Duration {
	return m.lifetime
}

// GenerateToken creates a signed JWT for the given identity.
// Returns the token string and its expiry time.
func (m *JWTManager) GenerateToken(identity string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(m.lifetime)

	claims := &Claims{
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, expiresAt, nil
}

// ValidateToken validates a JWT token string and extracts its claims.
//
// The signing algorithm is pinned to HMAC to prevent algorithm confusion
// attacks. Expired tokens return ErrTokenExpired; any other parse or
// signature failure returns ErrTokenMalformed.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrTokenMalformed, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.Identity == "" {
		return nil, fmt.Errorf("%w: identity claim is empty", ErrTokenMalformed)
	}

	return claims, nil
}

// ExtractToken pulls the raw token out of an Authorization header value.
//
// Both "Bearer <token>" and the legacy "Bearer: <token>" form are accepted,
// matching clients written against earlier releases of this service.
func ExtractToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrTokenMissing
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: expected scheme and token", ErrTokenMalformed)
	}

	scheme := strings.TrimSuffix(parts[0], ":")
	if scheme != "Bearer" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrTokenMalformed, parts[0])
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrTokenMissing
	}

	return token, nil
}
