// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test-secret-key-minimum-32-characters-long"

func newTestManager(t *testing.T, lifetime time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testSecret, lifetime)
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}
	return m
}

func TestNewJWTManagerShortSecret(t *testing.T) {
	if _, err := NewJWTManager("too-short", time.Minute); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := newTestManager(t, 3*time.Minute)

	token, expiresAt, err := m.GenerateToken("alice")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	remaining := time.Until(expiresAt)
	if remaining < 2*time.Minute || remaining > 3*time.Minute+time.Second {
		t.Errorf("unexpected expiry window: %v", remaining)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Identity != "alice" {
		t.Errorf("expected identity alice, got %s", claims.Identity)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	m := newTestManager(t, 1*time.Nanosecond)

	token, _, err := m.GenerateToken("alice")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	_, err = m.ValidateToken(token)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestValidateTokenMalformed(t *testing.T) {
	m := newTestManager(t, time.Minute)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty token", "", ErrTokenMissing},
		{"garbage token", "not-a-jwt", ErrTokenMalformed},
		{"truncated token", "eyJhbGciOiJIUzI1NiJ9", ErrTokenMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ValidateToken(tt.token)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	m1 := newTestManager(t, time.Minute)
	m2, err := NewJWTManager("another-secret-key-32-characters-or-more", time.Minute)
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}

	token, _, err := m1.GenerateToken("alice")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := m2.ValidateToken(token); !errors.Is(err, ErrTokenMalformed) {
		t.Errorf("expected ErrTokenMalformed for wrong secret, got %v", err)
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{"standard bearer", "Bearer abc.def.ghi", "abc.def.ghi", nil},
		{"legacy colon form", "Bearer: abc.def.ghi", "abc.def.ghi", nil},
		{"missing header", "", "", ErrTokenMissing},
		{"scheme only", "Bearer", "", ErrTokenMalformed},
		{"wrong scheme", "Basic abc", "", ErrTokenMalformed},
		{"empty token after scheme", "Bearer  ", "", ErrTokenMissing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractToken(tt.header)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractToken failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected token %q, got %q", tt.want, got)
			}
		})
	}
}
