// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any login failure: unknown user,
// wrong password, or empty input. Deliberately indistinguishable so the
// API cannot be used to enumerate usernames.
var ErrInvalidCredentials = errors.New("invalid username or password")

// bcryptCost balances login latency against brute-force resistance.
const bcryptCost = 12

// CredentialStore verifies login credentials against bcrypt password hashes.
// Plaintext passwords from configuration are hashed once at construction so
// no plaintext is retained in memory afterwards.
type CredentialStore struct {
	mu     sync.RWMutex
	hashes map[string][]byte
}

// NewCredentialStore builds a store from a username to password map.
// Values already in bcrypt form (prefix "$2") are kept as-is; plaintext
// values are hashed at cost 12.
func NewCredentialStore(users map[string]string) (*CredentialStore, error) {
	if len(users) == 0 {
		return nil, fmt.Errorf("at least one user is required")
	}

	hashes := make(map[string][]byte, len(users))
	for username, password := range users {
		if username == "" {
			return nil, fmt.Errorf("username must not be empty")
		}
		if password == "" {
			return nil, fmt.Errorf("password for user %q must not be empty", username)
		}

		if strings.HasPrefix(password, "$2") {
			if _, err := bcrypt.Cost([]byte(password)); err != nil {
				return nil, fmt.Errorf("invalid bcrypt hash for user %q: %w", username, err)
			}
			hashes[username] = []byte(password)
			continue
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password for user %q: %w", username, err)
		}
		hashes[username] = hash
	}

	return &CredentialStore{hashes: hashes}, nil
}

// Verify checks a username and password pair. Returns nil on success and
// ErrInvalidCredentials on any failure.
//
// A bcrypt comparison runs even for unknown usernames so that the response
// time does not reveal whether the username exists.
func (s *CredentialStore) Verify(username, password string) error {
	s.mu.RLock()
	hash, exists := s.hashes[username]
	s.mu.RUnlock()

	if !exists {
		_ = bcrypt.CompareHashAndPassword(decoyHash, []byte(password))
		return ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return ErrInvalidCredentials
	}

	return nil
}

// decoyHash is a valid bcrypt hash of a random string, used to equalize
// timing for unknown usernames.
var decoyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte("auditlog-decoy-credential"), bcryptCost)
	if err != nil {
		panic(err)
	}
	return h
}()
