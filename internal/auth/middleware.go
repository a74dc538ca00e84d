// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tgrant/auditlog/internal/logging"
	"github.com/tgrant/auditlog/internal/metrics"
	"github.com/tgrant/auditlog/internal/models"
)

type contextKey string

// ClaimsContextKey is the request context key holding the authenticated *Claims.
const ClaimsContextKey contextKey = "claims"

// Middleware enforces JWT authentication on protected routes.
type Middleware struct {
	jwtManager *JWTManager
}

// NewMiddleware creates authentication middleware backed by the given manager.
func NewMiddleware(jwtManager *JWTManager) *Middleware {
	return &Middleware{jwtManager: jwtManager}
}

// Authenticate validates the request's bearer token and injects the claims
// into the request context. Every failure returns 403 with a structured
// error body; the status matches the original service contract, which never
// distinguished 401 from 403 for token problems.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := ExtractToken(r.Header.Get("Authorization"))
		if err != nil {
			m.reject(w, r, err)
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// reject writes a 403 response with the error code matching the failure.
func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	code, reason := models.ErrCodeTokenMalformed, "malformed"
	switch {
	case errors.Is(err, ErrTokenMissing):
		code, reason = models.ErrCodeTokenMissing, "missing"
	case errors.Is(err, ErrTokenExpired):
		code, reason = models.ErrCodeTokenExpired, "expired"
	}
	metrics.RecordTokenRejection(reason)

	logging.Debug().
		Err(err).
		Str("code", code).
		Str("path", r.URL.Path).
		Str("request_id", logging.RequestIDFromContext(r.Context())).
		Msg("Request rejected by auth middleware")

	resp := models.APIResponse{
		Status: "error",
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
		Error: &models.APIError{
			Code:    code,
			Message: err.Error(),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		logging.Error().Err(encErr).Msg("Failed to encode auth error response")
	}
}

// ClaimsFromContext retrieves the authenticated claims from a request
// context. The second return is false when the request was not
// authenticated, which only happens on routes outside the Authenticate
// middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(*Claims)
	return claims, ok
}
