// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tgrant/auditlog/internal/metrics"
	"github.com/tgrant/auditlog/internal/models"
)

func TestAuthenticateMiddleware(t *testing.T) {
	m := newTestManager(t, time.Minute)
	mw := NewMiddleware(m)

	var gotIdentity string
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Error("expected claims in context")
			return
		}
		gotIdentity = claims.Identity
		w.WriteHeader(http.StatusOK)
	}))

	token, _, err := m.GenerateToken("alice")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/event", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if gotIdentity != "alice" {
			t.Errorf("expected identity alice, got %s", gotIdentity)
		}
	})

	t.Run("legacy colon header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/event", nil)
		req.Header.Set("Authorization", "Bearer: "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 for legacy header form, got %d", rec.Code)
		}
	})

	rejections := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", models.ErrCodeTokenMissing},
		{"garbage token", "Bearer not-a-jwt", models.ErrCodeTokenMalformed},
		{"wrong scheme", "Basic dXNlcjpwYXNz", models.ErrCodeTokenMalformed},
	}
	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/event", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusForbidden {
				t.Errorf("expected 403, got %d", rec.Code)
			}

			var resp models.APIResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if resp.Status != "error" {
				t.Errorf("expected status error, got %s", resp.Status)
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("expected error code %s, got %+v", tt.wantCode, resp.Error)
			}
		})
	}

	t.Run("rejection counter incremented", func(t *testing.T) {
		before := testutil.ToFloat64(metrics.TokenRejections.WithLabelValues("missing"))

		req := httptest.NewRequest(http.MethodGet, "/event", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		after := testutil.ToFloat64(metrics.TokenRejections.WithLabelValues("missing"))
		if after != before+1 {
			t.Errorf("expected missing-token rejections to go from %v to %v, got %v", before, before+1, after)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		shortManager := newTestManager(t, time.Nanosecond)
		expiredToken, _, err := shortManager.GenerateToken("alice")
		if err != nil {
			t.Fatalf("GenerateToken failed: %v", err)
		}
		time.Sleep(10 * time.Millisecond)

		expiredHandler := NewMiddleware(shortManager).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not run for expired token")
		}))

		req := httptest.NewRequest(http.MethodGet, "/event", nil)
		req.Header.Set("Authorization", "Bearer "+expiredToken)
		rec := httptest.NewRecorder()

		expiredHandler.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}

		var resp models.APIResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode error body: %v", err)
		}
		if resp.Error == nil || resp.Error.Code != models.ErrCodeTokenExpired {
			t.Errorf("expected TOKEN_EXPIRED, got %+v", resp.Error)
		}
	})
}
