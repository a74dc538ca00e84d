// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tgrant/auditlog/internal/auth"
	"github.com/tgrant/auditlog/internal/logging"
	"github.com/tgrant/auditlog/internal/metrics"
	"github.com/tgrant/auditlog/internal/models"
)

// EventAcceptor is the ingestion surface the submit handler needs.
// Satisfied by *eventprocessor.Producer.
type EventAcceptor interface {
	Accept(ctx context.Context, identity, eventType string, details any) (*models.Event, error)
}

// EventQuerier is the query surface the query handler needs.
// Satisfied by *store.Store.
type EventQuerier interface {
	QueryEvents(ctx context.Context, filter *models.EventFilter) ([]*models.Event, error)
}

// StorePinger reports store connectivity for the readiness probe.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// StreamHealthChecker reports stream health for the readiness probe.
// Satisfied by *eventprocessor.StreamInitializer.
type StreamHealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

// Handler contains dependencies for the API handlers.
type Handler struct {
	producer    EventAcceptor
	store       EventQuerier
	credentials *auth.CredentialStore
	jwtManager  *auth.JWTManager
	storePing   StorePinger
	stream      StreamHealthChecker
	startTime   time.Time
}

// NewHandler creates an API handler. storePing and stream may be nil, in
// which case /healthz skips the corresponding check.
func NewHandler(producer EventAcceptor, store EventQuerier, credentials *auth.CredentialStore, jwtManager *auth.JWTManager, storePing StorePinger, stream StreamHealthChecker) *Handler {
	return &Handler{
		producer:    producer,
		store:       store,
		credentials: credentials,
		jwtManager:  jwtManager,
		storePing:   storePing,
		stream:      stream,
		startTime:   time.Now(),
	}
}

// Ping is the liveness probe.
//
// Method: GET
// Path: /ping
//
// Returns plain "pong!" so the probe stays independent of JSON encoding
// and the response envelope.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong!"))
}

// Login exchanges credentials for a JWT.
//
// Method: POST
// Path: /login
//
// Response:
//   - 200: token issued
//   - 400: malformed or invalid request body
//   - 403: unknown user or wrong password
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid request body", err)
		return
	}

	validationReq := LoginRequestValidation{
		Username: req.Username,
		Password: req.Password,
	}
	if apiErr := validateRequest(&validationReq); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if err := h.credentials.Verify(req.Username, req.Password); err != nil {
		metrics.RecordLogin(false)
		logging.Warn().
			Str("username", sanitizeLogValue(req.Username)).
			Str("remote_addr", r.RemoteAddr).
			Msg("Login failed")
		respondError(w, r, http.StatusForbidden, models.ErrCodeInvalidCredentials, "Invalid username or password", nil)
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(req.Username)
	if err != nil {
		metrics.RecordLogin(false)
		respondError(w, r, http.StatusInternalServerError, "TOKEN_GENERATION_FAILED", "Failed to generate token", err)
		return
	}

	metrics.RecordLogin(true)
	logging.Info().
		Str("username", sanitizeLogValue(req.Username)).
		Msg("Login succeeded")

	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: models.LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
			Identity:  req.Username,
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// AuthCheck reports whether the presented token is valid. It runs behind
// the auth middleware, so reaching the handler means the token passed.
//
// Method: GET
// Path: /auth
func (h *Handler) AuthCheck(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusForbidden, models.ErrCodeTokenMissing, "No authenticated identity", nil)
		return
	}

	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"identity": claims.Identity},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// SubmitEvent accepts an audit event onto the stream.
//
// Method: POST
// Path: /event
//
// The identity comes from the token, never from the body. Success means
// the event is on the stream; persistence completes asynchronously.
//
// Response:
//   - 200: event enqueued
//   - 400: malformed body or validation failure
//   - 500: validation schema broken
//   - 502: stream publish failed (retryable by the caller)
func (h *Handler) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusForbidden, models.ErrCodeTokenMissing, "No authenticated identity", nil)
		return
	}

	var req SubmitEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid request body", err)
		return
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		status := http.StatusBadRequest
		if apiErr.Code == models.ErrCodeSchemaError {
			status = http.StatusInternalServerError
		}
		respondError(w, r, status, apiErr.Code, apiErr.Message, nil)
		return
	}

	var details any
	if err := json.Unmarshal(req.Details, &details); err != nil {
		respondError(w, r, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Invalid event details", err)
		return
	}

	event, err := h.producer.Accept(r.Context(), claims.Identity, req.EventType, details)
	if err != nil {
		respondError(w, r, http.StatusBadGateway, models.ErrCodePublishFailed, "Failed to enqueue event", err)
		return
	}

	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: models.SubmitEventResponse{
			Status:  http.StatusOK,
			Message: "Event submitted",
			EventID: event.ID,
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// QueryEvents returns stored events matching the query parameters.
//
// Method: GET
// Path: /event
//
// Query params (all optional): id, event_type, identity, timeStart,
// timeEnd, keyword, limit. All set filters combine with AND.
func (h *Handler) QueryEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseEventFilter(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, models.ErrCodeValidationError, err.Error(), nil)
		return
	}

	start := time.Now()
	events, err := h.store.QueryEvents(r.Context(), filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, models.ErrCodeQueryFailed, "Failed to query events", err)
		return
	}
	metrics.RecordQuery(time.Since(start), len(events))

	// Empty result is a success with an empty array, not null.
	if events == nil {
		events = []*models.Event{}
	}

	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     events,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// Health is the readiness probe, checking store connectivity and stream
// health.
//
// Method: GET
// Path: /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if h.storePing != nil {
		if err := h.storePing.Ping(ctx); err != nil {
			checks["store"] = "unavailable"
			healthy = false
		} else {
			checks["store"] = "ok"
		}
	}

	if h.stream != nil {
		if h.stream.IsHealthy(ctx) {
			checks["stream"] = "ok"
		} else {
			checks["stream"] = "unavailable"
			healthy = false
		}
	}

	status := http.StatusOK
	statusText := "success"
	if !healthy {
		status = http.StatusServiceUnavailable
		statusText = "error"
	}

	respondJSON(w, r, status, &models.APIResponse{
		Status: statusText,
		Data: map[string]any{
			"checks":         checks,
			"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// NotFound returns the JSON envelope for unmatched routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusNotFound, models.ErrCodeNotFound, "Not Found: "+sanitizeLogValue(r.URL.String()), nil)
}

// MethodNotAllowed returns the JSON envelope for wrong-method requests.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, r, http.StatusMethodNotAllowed, models.ErrCodeMethodNotAllowed, "Method not allowed", nil)
}
