// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package models

import "time"

// APIResponse is the standardized response wrapper used by all HTTP endpoints.
// Callers can rely on a uniform envelope for both success and error paths.
//
// Status field values:
//   - "success": request completed, see Data
//   - "error": request failed, see Error
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {"code": "VALIDATION_ERROR", "message": "event_type is required"},
//	  "metadata": {"timestamp": "2026-08-30T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	// Timestamp is the server time when the response was generated.
	Timestamp time.Time `json:"timestamp"`

	// RequestID is the request ID for tracing, when available.
	RequestID string `json:"request_id,omitempty"`
}

// APIError carries machine-readable error details inside an APIResponse.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error codes used across the API. Client-caused failures map to 4xx
// statuses, server-side failures to 5xx.
const (
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeValidationError    = "VALIDATION_ERROR"
	ErrCodeSchemaError        = "SCHEMA_ERROR"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeTokenMissing       = "TOKEN_MISSING"
	ErrCodeTokenMalformed     = "TOKEN_MALFORMED"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodePublishFailed      = "PUBLISH_FAILED"
	ErrCodeQueryFailed        = "QUERY_FAILED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
)

// LoginRequest is the POST /login request body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the POST /login success payload.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Identity  string    `json:"identity"`
}

// SubmitEventResponse is the POST /event success payload. The shape follows
// the original service contract: an acknowledgment that the event was
// accepted into the queue, independent of persistence completion.
type SubmitEventResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	EventID string `json:"event_id"`
}
