// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tgrant/auditlog/internal/models"
)

// SubmitEventRequest is the POST /event body. Identity and timestamp are
// never accepted from the client; the producer assigns them.
//
// Details is kept raw so that presence is validated rather than value:
// an explicit JSON null is an acceptable details payload, while an
// absent field is not.
type SubmitEventRequest struct {
	EventType string          `json:"event_type" validate:"required,max=256"`
	Details   json.RawMessage `json:"event_details" validate:"required"`
}

// LoginRequestValidation mirrors models.LoginRequest with validation tags.
type LoginRequestValidation struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=512"`
}

// parseEventFilter builds an EventFilter from GET /event query parameters.
// Unknown parameters are ignored; malformed time bounds are an error.
func parseEventFilter(r *http.Request) (*models.EventFilter, error) {
	timeStart, err := getFloatParam(r, "timeStart")
	if err != nil {
		return nil, err
	}
	timeEnd, err := getFloatParam(r, "timeEnd")
	if err != nil {
		return nil, err
	}

	q := r.URL.Query()
	return &models.EventFilter{
		ID:        q.Get("id"),
		EventType: q.Get("event_type"),
		Identity:  q.Get("identity"),
		TimeStart: timeStart,
		TimeEnd:   timeEnd,
		Keyword:   q.Get("keyword"),
		Limit:     getIntParam(r, "limit", 0),
	}, nil
}
