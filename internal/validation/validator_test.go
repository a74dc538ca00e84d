// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package validation

import (
	"strings"
	"testing"
)

type submitEventRequest struct {
	EventType string `json:"event_type" validate:"required,max=256"`
	Details   any    `json:"event_details" validate:"required"`
}

func TestValidateStructValid(t *testing.T) {
	req := submitEventRequest{
		EventType: "user.login",
		Details:   map[string]any{"ip": "10.0.0.1"},
	}

	if verr := ValidateStruct(&req); verr != nil {
		t.Errorf("expected valid request, got %v", verr)
	}
}

func TestValidateStructMissingRequired(t *testing.T) {
	req := submitEventRequest{
		Details: map[string]any{"ip": "10.0.0.1"},
	}

	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation error for missing event_type")
	}
	if verr.IsSchemaError() {
		t.Error("missing field should be a client error, not a schema error")
	}

	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected code VALIDATION_ERROR, got %s", apiErr.Code)
	}
	if !strings.Contains(apiErr.Message, "required") {
		t.Errorf("expected message to mention required, got %q", apiErr.Message)
	}
}

func TestValidateStructMultipleErrors(t *testing.T) {
	req := submitEventRequest{}

	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation errors for empty request")
	}
	if len(verr.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(verr.Errors()))
	}

	apiErr := verr.ToAPIError()
	if apiErr.Details == nil {
		t.Fatal("expected details for multiple errors")
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("expected fields list in details")
	}
}

func TestValidateStructMaxLength(t *testing.T) {
	req := submitEventRequest{
		EventType: strings.Repeat("x", 257),
		Details:   map[string]any{},
	}

	verr := ValidateStruct(&req)
	if verr == nil {
		t.Fatal("expected validation error for oversized event_type")
	}
	if got := verr.Errors()[0].Tag(); got != "max" {
		t.Errorf("expected tag max, got %s", got)
	}
}

func TestValidateStructSchemaError(t *testing.T) {
	// Passing a non-struct is a schema misuse, not a client input problem.
	verr := ValidateStruct("not a struct")
	if verr == nil {
		t.Fatal("expected schema error for non-struct input")
	}
	if !verr.IsSchemaError() {
		t.Error("non-struct input should be flagged as a schema error")
	}
	if got := verr.ToAPIError().Code; got != "SCHEMA_ERROR" {
		t.Errorf("expected code SCHEMA_ERROR, got %s", got)
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator should return the same instance")
	}
}
