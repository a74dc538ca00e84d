// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package eventprocessor

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tgrant/auditlog/internal/models"
)

// Serializer handles event encoding and decoding for queue messages.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Marshal converts an event to JSON bytes, rejecting incomplete events.
func (s *Serializer) Marshal(event *models.Event) ([]byte, error) {
	if err := validateEvent(event); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	return data, nil
}

// Unmarshal converts JSON bytes back to an event. The same completeness
// checks run on the way out so a tampered or truncated payload is caught
// before it reaches the store.
func (s *Serializer) Unmarshal(data []byte) (*models.Event, error) {
	var event models.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}

	if err := validateEvent(&event); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}

	return &event, nil
}

// validateEvent checks the fields every pipeline message must carry.
func validateEvent(event *models.Event) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}
	if event.ID == "" {
		return fmt.Errorf("event id is empty")
	}
	if event.EventType == "" {
		return fmt.Errorf("event type is empty")
	}
	if event.Identity == "" {
		return fmt.Errorf("event identity is empty")
	}
	if event.Timestamp <= 0 {
		return fmt.Errorf("event timestamp is not set")
	}
	return nil
}
