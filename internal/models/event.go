// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

// Package models defines the core data structures shared across the API,
// event pipeline, and store layers.
package models

import "strconv"

// Event is a single audit record submitted by an authenticated identity.
//
// Events are immutable once created: the producer assigns Identity, Timestamp,
// and ID at acceptance time, and the record never changes after it reaches the
// store. Updates to audited state are modeled as new Events.
//
// ID is the composite key "{identity}-{event_type}-{timestamp}". Because the
// same submission always derives the same ID, redelivery of a queue message
// collapses to a single stored document (upsert by ID), which is what makes
// the at-least-once pipeline effectively exactly-once.
type Event struct {
	// ID is the globally unique, deterministically derived primary key.
	ID string `json:"id"`

	// EventType classifies the event. Required, non-empty.
	EventType string `json:"event_type"`

	// Identity is the authenticated actor who submitted the event.
	// Always assigned by the server, never trusted from the client payload.
	Identity string `json:"identity"`

	// Timestamp is seconds since epoch, assigned by the producer at
	// acceptance time. Monotonic per process, not globally ordered.
	Timestamp float64 `json:"timestamp"`

	// Details is the arbitrary client payload. Schema-validated only for
	// presence, not for internal structure.
	Details any `json:"event_details"`
}

// EventID derives the composite event ID from its parts.
// The timestamp uses the shortest exact decimal representation so that the
// same float64 always produces the same ID.
func EventID(identity, eventType string, timestamp float64) string {
	return identity + "-" + eventType + "-" + strconv.FormatFloat(timestamp, 'f', -1, 64)
}

// EventFilter holds the optional query parameters recognized by GET /event.
// All set fields combine with logical AND. Keyword is applied as a post-filter
// over the full event record; the remaining fields are pushed down to the
// store query.
type EventFilter struct {
	// ID filters by exact event ID.
	ID string

	// EventType filters by exact event type.
	EventType string

	// Identity filters by exact submitting identity.
	Identity string

	// TimeStart is the inclusive lower bound on Timestamp (nil = unbounded).
	TimeStart *float64

	// TimeEnd is the inclusive upper bound on Timestamp (nil = unbounded).
	TimeEnd *float64

	// Keyword, when non-empty, keeps only events whose record contains the
	// keyword anywhere in its nested structure.
	Keyword string

	// Limit caps the number of results (0 = server default).
	Limit int
}
