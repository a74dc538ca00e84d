// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tgrant/auditlog/internal/keyword"
	"github.com/tgrant/auditlog/internal/models"
)

// UpsertEvent writes an event, replacing any existing row with the same ID.
// Replaying the same message is therefore harmless, which is what allows the
// consumer to ack only after this call returns.
func (s *Store) UpsertEvent(ctx context.Context, event *models.Event) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to encode event details: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO events (id, event_type, identity, ts, details)
		 VALUES (?, ?, ?, ?, ?)`,
		event.ID, event.EventType, event.Identity, event.Timestamp, string(details))
	if err != nil {
		return fmt.Errorf("failed to upsert event %s: %w", event.ID, err)
	}

	return nil
}

// QueryEvents returns events matching the filter, newest first.
//
// Exact-match and time-range fields are pushed down into the SQL WHERE
// clause. The keyword filter runs in Go over the decoded records because it
// must search nested detail structures, including map keys.
func (s *Store) QueryEvents(ctx context.Context, filter *models.EventFilter) ([]*models.Event, error) {
	query, args := buildEventQuery(filter, s.queryLimit(filter))

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	events := make([]*models.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		if filter.Keyword != "" && !matchesKeyword(event, filter.Keyword) {
			continue
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// queryLimit resolves the effective row limit for a filter.
func (s *Store) queryLimit(filter *models.EventFilter) int {
	limit := filter.Limit
	if limit <= 0 {
		limit = s.cfg.QueryLimit
	}
	if limit > s.cfg.MaxQueryLimit {
		limit = s.cfg.MaxQueryLimit
	}
	return limit
}

// buildEventQuery assembles the SQL statement and arguments for a filter.
func buildEventQuery(filter *models.EventFilter, limit int) (string, []any) {
	var conditions []string
	var args []any

	if filter.ID != "" {
		conditions = append(conditions, "id = ?")
		args = append(args, filter.ID)
	}
	if filter.EventType != "" {
		conditions = append(conditions, "event_type = ?")
		args = append(args, filter.EventType)
	}
	if filter.Identity != "" {
		conditions = append(conditions, "identity = ?")
		args = append(args, filter.Identity)
	}
	if filter.TimeStart != nil {
		conditions = append(conditions, "ts >= ?")
		args = append(args, *filter.TimeStart)
	}
	if filter.TimeEnd != nil {
		conditions = append(conditions, "ts <= ?")
		args = append(args, *filter.TimeEnd)
	}

	query := "SELECT id, event_type, identity, ts, details FROM events"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY ts DESC LIMIT ?"
	args = append(args, limit)

	return query, args
}

// scanEvent reads one row into an Event, decoding the details JSON.
func scanEvent(rows *sql.Rows) (*models.Event, error) {
	var event models.Event
	var details sql.NullString

	if err := rows.Scan(&event.ID, &event.EventType, &event.Identity, &event.Timestamp, &details); err != nil {
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}

	if details.Valid && details.String != "" {
		if err := json.Unmarshal([]byte(details.String), &event.Details); err != nil {
			return nil, fmt.Errorf("failed to decode details for event %s: %w", event.ID, err)
		}
	}

	return &event, nil
}

// matchesKeyword runs the keyword filter against the full event record,
// mirroring the JSON shape clients receive.
func matchesKeyword(event *models.Event, kw string) bool {
	record := map[string]any{
		"id":            event.ID,
		"event_type":    event.EventType,
		"identity":      event.Identity,
		"timestamp":     event.Timestamp,
		"event_details": event.Details,
	}
	return keyword.Matches(record, kw)
}
