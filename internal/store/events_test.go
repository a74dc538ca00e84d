// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package store

import (
	"context"
	"strings"
	"testing"

	"github.com/tgrant/auditlog/internal/config"
	"github.com/tgrant/auditlog/internal/models"
)

func floatPtr(f float64) *float64 { return &f }

// setupTestStore opens an in-memory DuckDB instance with the schema applied.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Path:          ":memory:",
		MaxMemory:     "1GB",
		Threads:       1,
		QueryLimit:    100,
		MaxQueryLimit: 1000,
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("failed to close test store: %v", err)
		}
	})
	return s
}

func TestUpsertEventIdempotent(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	event := &models.Event{
		ID:        "alice-login-1700000000",
		EventType: "login",
		Identity:  "alice",
		Timestamp: 1700000000,
		Details:   map[string]any{"ip": "10.0.0.1"},
	}
	if err := s.UpsertEvent(ctx, event); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	// A redelivered message carries the same ID; replaying it must replace
	// the row, never add a second one.
	event.Details = map[string]any{"ip": "10.0.0.2"}
	if err := s.UpsertEvent(ctx, event); err != nil {
		t.Fatalf("replayed upsert failed: %v", err)
	}

	events, err := s.QueryEvents(ctx, &models.EventFilter{ID: event.ID})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected exactly 1 row after replay, got %d", len(events))
	}

	details, ok := events[0].Details.(map[string]any)
	if !ok {
		t.Fatalf("unexpected details type %T", events[0].Details)
	}
	if details["ip"] != "10.0.0.2" {
		t.Errorf("expected latest write to win, got %v", details["ip"])
	}
}

func TestQueryEventsTimeRange(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, ts := range []float64{10, 20, 30} {
		event := &models.Event{
			ID:        models.EventID("alice", "deploy", ts),
			EventType: "deploy",
			Identity:  "alice",
			Timestamp: ts,
			Details:   map[string]any{},
		}
		if err := s.UpsertEvent(ctx, event); err != nil {
			t.Fatalf("upsert ts=%v failed: %v", ts, err)
		}
	}

	t.Run("bounded range", func(t *testing.T) {
		events, err := s.QueryEvents(ctx, &models.EventFilter{
			TimeStart: floatPtr(15),
			TimeEnd:   floatPtr(25),
		})
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if len(events) != 1 {
			t.Fatalf("expected 1 event in [15, 25], got %d", len(events))
		}
		if events[0].Timestamp != 20 {
			t.Errorf("expected the ts=20 event, got %v", events[0].Timestamp)
		}
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		events, err := s.QueryEvents(ctx, &models.EventFilter{
			TimeStart: floatPtr(10),
			TimeEnd:   floatPtr(30),
		})
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if len(events) != 3 {
			t.Fatalf("expected all 3 events in [10, 30], got %d", len(events))
		}
		for i, want := range []float64{30, 20, 10} {
			if events[i].Timestamp != want {
				t.Errorf("expected newest-first order, got ts=%v at position %d", events[i].Timestamp, i)
			}
		}
	})

	t.Run("open lower bound", func(t *testing.T) {
		events, err := s.QueryEvents(ctx, &models.EventFilter{TimeEnd: floatPtr(15)})
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if len(events) != 1 || events[0].Timestamp != 10 {
			t.Errorf("expected only the ts=10 event, got %d events", len(events))
		}
	})
}

func TestBuildEventQueryNoFilters(t *testing.T) {
	query, args := buildEventQuery(&models.EventFilter{}, 100)

	if strings.Contains(query, "WHERE") {
		t.Errorf("expected no WHERE clause, got %q", query)
	}
	if !strings.Contains(query, "ORDER BY ts DESC LIMIT ?") {
		t.Errorf("expected order and limit, got %q", query)
	}
	if len(args) != 1 || args[0] != 100 {
		t.Errorf("expected only the limit arg, got %v", args)
	}
}

func TestBuildEventQueryAllFilters(t *testing.T) {
	filter := &models.EventFilter{
		ID:        "alice-login-1700000000",
		EventType: "login",
		Identity:  "alice",
		TimeStart: floatPtr(1600000000),
		TimeEnd:   floatPtr(1700000000),
	}

	query, args := buildEventQuery(filter, 50)

	for _, want := range []string{"id = ?", "event_type = ?", "identity = ?", "ts >= ?", "ts <= ?"} {
		if !strings.Contains(query, want) {
			t.Errorf("expected condition %q in %q", want, query)
		}
	}
	if !strings.Contains(query, " AND ") {
		t.Errorf("expected conditions joined with AND, got %q", query)
	}
	if len(args) != 6 {
		t.Fatalf("expected 6 args (5 filters + limit), got %d: %v", len(args), args)
	}
	if args[5] != 50 {
		t.Errorf("expected limit as final arg, got %v", args[5])
	}
}

func TestBuildEventQuerySingleFilter(t *testing.T) {
	query, args := buildEventQuery(&models.EventFilter{EventType: "deploy"}, 10)

	if !strings.Contains(query, "WHERE event_type = ?") {
		t.Errorf("expected single WHERE condition, got %q", query)
	}
	if len(args) != 2 {
		t.Errorf("expected 2 args, got %v", args)
	}
}

func TestMatchesKeyword(t *testing.T) {
	event := &models.Event{
		ID:        "alice-deploy-1700000000",
		EventType: "deploy",
		Identity:  "alice",
		Timestamp: 1700000000,
		Details: map[string]any{
			"service": "billing",
			"replicas": []any{
				map[string]any{"zone": "eu-west", "count": float64(3)},
			},
		},
	}

	tests := []struct {
		keyword string
		want    bool
	}{
		{"alice", true},
		{"deploy", true},
		{"billing", true},
		{"eu-west", true},
		{"3", true},
		{"zone", true},
		{"absent", false},
	}
	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			if got := matchesKeyword(event, tt.keyword); got != tt.want {
				t.Errorf("matchesKeyword(%q) = %v, want %v", tt.keyword, got, tt.want)
			}
		})
	}
}
