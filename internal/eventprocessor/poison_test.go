// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package eventprocessor

import (
	"testing"
	"time"
)

func newTestPoisonStore(t *testing.T) *BadgerPoisonStore {
	t.Helper()
	store, err := NewBadgerPoisonStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadgerPoisonStore failed: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return store
}

func TestPoisonStoreSaveAndList(t *testing.T) {
	store := newTestPoisonStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []*PoisonEntry{
		{MessageUUID: "uuid-1", Payload: []byte("not json"), Reason: "decode failure", ReceivedAt: base},
		{MessageUUID: "uuid-2", Payload: []byte(`{"partial":`), Reason: "decode failure", ReceivedAt: base.Add(time.Second)},
	}
	for _, entry := range entries {
		if err := store.Save(entry); err != nil {
			t.Fatalf("Save(%s) failed: %v", entry.MessageUUID, err)
		}
	}

	got, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].MessageUUID != "uuid-1" || got[1].MessageUUID != "uuid-2" {
		t.Errorf("expected oldest-first order, got %s then %s", got[0].MessageUUID, got[1].MessageUUID)
	}
	if string(got[0].Payload) != "not json" {
		t.Errorf("payload did not round-trip: %q", got[0].Payload)
	}
	if got[0].Reason != "decode failure" {
		t.Errorf("unexpected reason: %q", got[0].Reason)
	}
	if !got[0].ReceivedAt.Equal(base) {
		t.Errorf("unexpected received time: %v", got[0].ReceivedAt)
	}
}

func TestPoisonStoreSaveDefaultsReceivedAt(t *testing.T) {
	store := newTestPoisonStore(t)

	entry := &PoisonEntry{MessageUUID: "uuid-3", Payload: []byte("x"), Reason: "decode failure"}
	if err := store.Save(entry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if entry.ReceivedAt.IsZero() {
		t.Error("expected ReceivedAt to be stamped")
	}

	if err := store.Save(nil); err == nil {
		t.Error("expected error for nil entry")
	}
}
