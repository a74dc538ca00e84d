// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tgrant/auditlog/internal/models"
)

type fakeSource struct {
	ch chan *message.Message
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan *message.Message, 16)}
}

func (f *fakeSource) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return f.ch, nil
}

func (f *fakeSource) Close() error {
	close(f.ch)
	return nil
}

type fakeStore struct {
	mu     sync.Mutex
	events []*models.Event
	err    error
}

func (f *fakeStore) UpsertEvent(ctx context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

type fakePoison struct {
	mu      sync.Mutex
	entries []*PoisonEntry
}

func (f *fakePoison) Save(entry *PoisonEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakePoison) Close() error { return nil }

func (f *fakePoison) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

func eventMessage(t *testing.T) *message.Message {
	t.Helper()
	data, err := NewSerializer().Marshal(validEvent())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	return message.NewMessage("alice-login-1700000000.25", data)
}

func runConsumer(t *testing.T, source *fakeSource, store *fakeStore, poison *fakePoison) (context.CancelFunc, chan error) {
	t.Helper()
	consumer, err := NewStoreConsumer(source, store, poison, "audit.events")
	if err != nil {
		t.Fatalf("NewStoreConsumer failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- consumer.Run(ctx)
	}()
	return cancel, done
}

func awaitSettled(t *testing.T, msg *message.Message) bool {
	t.Helper()
	select {
	case <-msg.Acked():
		return true
	case <-msg.Nacked():
		return false
	case <-time.After(2 * time.Second):
		t.Fatal("message was neither acked nor nacked")
		return false
	}
}

func TestConsumerAcksAfterStore(t *testing.T) {
	source := newFakeSource()
	store := &fakeStore{}
	poison := &fakePoison{}
	cancel, done := runConsumer(t, source, store, poison)
	defer cancel()

	msg := eventMessage(t)
	source.ch <- msg

	if acked := awaitSettled(t, msg); !acked {
		t.Error("expected ack after successful store write")
	}
	if store.count() != 1 {
		t.Errorf("expected 1 stored event, got %d", store.count())
	}
	if poison.count() != 0 {
		t.Errorf("expected no poison entries, got %d", poison.count())
	}

	cancel()
	<-done
}

func TestConsumerNacksOnStoreFailure(t *testing.T) {
	source := newFakeSource()
	store := &fakeStore{err: fmt.Errorf("disk full")}
	poison := &fakePoison{}
	cancel, done := runConsumer(t, source, store, poison)
	defer cancel()

	msg := eventMessage(t)
	source.ch <- msg

	if acked := awaitSettled(t, msg); acked {
		t.Error("expected nack when the store write fails")
	}
	if poison.count() != 0 {
		t.Errorf("store failures must not reach the poison store, got %d entries", poison.count())
	}

	cancel()
	<-done
}

func TestConsumerPoisonsUndecodableMessage(t *testing.T) {
	source := newFakeSource()
	store := &fakeStore{}
	poison := &fakePoison{}
	cancel, done := runConsumer(t, source, store, poison)
	defer cancel()

	msg := message.NewMessage("garbage-msg", []byte("{{{ not json"))
	source.ch <- msg

	if acked := awaitSettled(t, msg); !acked {
		t.Error("poison messages must be acked so they are not redelivered")
	}
	if store.count() != 0 {
		t.Errorf("poison message must not reach the store, got %d events", store.count())
	}
	if poison.count() != 1 {
		t.Fatalf("expected 1 poison entry, got %d", poison.count())
	}
	entry := poison.entries[0]
	if entry.MessageUUID != "garbage-msg" {
		t.Errorf("unexpected poison UUID: %s", entry.MessageUUID)
	}
	if entry.Reason == "" {
		t.Error("expected a reason on the poison entry")
	}

	cancel()
	<-done
}

func TestConsumerStats(t *testing.T) {
	source := newFakeSource()
	store := &fakeStore{}
	consumer, err := NewStoreConsumer(source, store, nil, "audit.events")
	if err != nil {
		t.Fatalf("NewStoreConsumer failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- consumer.Run(ctx)
	}()

	good := eventMessage(t)
	bad := message.NewMessage("bad", []byte("nope"))
	source.ch <- good
	source.ch <- bad

	awaitSettled(t, good)
	awaitSettled(t, bad)

	cancel()
	<-done

	stats := consumer.Stats()
	if stats.MessagesReceived != 2 {
		t.Errorf("expected 2 messages received, got %d", stats.MessagesReceived)
	}
	if stats.EventsStored != 1 {
		t.Errorf("expected 1 event stored, got %d", stats.EventsStored)
	}
	if stats.PoisonMessages != 1 {
		t.Errorf("expected 1 poison message, got %d", stats.PoisonMessages)
	}
	if stats.StoreFailures != 0 {
		t.Errorf("expected no store failures, got %d", stats.StoreFailures)
	}
	if stats.LastMessageTime.IsZero() {
		t.Error("expected last message time to be set")
	}
}

func TestNewStoreConsumerValidation(t *testing.T) {
	source := newFakeSource()
	store := &fakeStore{}

	if _, err := NewStoreConsumer(nil, store, nil, "audit.events"); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := NewStoreConsumer(source, nil, nil, "audit.events"); err == nil {
		t.Error("expected error for nil store")
	}
	if _, err := NewStoreConsumer(source, store, nil, ""); err == nil {
		t.Error("expected error for empty topic")
	}
}
