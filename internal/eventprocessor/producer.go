// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tgrant/auditlog/internal/logging"
	"github.com/tgrant/auditlog/internal/models"
)

// EventPublisher is the publish surface the Producer needs. Satisfied by
// *Publisher; tests substitute a fake.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
}

// Producer accepts validated submissions, stamps the server-assigned
// fields, and publishes the resulting event to the stream.
type Producer struct {
	publisher  EventPublisher
	serializer *Serializer
	subject    string

	// mu serializes timestamp assignment so two submissions by the same
	// identity and type can never collide on the composite ID.
	mu     sync.Mutex
	lastTS float64
}

// NewProducer creates a producer publishing to the given subject.
func NewProducer(publisher EventPublisher, subject string) (*Producer, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher required")
	}
	if subject == "" {
		return nil, fmt.Errorf("subject required")
	}

	return &Producer{
		publisher:  publisher,
		serializer: NewSerializer(),
		subject:    subject,
	}, nil
}

// Accept builds the event for a submission and publishes it. Identity and
// timestamp always come from the server, never from the client payload.
//
// Returns the accepted event on success. A nil error means the broker has
// the message; persistence completes asynchronously.
func (p *Producer) Accept(ctx context.Context, identity, eventType string, details any) (*models.Event, error) {
	event := &models.Event{
		EventType: eventType,
		Identity:  identity,
		Timestamp: p.nextTimestamp(),
		Details:   details,
	}
	event.ID = models.EventID(identity, eventType, event.Timestamp)

	data, err := p.serializer.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("serialize event: %w", err)
	}

	// Message UUID is the event ID, which also becomes the Nats-Msg-Id
	// used for broker-side duplicate detection.
	msg := message.NewMessage(event.ID, data)
	msg.Metadata.Set("event_type", event.EventType)
	msg.Metadata.Set("identity", event.Identity)

	if err := p.publisher.Publish(ctx, p.subject, msg); err != nil {
		return nil, fmt.Errorf("publish event %s: %w", event.ID, err)
	}

	logging.Debug().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Str("identity", event.Identity).
		Msg("Event accepted")

	return event, nil
}

// nextTimestamp returns the current time in epoch seconds, nudged forward
// by a microsecond if the clock has not advanced since the last call.
func (p *Producer) nextTimestamp() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := float64(time.Now().UnixNano()) / 1e9
	if now <= p.lastTS {
		now = p.lastTS + 1e-6
	}
	p.lastTS = now

	return now
}
