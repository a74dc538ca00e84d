// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package eventprocessor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tgrant/auditlog/internal/logging"
	"github.com/tgrant/auditlog/internal/metrics"
	"github.com/tgrant/auditlog/internal/models"
)

// MessageSource is the subscribe surface the consumer needs. Satisfied by
// *Subscriber; tests substitute a channel-backed fake.
type MessageSource interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}

// EventStore is the persistence surface the consumer writes through.
type EventStore interface {
	UpsertEvent(ctx context.Context, event *models.Event) error
}

// ConsumerStats holds runtime counters for monitoring.
type ConsumerStats struct {
	MessagesReceived int64
	EventsStored     int64
	StoreFailures    int64
	PoisonMessages   int64
	LastMessageTime  time.Time
}

// StoreConsumer drains the audit event stream into the store.
//
// Ack discipline:
//   - store write succeeded: Ack
//   - store write failed: Nack, the broker redelivers
//   - payload undecodable: persist to the poison store and Ack, since
//     redelivery can never fix a malformed payload
//
// Because the store upserts by event ID, redelivered messages are
// harmless duplicates rather than double writes.
type StoreConsumer struct {
	source MessageSource
	store  EventStore
	poison PoisonStore

	serializer *Serializer
	topic      string

	messagesReceived atomic.Int64
	eventsStored     atomic.Int64
	storeFailures    atomic.Int64
	poisonMessages   atomic.Int64
	lastMessageTime  atomic.Value // stores time.Time
}

// NewStoreConsumer creates a consumer reading from topic into store.
// The poison store may be nil, in which case undecodable messages are
// logged and acked without persistence.
func NewStoreConsumer(source MessageSource, store EventStore, poison PoisonStore, topic string) (*StoreConsumer, error) {
	if source == nil {
		return nil, fmt.Errorf("message source required")
	}
	if store == nil {
		return nil, fmt.Errorf("event store required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic required")
	}

	c := &StoreConsumer{
		source:     source,
		store:      store,
		poison:     poison,
		serializer: NewSerializer(),
		topic:      topic,
	}
	c.lastMessageTime.Store(time.Time{})

	return c, nil
}

// Run consumes messages until the context is canceled or the subscription
// channel closes. It blocks, so callers run it in a goroutine or under a
// supervisor.
func (c *StoreConsumer) Run(ctx context.Context) error {
	messages, err := c.source.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}

	logging.Info().
		Str("topic", c.topic).
		Msg("Store consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				logging.Info().Str("topic", c.topic).Msg("Store consumer channel closed")
				return nil
			}
			c.handleMessage(ctx, msg)
		}
	}
}

// handleMessage processes a single message and settles it.
func (c *StoreConsumer) handleMessage(ctx context.Context, msg *message.Message) {
	c.messagesReceived.Add(1)
	c.lastMessageTime.Store(time.Now())

	event, err := c.serializer.Unmarshal(msg.Payload)
	if err != nil {
		c.handlePoison(msg, err)
		return
	}

	if err := c.store.UpsertEvent(ctx, event); err != nil {
		c.storeFailures.Add(1)
		metrics.RecordStoreFailure()
		logging.Error().
			Err(err).
			Str("event_id", event.ID).
			Str("message_uuid", msg.UUID).
			Msg("Event write failed, message will be redelivered")
		msg.Nack()
		return
	}

	c.eventsStored.Add(1)
	metrics.RecordEventStored()
	logging.Debug().
		Str("event_id", event.ID).
		Msg("Event persisted")
	msg.Ack()
}

// handlePoison settles a message whose payload cannot become an event.
// The message is always acked: redelivering it would fail identically and
// stall the consumer on a payload no retry can repair.
func (c *StoreConsumer) handlePoison(msg *message.Message, cause error) {
	c.poisonMessages.Add(1)
	metrics.RecordPoisonMessage()

	logging.Error().
		Err(cause).
		Str("message_uuid", msg.UUID).
		Int("payload_bytes", len(msg.Payload)).
		Msg("Undecodable message moved to poison store")

	if c.poison != nil {
		entry := &PoisonEntry{
			MessageUUID: msg.UUID,
			Payload:     msg.Payload,
			Reason:      cause.Error(),
			ReceivedAt:  time.Now().UTC(),
		}
		if err := c.poison.Save(entry); err != nil {
			logging.Error().
				Err(err).
				Str("message_uuid", msg.UUID).
				Msg("Failed to persist poison entry")
		}
	}

	msg.Ack()
}

// Stats returns a snapshot of runtime counters.
func (c *StoreConsumer) Stats() ConsumerStats {
	lastMsg, _ := c.lastMessageTime.Load().(time.Time)
	return ConsumerStats{
		MessagesReceived: c.messagesReceived.Load(),
		EventsStored:     c.eventsStored.Load(),
		StoreFailures:    c.storeFailures.Load(),
		PoisonMessages:   c.poisonMessages.Load(),
		LastMessageTime:  lastMsg,
	}
}
