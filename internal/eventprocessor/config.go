// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

// Package eventprocessor implements the audit event pipeline on NATS
// JetStream via Watermill.
//
// The flow is producer -> stream -> consumer:
//
//	Producer stamps identity, timestamp, and the composite event ID, then
//	publishes to the stream. The HTTP handler acknowledges the client as
//	soon as the publish is accepted.
//
//	StoreConsumer reads from a durable queue-group consumer and writes
//	each event to the store, acking only after the write succeeds. Failed
//	writes are nacked for redelivery; undecodable payloads go to the
//	poison store and are acked so they cannot wedge the stream.
//
// Delivery is at-least-once end to end; the store's upsert-by-ID plus the
// JetStream duplicate window make processing effectively exactly-once.
package eventprocessor

import (
	"time"

	"github.com/tgrant/auditlog/internal/config"
)

// PublisherConfig holds publisher connection settings.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool
}

// DefaultPublisherConfig returns production defaults for the publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds subscriber connection settings.
type SubscriberConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration

	// StreamName binds the subscriber to a pre-created stream, disabling
	// auto-provisioning.
	StreamName string
}

// DefaultSubscriberConfig returns production defaults for the subscriber.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      "event-store",
		QueueGroup:       "store-workers",
		SubscribersCount: 4,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,    // Max redelivery attempts
		MaxAckPending:    1000, // Flow control
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// StreamConfig defines the audit event stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns production stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "AUDIT_EVENTS",
		Subjects:        []string{"audit.events"},
		MaxAge:          0,                       // Retain until limits apply
		MaxBytes:        10 * 1024 * 1024 * 1024, // 10GB
		MaxMsgs:         -1,                      // Unlimited
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1, // Increase for clustering
	}
}

// ServerConfig holds embedded NATS server settings.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for the embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   1 << 30,  // 1GB
		JetStreamMaxStore: 10 << 30, // 10GB
	}
}

// CircuitBreakerConfig holds circuit breaker settings for publishes.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Consecutive failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// SubscriberConfigFromNATS derives a SubscriberConfig from service config.
func SubscriberConfigFromNATS(cfg *config.NATSConfig, url string) SubscriberConfig {
	sc := DefaultSubscriberConfig(url)
	sc.DurableName = cfg.DurableName
	sc.QueueGroup = cfg.QueueGroup
	sc.SubscribersCount = cfg.SubscribersCount
	sc.StreamName = cfg.StreamName
	return sc
}

// StreamConfigFromNATS derives a StreamConfig from service config.
func StreamConfigFromNATS(cfg *config.NATSConfig) StreamConfig {
	sc := DefaultStreamConfig()
	sc.Name = cfg.StreamName
	sc.Subjects = []string{cfg.Subject}
	if cfg.DedupWindow > 0 {
		sc.DuplicateWindow = cfg.DedupWindow
	}
	sc.MaxAge = cfg.MaxAge
	return sc
}
