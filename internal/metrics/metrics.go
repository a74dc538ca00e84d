// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

// Package metrics provides Prometheus instrumentation for the API and the
// event pipeline. All collectors are registered with the default registry
// via promauto and exposed on GET /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auditlog_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditlog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Pipeline metrics
	EventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auditlog_events_published_total",
			Help: "Total number of events accepted onto the stream",
		},
	)

	PublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auditlog_publish_failures_total",
			Help: "Total number of failed publish attempts",
		},
	)

	EventsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auditlog_events_stored_total",
			Help: "Total number of events written to the store",
		},
	)

	StoreFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auditlog_store_failures_total",
			Help: "Total number of failed store writes (messages nacked for redelivery)",
		},
	)

	PoisonMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auditlog_poison_messages_total",
			Help: "Total number of undecodable messages moved to the poison store",
		},
	)

	// Auth metrics
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditlog_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"outcome"}, // "success" or "failure"
	)

	TokenRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auditlog_token_rejections_total",
			Help: "Total number of rejected tokens by reason",
		},
		[]string{"reason"}, // "missing", "malformed", "expired"
	)

	// Query metrics
	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auditlog_query_duration_seconds",
			Help:    "Duration of event queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	QueryResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auditlog_query_results",
			Help:    "Number of events returned per query",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000},
		},
	)
)

// RecordHTTPRequest records a completed HTTP request.
func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
}

// RecordEventPublished increments the published events counter.
func RecordEventPublished() {
	EventsPublished.Inc()
}

// RecordPublishFailure increments the publish failure counter.
func RecordPublishFailure() {
	PublishFailures.Inc()
}

// RecordEventStored increments the stored events counter.
func RecordEventStored() {
	EventsStored.Inc()
}

// RecordStoreFailure increments the store failure counter.
func RecordStoreFailure() {
	StoreFailures.Inc()
}

// RecordPoisonMessage increments the poison message counter.
func RecordPoisonMessage() {
	PoisonMessages.Inc()
}

// RecordLogin records a login attempt outcome.
func RecordLogin(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	LoginAttempts.WithLabelValues(outcome).Inc()
}

// RecordTokenRejection records a rejected token by reason.
func RecordTokenRejection(reason string) {
	TokenRejections.WithLabelValues(reason).Inc()
}

// RecordQuery records an event query.
func RecordQuery(duration time.Duration, results int) {
	QueryDuration.Observe(duration.Seconds())
	QueryResults.Observe(float64(results))
}
