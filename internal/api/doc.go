// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

// Package api provides the HTTP surface of the service.
//
// Endpoints:
//   - GET  /ping              liveness probe, plain "pong!"
//   - GET  /healthz           readiness (store ping + stream health)
//   - GET  /metrics           Prometheus exposition
//   - POST /login             credential exchange for a JWT
//   - GET  /auth              token check
//   - POST /event             submit an audit event (authenticated)
//   - GET  /event             query audit events (authenticated)
//
// Every response except /ping and /metrics uses the models.APIResponse
// envelope. Submission is acknowledged on enqueue, before the event is
// durably stored; the pipeline guarantees it is never lost after the
// acknowledgment.
package api
