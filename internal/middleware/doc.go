// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

// Package middleware provides HTTP middleware in http.HandlerFunc form.
//
// The api package adapts these to Chi's func(http.Handler) http.Handler
// signature and composes them per route group:
//
//	middleware.PrometheusMetrics( // request duration and counts
//	    middleware.Compression(   // gzip for large query responses
//	        middleware.RequestID( // X-Request-ID plus logging context
//	            handler,
//	        ),
//	    ),
//	)
//
// CORS and rate limiting are not here. Those come from go-chi/cors and
// go-chi/httprate, wired directly in the api package.
package middleware
