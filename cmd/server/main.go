// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

// Package main is the entry point for the Auditlog server.
//
// Auditlog accepts audit events from authenticated clients, queues them on
// NATS JetStream, and persists them to DuckDB for querying. Submission is
// acknowledged on enqueue; the pipeline guarantees the event is never lost
// after that acknowledgment.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered sources (defaults, config.yaml, env)
//  2. Logging: zerolog, JSON by default
//  3. NATS: embedded JetStream server (optional) or external broker
//  4. Stream: idempotent create-or-update of the audit event stream
//  5. Store: DuckDB open plus schema migration
//  6. Pipeline: watermill publisher/subscriber, producer, store consumer
//  7. Auth: bcrypt credential store and JWT manager
//  8. HTTP: Chi router under a suture supervisor tree
//
// # Configuration
//
// Key environment variables:
//   - JWT_SECRET: 32+ character secret for token signing
//   - USERS: "user1:pass1,user2:pass2" (plaintext or bcrypt hashes)
//   - NATS_URL or NATS_EMBEDDED=true
//   - DUCKDB_PATH: database file location
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, the consumer finishes the message in hand, and the
// store and broker connections close in reverse initialization order.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tgrant/auditlog/internal/api"
	"github.com/tgrant/auditlog/internal/auth"
	"github.com/tgrant/auditlog/internal/config"
	"github.com/tgrant/auditlog/internal/eventprocessor"
	"github.com/tgrant/auditlog/internal/logging"
	"github.com/tgrant/auditlog/internal/store"
	"github.com/tgrant/auditlog/internal/supervisor"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("stream", cfg.NATS.StreamName).
		Bool("embedded_nats", cfg.NATS.EmbeddedServer).
		Msg("Starting Auditlog")

	// Embedded NATS keeps single-node deployments to one binary. When
	// disabled, the configured external broker URL is used instead.
	natsURL := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		serverCfg := eventprocessor.DefaultServerConfig()
		serverCfg.StoreDir = cfg.NATS.StoreDir
		embedded, err := eventprocessor.NewEmbeddedServer(&serverCfg)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to start embedded NATS server")
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := embedded.Shutdown(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
			}
		}()
		natsURL = embedded.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server ready")
	}

	// Management connection for stream provisioning and health checks.
	nc, err := natsgo.Connect(natsURL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create JetStream context")
	}

	streamCfg := eventprocessor.StreamConfigFromNATS(&cfg.NATS)
	streamInit, err := eventprocessor.NewStreamInitializer(js, &streamCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create stream initializer")
	}

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := streamInit.EnsureStream(initCtx); err != nil {
		initCancel()
		logging.Fatal().Err(err).Msg("Failed to ensure event stream")
	}
	initCancel()
	logging.Info().Str("stream", streamCfg.Name).Msg("Event stream ready")

	st, err := store.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()
	logging.Info().Msg("Store initialized")

	poison, err := eventprocessor.NewBadgerPoisonStore(cfg.NATS.PoisonDir)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open poison store")
	}
	defer func() {
		if err := poison.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing poison store")
		}
	}()

	wmLogger := eventprocessor.NewWatermillLogger()

	publisher, err := eventprocessor.NewPublisher(eventprocessor.DefaultPublisherConfig(natsURL), wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create publisher")
	}
	publisher.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(
		eventprocessor.DefaultCircuitBreakerConfig("event-publish")))
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher")
		}
	}()

	producer, err := eventprocessor.NewProducer(publisher, cfg.NATS.Subject)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create producer")
	}

	subCfg := eventprocessor.SubscriberConfigFromNATS(&cfg.NATS, natsURL)
	subscriber, err := eventprocessor.NewSubscriber(&subCfg, wmLogger)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create subscriber")
	}
	defer func() {
		if err := subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing subscriber")
		}
	}()

	consumer, err := eventprocessor.NewStoreConsumer(subscriber, st, poison, cfg.NATS.Subject)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create store consumer")
	}

	credentials, err := auth.NewCredentialStore(cfg.Security.Users)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build credential store")
	}

	jwtManager, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.TokenLifetime)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create JWT manager")
	}

	handler := api.NewHandler(producer, st, credentials, jwtManager, st, streamInit)
	router := api.NewRouter(handler, auth.NewMiddleware(jwtManager), &cfg.Server)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	// The supervisor tree restarts a crashed consumer or HTTP server with
	// backoff instead of taking the whole process down.
	slogger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	tree := supervisor.NewTree(slogger, supervisor.DefaultTreeConfig())
	tree.AddPipelineService(supervisor.NewConsumerService(consumer, "store-consumer"))
	tree.AddAPIService(supervisor.NewHTTPServerService(httpServer, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", httpServer.Addr).
		Msg("Auditlog started")

	if err := tree.Serve(ctx); err != nil && err != context.Canceled {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
	}

	logging.Info().Msg("Auditlog stopped")
}
