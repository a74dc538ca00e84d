// Auditlog - Audit Event Ingestion and Query Service
// Copyright 2026 Thomas Grant (tgrant)
// SPDX-License-Identifier: MIT
// https://github.com/tgrant/auditlog

package supervisor

import (
	"context"
)

// Consumer matches eventprocessor.StoreConsumer's run surface.
type Consumer interface {
	Run(ctx context.Context) error
}

// ConsumerService wraps the store consumer as a supervised service.
// When Run fails (for example the subscription drops), suture restarts
// it with backoff, which re-subscribes the durable consumer.
type ConsumerService struct {
	consumer Consumer
	name     string
}

// NewConsumerService wraps consumer under the given name.
func NewConsumerService(consumer Consumer, name string) *ConsumerService {
	if name == "" {
		name = "store-consumer"
	}
	return &ConsumerService{consumer: consumer, name: name}
}

// Serve implements suture.Service. Run returns ctx.Err() on shutdown,
// which suture treats as a clean stop rather than a failure.
func (c *ConsumerService) Serve(ctx context.Context) error {
	return c.consumer.Run(ctx)
}

// String identifies the service in suture log events.
func (c *ConsumerService) String() string {
	return c.name
}
