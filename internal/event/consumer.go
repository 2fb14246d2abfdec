package event

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/takezou621/sedori-platform-sub006/pkg/kafka"
)

// Config holds the consumer group settings.
type Config struct {
	Brokers []string
	GroupID string
}

// Consumers runs one Kafka consumer per catalog topic.
type Consumers struct {
	consumers []*kafka.Consumer
	logger    *slog.Logger
}

// NewConsumers wires the product and category topics to their handlers. Every
// handler is wrapped with deduplication; redelivered events are dropped
// before they reach the worker queue.
func NewConsumers(cfg Config, store kafka.IdempotencyStore, product, category kafka.Handler, log *slog.Logger) *Consumers {
	if log == nil {
		log = slog.Default()
	}

	build := func(topic string, handler kafka.Handler) *kafka.Consumer {
		return kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.Brokers,
			GroupID: cfg.GroupID,
			Topic:   topic,
		}, kafka.IdempotentHandler(store, handler, log), log)
	}

	consumers := []*kafka.Consumer{
		build(TopicProductUpserted, product),
		build(TopicProductDeleted, product),
	}
	if category != nil {
		consumers = append(consumers, build(TopicCategoryUpdated, category))
	}

	return &Consumers{consumers: consumers, logger: log}
}

// Start runs all consumers until the context is canceled or one of them fails.
func (c *Consumers) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, consumer := range c.consumers {
		g.Go(func() error { return consumer.Start(ctx) })
	}
	return g.Wait()
}

// Close shuts down all consumers.
func (c *Consumers) Close() error {
	var firstErr error
	for _, consumer := range c.consumers {
		if err := consumer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
