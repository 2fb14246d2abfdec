// Package event consumes catalog change events and feeds the index
// synchronizer. Events are thin notifications carrying a product ID; the
// handler re-reads the authoritative row before writing to the index.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/takezou621/sedori-platform-sub006/internal/metrics"
	"github.com/takezou621/sedori-platform-sub006/internal/service"
	"github.com/takezou621/sedori-platform-sub006/internal/worker"
	"github.com/takezou621/sedori-platform-sub006/pkg/kafka"
	"github.com/takezou621/sedori-platform-sub006/pkg/logger"
)

// Catalog topics consumed by the search service.
var (
	TopicProductUpserted = kafka.Topic("product", "upserted")
	TopicProductDeleted  = kafka.Topic("product", "deleted")
	TopicCategoryUpdated = kafka.Topic("category", "updated")
)

// ProductPayload is the event body for product change notifications.
type ProductPayload struct {
	ProductID string `json:"product_id"`
}

// CategoryPayload is the event body for category change notifications.
type CategoryPayload struct {
	CategoryID string `json:"category_id"`
}

// CategoryInvalidator drops cached category state after a category change.
type CategoryInvalidator interface {
	InvalidateCategory(ctx context.Context, id string) error
}

// NewProductHandler returns a handler that turns product change events into
// index jobs. The job re-reads the product, so upsert and delete events for
// the same product converge on catalog state regardless of delivery order.
func NewProductHandler(pool *worker.Pool, indexer *service.Indexer, log *slog.Logger) kafka.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, event *kafka.Event) error {
		productID, err := productID(event)
		if err != nil {
			// Malformed payloads never become valid on retry.
			metrics.EventsConsumedTotal.WithLabelValues(event.EventType, "skipped").Inc()
			log.WarnContext(ctx, "skipping malformed product event",
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err,
			)
			return nil
		}

		if event.CorrelationID != "" {
			ctx = logger.WithCorrelationID(ctx, event.CorrelationID)
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, log))
		}

		var job worker.Job
		switch {
		case strings.HasSuffix(event.EventType, ".deleted"):
			job = worker.Job{
				Name: "delete:" + productID,
				Run: func(ctx context.Context) error {
					return indexer.RemoveFromIndex(ctx, productID)
				},
			}
		default:
			// created, updated, upserted, restored: all converge on a re-read.
			job = worker.Job{
				Name: "upsert:" + productID,
				Run: func(ctx context.Context) error {
					return indexer.IndexProduct(ctx, productID)
				},
			}
		}

		if err := pool.Submit(ctx, job); err != nil {
			metrics.EventsConsumedTotal.WithLabelValues(event.EventType, "error").Inc()
			return fmt.Errorf("submit index job for %s: %w", productID, err)
		}

		metrics.EventsConsumedTotal.WithLabelValues(event.EventType, "ok").Inc()
		return nil
	}
}

// NewCategoryHandler returns a handler that invalidates the cached category
// name on category changes. Documents are not rewritten; result assembly
// re-resolves display names on every search.
func NewCategoryHandler(invalidator CategoryInvalidator, log *slog.Logger) kafka.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(ctx context.Context, event *kafka.Event) error {
		var payload CategoryPayload
		if err := event.UnmarshalData(&payload); err != nil || payload.CategoryID == "" {
			payload.CategoryID = event.AggregateID
		}
		if payload.CategoryID == "" {
			metrics.EventsConsumedTotal.WithLabelValues(event.EventType, "skipped").Inc()
			return nil
		}

		if err := invalidator.InvalidateCategory(ctx, payload.CategoryID); err != nil {
			metrics.EventsConsumedTotal.WithLabelValues(event.EventType, "error").Inc()
			return fmt.Errorf("invalidate category %s: %w", payload.CategoryID, err)
		}

		metrics.EventsConsumedTotal.WithLabelValues(event.EventType, "ok").Inc()
		log.DebugContext(ctx, "category cache invalidated", "category_id", payload.CategoryID)
		return nil
	}
}

func productID(event *kafka.Event) (string, error) {
	var payload ProductPayload
	if err := event.UnmarshalData(&payload); err == nil && payload.ProductID != "" {
		return payload.ProductID, nil
	}
	if event.AggregateID != "" {
		return event.AggregateID, nil
	}
	return "", fmt.Errorf("event %s carries no product id", event.EventID)
}
