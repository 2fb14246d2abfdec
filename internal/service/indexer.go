// Package service contains the search subsystem's application services: the
// index synchronizer, the reindex coordinator, and the query-side searcher.
package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/takezou621/sedori-platform-sub006/internal/catalog"
	"github.com/takezou621/sedori-platform-sub006/internal/domain"
	"github.com/takezou621/sedori-platform-sub006/internal/engine"
	"github.com/takezou621/sedori-platform-sub006/internal/metrics"
	apperrors "github.com/takezou621/sedori-platform-sub006/pkg/errors"
	"github.com/takezou621/sedori-platform-sub006/pkg/logger"
)

// idStripes is the number of per-product locks serializing concurrent index
// jobs for the same product.
const idStripes = 32

// bulkPageSize is how many products one catalog page and one bulk write carry.
const bulkPageSize = 500

// Indexer keeps the search index in step with the catalog. It is the single
// write path into the live generation.
type Indexer struct {
	catalog catalog.Store
	engine  engine.Engine
	logger  *slog.Logger

	bulkFailureThreshold float64

	stripes [idStripes]sync.Mutex
}

// NewIndexer creates the index synchronizer.
func NewIndexer(store catalog.Store, eng engine.Engine, log *slog.Logger) *Indexer {
	if log == nil {
		log = slog.Default()
	}
	return &Indexer{catalog: store, engine: eng, logger: log}
}

// SetBulkFailureThreshold sets the fraction of failed pages a bulk pass
// tolerates before IndexAllProducts reports the whole pass as failed. The
// default of zero re-raises on any page failure.
func (ix *Indexer) SetBulkFailureThreshold(f float64) {
	ix.bulkFailureThreshold = f
}

// IndexProduct re-reads the product from the catalog and upserts its document
// into the live index. A product that is absent or no longer active is removed
// instead. A write rejected because the index already holds a newer version is
// treated as success; the newer document is the one that should win.
func (ix *Indexer) IndexProduct(ctx context.Context, productID string) error {
	unlock := ix.lockID(productID)
	defer unlock()

	log := logger.FromContext(ctx)

	product, err := ix.catalog.GetActiveProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return ix.removeLocked(ctx, productID)
		}
		metrics.IndexJobsTotal.WithLabelValues("upsert", "error").Inc()
		return fmt.Errorf("index product %s: %w", productID, err)
	}

	doc := domain.BuildSearchDocument(product, ix.categoryName(ctx, product.CategoryID))

	if err := ix.engine.UpsertIfNewer(ctx, doc); err != nil {
		if errors.Is(err, apperrors.ErrVersionConflict) {
			metrics.IndexJobsTotal.WithLabelValues("upsert", "stale").Inc()
			log.Debug("skipped stale index write",
				"product_id", productID,
				"source_version", doc.SourceVersion,
			)
			return nil
		}
		metrics.IndexJobsTotal.WithLabelValues("upsert", "error").Inc()
		return fmt.Errorf("index product %s: %w", productID, err)
	}

	metrics.IndexJobsTotal.WithLabelValues("upsert", "ok").Inc()
	return nil
}

// RemoveFromIndex deletes the product's document from the live index. Removing
// an absent document succeeds.
func (ix *Indexer) RemoveFromIndex(ctx context.Context, productID string) error {
	unlock := ix.lockID(productID)
	defer unlock()
	return ix.removeLocked(ctx, productID)
}

func (ix *Indexer) removeLocked(ctx context.Context, productID string) error {
	if err := ix.engine.Delete(ctx, productID); err != nil {
		metrics.IndexJobsTotal.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("remove product %s from index: %w", productID, err)
	}
	metrics.IndexJobsTotal.WithLabelValues("delete", "ok").Inc()
	return nil
}

// IndexAllProducts walks every active product in the catalog and bulk-upserts
// the documents into the live generation. Documents already newer in the index
// are left alone. Stale documents for products that have since disappeared are
// not pruned here; the periodic full rebuild replaces the whole generation and
// covers that case. Failed pages are isolated: the walk continues, and the
// pass only reports failure when the failed-page rate exceeds the threshold.
func (ix *Indexer) IndexAllProducts(ctx context.Context) (int, error) {
	names := newCategoryNames(ix.catalog)
	indexed := 0
	failedPages := 0
	totalPages := 0
	cursor := ""

	for {
		page, err := ix.catalog.ListActiveProducts(ctx, cursor, bulkPageSize)
		if err != nil {
			return indexed, fmt.Errorf("index all products: %w", err)
		}
		if len(page.Products) == 0 {
			break
		}

		docs := make([]domain.SearchDocument, 0, len(page.Products))
		for i := range page.Products {
			p := &page.Products[i]
			docs = append(docs, *domain.BuildSearchDocument(p, names.resolve(ctx, p.CategoryID)))
		}

		totalPages++
		if err := ix.engine.BulkUpsert(ctx, "", docs); err != nil {
			failedPages++
			metrics.IndexJobsTotal.WithLabelValues("bulk", "error").Inc()
			ix.logger.ErrorContext(ctx, "bulk index page failed",
				"cursor", cursor,
				"documents", len(docs),
				"error", err,
			)
		} else {
			indexed += len(docs)
			metrics.IndexJobsTotal.WithLabelValues("bulk", "ok").Inc()
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if failedPages > 0 {
		if float64(failedPages)/float64(totalPages) > ix.bulkFailureThreshold {
			return indexed, fmt.Errorf("index all products: %d of %d pages failed", failedPages, totalPages)
		}
		ix.logger.WarnContext(ctx, "bulk index completed with failures",
			"documents", indexed,
			"pages", totalPages,
			"failed_pages", failedPages,
		)
		return indexed, nil
	}

	ix.logger.InfoContext(ctx, "bulk index completed", "documents", indexed, "pages", totalPages)
	return indexed, nil
}

// categoryName resolves a category's display name, returning empty when the
// category is unknown. Resolution failures must not block indexing.
func (ix *Indexer) categoryName(ctx context.Context, categoryID string) string {
	if categoryID == "" {
		return ""
	}
	cat, err := ix.catalog.GetCategory(ctx, categoryID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.FromContext(ctx).Warn("category lookup failed", "category_id", categoryID, "error", err)
		}
		return ""
	}
	return cat.Name
}

func (ix *Indexer) lockID(id string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	m := &ix.stripes[h.Sum32()%idStripes]
	m.Lock()
	return m.Unlock
}

// categoryNames memoizes category lookups for the duration of one bulk walk.
type categoryNames struct {
	store catalog.Store
	known map[string]string
}

func newCategoryNames(store catalog.Store) *categoryNames {
	return &categoryNames{store: store, known: make(map[string]string)}
}

func (c *categoryNames) resolve(ctx context.Context, categoryID string) string {
	if categoryID == "" {
		return ""
	}
	if name, ok := c.known[categoryID]; ok {
		return name
	}
	name := ""
	if cat, err := c.store.GetCategory(ctx, categoryID); err == nil {
		name = cat.Name
	}
	c.known[categoryID] = name
	return name
}
