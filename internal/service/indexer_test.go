package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takezou621/sedori-platform-sub006/internal/domain"
	"github.com/takezou621/sedori-platform-sub006/internal/engine"
	"github.com/takezou621/sedori-platform-sub006/internal/engine/memory"
)

var baseTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func TestIndexProductUpserts(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	eng := memory.New()
	ix := NewIndexer(cat, eng, nil)

	cat.put(testProduct("prod-1", "Wireless Headphones", 29800, baseTime))

	require.NoError(t, ix.IndexProduct(ctx, "prod-1"))

	docs, err := allDocs(ctx, eng)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Wireless Headphones", docs[0].Name)
	assert.Equal(t, "Audio", docs[0].CategoryName)
	assert.Equal(t, int64(29800), docs[0].EffectivePrice)
	assert.Equal(t, baseTime.UnixMilli(), docs[0].SourceVersion)
}

func TestIndexProductRemovesAbsentProduct(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	eng := memory.New()
	ix := NewIndexer(cat, eng, nil)

	cat.put(testProduct("prod-1", "Headphones", 29800, baseTime))
	require.NoError(t, ix.IndexProduct(ctx, "prod-1"))

	cat.remove("prod-1")
	require.NoError(t, ix.IndexProduct(ctx, "prod-1"))

	docs, err := allDocs(ctx, eng)
	require.NoError(t, err)
	assert.Empty(t, docs, "vanished product should leave the index")
}

func TestIndexProductRemovesInactiveProduct(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	eng := memory.New()
	ix := NewIndexer(cat, eng, nil)

	p := testProduct("prod-1", "Headphones", 29800, baseTime)
	cat.put(p)
	require.NoError(t, ix.IndexProduct(ctx, "prod-1"))

	p.Status = "discontinued"
	cat.put(p)
	require.NoError(t, ix.IndexProduct(ctx, "prod-1"))

	docs, err := allDocs(ctx, eng)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIndexProductKeepsNewerDocument(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	eng := memory.New()
	ix := NewIndexer(cat, eng, nil)

	// The newer rename reaches the index first.
	newer := testProduct("prod-1", "Renamed Headphones", 29800, baseTime.Add(2*time.Second))
	cat.put(newer)
	require.NoError(t, ix.IndexProduct(ctx, "prod-1"))

	// A delayed event re-reads the row after someone restored the old state.
	older := testProduct("prod-1", "Headphones", 29800, baseTime)
	cat.put(older)
	require.NoError(t, ix.IndexProduct(ctx, "prod-1"), "stale write must be swallowed, not surfaced")

	docs, err := allDocs(ctx, eng)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Renamed Headphones", docs[0].Name, "older version must not clobber the newer document")
}

func TestIndexProductEqualVersionOverwrites(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	eng := memory.New()
	ix := NewIndexer(cat, eng, nil)

	cat.put(testProduct("prod-1", "Headphones", 29800, baseTime))
	require.NoError(t, ix.IndexProduct(ctx, "prod-1"))
	require.NoError(t, ix.IndexProduct(ctx, "prod-1"), "redelivery of the same version is idempotent")

	docs, err := allDocs(ctx, eng)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestIndexAllProducts(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	eng := memory.New()
	ix := NewIndexer(cat, eng, nil)

	cat.put(testProduct("prod-1", "Budget Earbuds", 1000, baseTime))
	cat.put(testProduct("prod-2", "Midrange Earbuds", 2000, baseTime))
	cat.put(testProduct("prod-3", "Premium Earbuds", 3000, baseTime))

	indexed, err := ix.IndexAllProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, indexed)

	docs, err := allDocs(ctx, eng)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, int64(1000), docs[0].EffectivePrice)
	assert.Equal(t, int64(3000), docs[2].EffectivePrice)
	assert.Equal(t, "Audio", docs[0].CategoryName)
}

// pageFailEngine fails the first n bulk writes and delegates the rest.
type pageFailEngine struct {
	engine.Engine
	failures int
	calls    int
}

func (e *pageFailEngine) BulkUpsert(ctx context.Context, generation string, docs []domain.SearchDocument) error {
	e.calls++
	if e.calls <= e.failures {
		return context.DeadlineExceeded
	}
	return e.Engine.BulkUpsert(ctx, generation, docs)
}

func TestIndexAllProductsToleratesFailuresBelowThreshold(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	for i := 1; i <= bulkPageSize+1; i++ {
		cat.put(testProduct(fmt.Sprintf("prod-%04d", i), fmt.Sprintf("Earbuds %d", i), 1000, baseTime))
	}

	eng := &pageFailEngine{Engine: memory.New(), failures: 1}
	ix := NewIndexer(cat, eng, nil)
	ix.SetBulkFailureThreshold(0.5)

	indexed, err := ix.IndexAllProducts(ctx)
	require.NoError(t, err, "one failed page out of two stays within the threshold")
	assert.Equal(t, 1, indexed, "only the surviving page counts as indexed")
}

func TestIndexAllProductsFailsAboveThreshold(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	for i := 1; i <= bulkPageSize+1; i++ {
		cat.put(testProduct(fmt.Sprintf("prod-%04d", i), fmt.Sprintf("Earbuds %d", i), 1000, baseTime))
	}

	eng := &pageFailEngine{Engine: memory.New(), failures: 1}
	ix := NewIndexer(cat, eng, nil)
	ix.SetBulkFailureThreshold(0.25)

	indexed, err := ix.IndexAllProducts(ctx)
	assert.Error(t, err)
	assert.Equal(t, 1, indexed)
}

func TestIndexAllProductsStrictByDefault(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	cat.put(testProduct("prod-1", "Earbuds", 1000, baseTime))

	ix := NewIndexer(cat, &pageFailEngine{Engine: memory.New(), failures: 1}, nil)

	_, err := ix.IndexAllProducts(ctx)
	assert.Error(t, err, "without a threshold any failed page fails the pass")
}

func TestIndexAllProductsListFailure(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	cat.listErr = context.DeadlineExceeded
	ix := NewIndexer(cat, memory.New(), nil)

	_, err := ix.IndexAllProducts(ctx)
	assert.Error(t, err)
}
