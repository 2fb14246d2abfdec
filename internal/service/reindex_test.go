package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takezou621/sedori-platform-sub006/internal/domain"
	"github.com/takezou621/sedori-platform-sub006/internal/engine/memory"
	apperrors "github.com/takezou621/sedori-platform-sub006/pkg/errors"
)

func TestReindexReplacesLiveGeneration(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	eng := memory.New()

	// A document for a product the catalog no longer has.
	stale := domain.BuildSearchDocument(ptr(testProduct("prod-gone", "Gone", 1000, baseTime)), "Audio")
	require.NoError(t, eng.UpsertIfNewer(ctx, stale))

	cat.put(testProduct("prod-1", "Headphones", 29800, baseTime))
	cat.put(testProduct("prod-2", "Speaker", 15000, baseTime))

	r := NewReindexer(cat, eng, nil)
	require.NoError(t, r.Run(ctx))

	docs, err := allDocs(ctx, eng)
	require.NoError(t, err)
	require.Len(t, docs, 2, "rebuild must drop documents for vanished products")
	assert.Equal(t, "prod-1", docs[0].ID)
	assert.Equal(t, "prod-2", docs[1].ID)

	status := r.Status()
	assert.Equal(t, ReindexCompleted, status.State)
	assert.Equal(t, int64(2), status.Documents)
	assert.NotNil(t, status.FinishedAt)
}

func TestReindexSwapIsAtomicUnderQueries(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	eng := memory.New()

	// The live generation starts with a single document; the rebuild
	// produces three.
	seed := domain.BuildSearchDocument(ptr(testProduct("prod-old", "Old Stock", 1000, baseTime)), "Audio")
	require.NoError(t, eng.UpsertIfNewer(ctx, seed))

	for i := 1; i <= 3; i++ {
		cat.put(testProduct(fmt.Sprintf("prod-%d", i), fmt.Sprintf("Headphones %d", i), 1000, baseTime))
	}

	gate := make(chan struct{})
	cat.listGate = gate

	r := NewReindexer(cat, eng, nil)
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, r.Running, time.Second, time.Millisecond)

	// The catalog walk is underway and the old generation must still be
	// fully visible.
	docs, err := allDocs(ctx, eng)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	close(gate)

	// Sample through the fill and the swap. Every query must observe a
	// complete generation, never a half-built one.
	for {
		docs, err := allDocs(ctx, eng)
		require.NoError(t, err)
		if n := len(docs); n != 1 && n != 3 {
			t.Fatalf("observed a partially built generation with %d documents", n)
		}

		select {
		case runErr := <-done:
			require.NoError(t, runErr)
			docs, err = allDocs(ctx, eng)
			require.NoError(t, err)
			assert.Len(t, docs, 3)
			return
		default:
		}
	}
}

func TestReindexRejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	cat.put(testProduct("prod-1", "Headphones", 29800, baseTime))
	gate := make(chan struct{})
	cat.listGate = gate

	r := NewReindexer(cat, memory.New(), nil)

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Wait for the first run to reach the catalog walk.
	require.Eventually(t, r.Running, time.Second, 5*time.Millisecond)

	err := r.Run(ctx)
	assert.ErrorIs(t, err, apperrors.ErrRebuildInProgress)
	assert.ErrorIs(t, r.Trigger(ctx), apperrors.ErrRebuildInProgress)

	close(gate)
	require.NoError(t, <-done)
}

func TestReindexFailureKeepsLiveGeneration(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	eng := memory.New()

	// Seed the live generation through the normal write path.
	cat.put(testProduct("prod-1", "Headphones", 29800, baseTime))
	ix := NewIndexer(cat, eng, nil)
	require.NoError(t, ix.IndexProduct(ctx, "prod-1"))

	cat.listErr = context.DeadlineExceeded
	r := NewReindexer(cat, eng, nil)

	err := r.Run(ctx)
	require.ErrorIs(t, err, apperrors.ErrRebuildFailed)

	docs, qerr := allDocs(ctx, eng)
	require.NoError(t, qerr)
	require.Len(t, docs, 1, "a failed rebuild must never become visible")
	assert.Equal(t, "Headphones", docs[0].Name)

	status := r.Status()
	assert.Equal(t, ReindexFailed, status.State)
	assert.NotEmpty(t, status.Error)
}

func TestReindexTrigger(t *testing.T) {
	ctx := context.Background()
	cat := newFakeCatalog()
	cat.put(testProduct("prod-1", "Headphones", 29800, baseTime))

	eng := memory.New()
	r := NewReindexer(cat, eng, nil)

	require.NoError(t, r.Trigger(ctx))
	require.Eventually(t, func() bool {
		return r.Status().State == ReindexCompleted
	}, 2*time.Second, 5*time.Millisecond)

	docs, err := allDocs(ctx, eng)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func ptr(p domain.CatalogProduct) *domain.CatalogProduct {
	return &p
}
