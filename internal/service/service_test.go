package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/takezou621/sedori-platform-sub006/internal/catalog"
	"github.com/takezou621/sedori-platform-sub006/internal/domain"
	"github.com/takezou621/sedori-platform-sub006/internal/engine"
	apperrors "github.com/takezou621/sedori-platform-sub006/pkg/errors"
)

// fakeCatalog is an in-memory catalog.Store used across the service tests.
type fakeCatalog struct {
	mu         sync.Mutex
	products   map[string]domain.CatalogProduct
	categories map[string]string

	listErr   error
	listGate  chan struct{}
	listCalls int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products:   make(map[string]domain.CatalogProduct),
		categories: map[string]string{"cat-audio": "Audio", "cat-camera": "Cameras"},
	}
}

func (f *fakeCatalog) put(p domain.CatalogProduct) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
}

func (f *fakeCatalog) remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, id)
}

func (f *fakeCatalog) GetActiveProductByID(_ context.Context, id string) (*domain.CatalogProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok || !p.IsActive() {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (f *fakeCatalog) ListActiveProducts(ctx context.Context, cursor string, limit int) (*catalog.ProductPage, error) {
	f.mu.Lock()
	gate := f.listGate
	f.listCalls++
	if f.listErr != nil {
		defer f.mu.Unlock()
		return nil, f.listErr
	}

	var ids []string
	for id, p := range f.products {
		if p.IsActive() && id > cursor {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}

	page := &catalog.ProductPage{}
	for _, id := range ids {
		page.Products = append(page.Products, f.products[id])
	}
	if len(ids) == limit {
		page.NextCursor = ids[len(ids)-1]
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return page, nil
}

func (f *fakeCatalog) GetCategory(_ context.Context, id string) (*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.categories[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &domain.Category{ID: id, Name: name}, nil
}

func (f *fakeCatalog) SearchCategories(_ context.Context, term string, limit int) ([]domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Category
	for id, name := range f.categories {
		if strings.Contains(strings.ToLower(name), strings.ToLower(term)) {
			out = append(out, domain.Category{ID: id, Name: name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// testProduct builds an active audio product with the given retail price. The
// version marker derives from updatedAt.
func testProduct(id, name string, retail int64, updatedAt time.Time) domain.CatalogProduct {
	return domain.CatalogProduct{
		ID:            id,
		Name:          name,
		Description:   "A " + name,
		SKU:           "SKU-" + id,
		Brand:         "Sony",
		Model:         "M-" + id,
		CategoryID:    "cat-audio",
		RetailPrice:   retail,
		MarketPrice:   retail - 500,
		Currency:      "JPY",
		Condition:     domain.ConditionNew,
		Status:        domain.StatusActive,
		StockQuantity: 5,
		Tags:          []string{"audio"},
		AverageRating: 4.2,
		ReviewCount:   10,
		CreatedAt:     updatedAt.Add(-time.Hour),
		UpdatedAt:     updatedAt,
	}
}

// allDocs queries every document in the live generation ordered by id.
func allDocs(ctx context.Context, eng engine.Engine) ([]domain.SearchDocument, error) {
	res, err := eng.Query(ctx, &engine.CompiledQuery{
		Sort: []engine.SortKey{{Field: engine.FieldID}},
		Size: 1000,
	})
	if err != nil {
		return nil, err
	}
	docs := make([]domain.SearchDocument, 0, len(res.Hits))
	for _, h := range res.Hits {
		docs = append(docs, h.Document)
	}
	return docs, nil
}
