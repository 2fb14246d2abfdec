// Package catalog provides read-only access to the authoritative relational
// product catalog. The search subsystem never writes through it.
package catalog

import (
	"context"

	"github.com/takezou621/sedori-platform-sub006/internal/domain"
)

// ProductPage is one keyset-paginated slice of active products. NextCursor is
// empty when the listing is exhausted.
type ProductPage struct {
	Products   []domain.CatalogProduct
	NextCursor string
}

// Store is the catalog read contract consumed by the indexing and query paths.
type Store interface {
	// GetActiveProductByID returns the product when it exists and is active;
	// errors.ErrNotFound otherwise.
	GetActiveProductByID(ctx context.Context, id string) (*domain.CatalogProduct, error)

	// ListActiveProducts pages through active products ordered by id, starting
	// after the given cursor.
	ListActiveProducts(ctx context.Context, cursor string, limit int) (*ProductPage, error)

	// GetCategory returns the category row; errors.ErrNotFound when absent.
	GetCategory(ctx context.Context, id string) (*domain.Category, error)

	// SearchCategories returns categories whose name matches the given term.
	SearchCategories(ctx context.Context, term string, limit int) ([]domain.Category, error)
}
