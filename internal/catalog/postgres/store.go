// Package postgres implements the catalog read contract against PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/takezou621/sedori-platform-sub006/internal/catalog"
	"github.com/takezou621/sedori-platform-sub006/internal/domain"
	"github.com/takezou621/sedori-platform-sub006/pkg/database"
	apperrors "github.com/takezou621/sedori-platform-sub006/pkg/errors"
)

const productColumns = `id, name, description, sku, brand, model, category_id,
		wholesale_price, retail_price, market_price, currency,
		condition, status, stock_quantity, images, primary_image_url,
		specifications, tags, view_count, average_rating, review_count,
		created_at, updated_at`

// Store is a PostgreSQL-backed catalog reader.
type Store struct {
	pool database.DBTX
}

// NewStore creates a new PostgreSQL-backed catalog store.
func NewStore(pool database.DBTX) *Store {
	return &Store{pool: pool}
}

// GetActiveProductByID retrieves an active product by its ID.
func (s *Store) GetActiveProductByID(ctx context.Context, id string) (*domain.CatalogProduct, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE id = $1 AND status = $2`, productColumns)

	row := s.pool.QueryRow(ctx, query, id, domain.StatusActive)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get active product: %w", err)
	}
	return p, nil
}

// ListActiveProducts pages through active products ordered by id using keyset
// pagination. An empty cursor starts from the beginning.
func (s *Store) ListActiveProducts(ctx context.Context, cursor string, limit int) (*catalog.ProductPage, error) {
	if limit <= 0 {
		limit = 500
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE status = $1 AND id > $2
		ORDER BY id
		LIMIT $3`, productColumns)

	rows, err := s.pool.Query(ctx, query, domain.StatusActive, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}
	defer rows.Close()

	var products []domain.CatalogProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("list active products: scan: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active products: %w", err)
	}

	page := &catalog.ProductPage{Products: products}
	if len(products) == limit {
		page.NextCursor = products[len(products)-1].ID
	}
	return page, nil
}

// GetCategory retrieves a category by its ID.
func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	var c domain.Category
	err := s.pool.QueryRow(ctx,
		`SELECT id, name FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

// SearchCategories returns categories whose name contains the given term,
// case-insensitively.
func (s *Store) SearchCategories(ctx context.Context, term string, limit int) ([]domain.Category, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, name FROM categories WHERE name ILIKE $1 ORDER BY name LIMIT $2`,
		"%"+term+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("search categories: scan: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search categories: %w", err)
	}
	return categories, nil
}

// scanProduct scans one product row. images, specifications, and tags are
// stored as JSONB columns.
func scanProduct(row pgx.Row) (*domain.CatalogProduct, error) {
	var (
		p      domain.CatalogProduct
		images []byte
		specs  []byte
		tags   []byte
	)

	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.SKU, &p.Brand, &p.Model, &p.CategoryID,
		&p.WholesalePrice, &p.RetailPrice, &p.MarketPrice, &p.Currency,
		&p.Condition, &p.Status, &p.StockQuantity, &images, &p.PrimaryImageURL,
		&specs, &tags, &p.ViewCount, &p.AverageRating, &p.ReviewCount,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(images) > 0 {
		if err := json.Unmarshal(images, &p.Images); err != nil {
			return nil, fmt.Errorf("unmarshal images: %w", err)
		}
	}
	if len(specs) > 0 {
		if err := json.Unmarshal(specs, &p.Specifications); err != nil {
			return nil, fmt.Errorf("unmarshal specifications: %w", err)
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}

	return &p, nil
}
