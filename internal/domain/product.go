package domain

import (
	"strings"
	"time"
)

// Product status values in the catalog. Only active products are eligible for
// indexing; any transition away from active is a deletion as far as the search
// index is concerned.
const (
	StatusActive       = "active"
	StatusInactive     = "inactive"
	StatusDiscontinued = "discontinued"
)

// Product condition values.
const (
	ConditionNew         = "new"
	ConditionUsed        = "used"
	ConditionRefurbished = "refurbished"
)

// CatalogProduct is a read-only projection of a product row in the relational
// catalog. The search subsystem never writes it back.
type CatalogProduct struct {
	ID          string
	Name        string
	Description string
	SKU         string
	Brand       string
	Model       string
	CategoryID  string

	WholesalePrice int64
	RetailPrice    int64
	MarketPrice    int64
	Currency       string

	Condition     string
	Status        string
	StockQuantity int

	Images          []string
	PrimaryImageURL string

	Specifications map[string]string
	Tags           []string

	ViewCount     int64
	AverageRating float64
	ReviewCount   int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive reports whether the product is eligible for indexing.
func (p *CatalogProduct) IsActive() bool {
	return p.Status == StatusActive
}

// EffectivePrice returns the canonical display price: retail when set, then
// market, then wholesale. Price filtering and price sorting both use this
// value so they always agree.
func (p *CatalogProduct) EffectivePrice() int64 {
	if p.RetailPrice > 0 {
		return p.RetailPrice
	}
	if p.MarketPrice > 0 {
		return p.MarketPrice
	}
	return p.WholesalePrice
}

// SourceVersion derives the monotonic version marker used to reject
// out-of-order index writes. The catalog bumps updated_at on every mutation,
// so millisecond precision of that timestamp serves as the version counter.
func (p *CatalogProduct) SourceVersion() int64 {
	return p.UpdatedAt.UnixMilli()
}

// Category is a catalog category row, used to resolve display names.
type Category struct {
	ID   string
	Name string
}

// joinNonEmpty concatenates the non-empty parts with single spaces.
func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
