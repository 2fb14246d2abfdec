package domain

import (
	"strings"
	"time"
)

// SearchDocument is the flattened, denormalized projection of a CatalogProduct
// stored in the search index. categoryName is joined at build time;
// searchableText is the free-text matching target; sourceVersion rejects
// out-of-order writes.
type SearchDocument struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	SKU          string `json:"sku"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`

	EffectivePrice int64  `json:"effective_price"`
	WholesalePrice int64  `json:"wholesale_price"`
	RetailPrice    int64  `json:"retail_price"`
	MarketPrice    int64  `json:"market_price"`
	Currency       string `json:"currency"`

	Condition     string `json:"condition"`
	Status        string `json:"status"`
	StockQuantity int    `json:"stock_quantity"`
	InStock       bool   `json:"in_stock"`

	PrimaryImageURL string `json:"primary_image_url"`

	Specifications map[string]string `json:"specifications,omitempty"`
	Tags           []string          `json:"tags"`

	ViewCount     int64   `json:"view_count"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`

	SearchableText string `json:"searchable_text"`
	SourceVersion  int64  `json:"source_version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BuildSearchDocument flattens an active catalog product into its index
// document. categoryName comes from the category lookup so the caller can
// supply a cached value.
func BuildSearchDocument(p *CatalogProduct, categoryName string) *SearchDocument {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	return &SearchDocument{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		SKU:          p.SKU,
		Brand:        p.Brand,
		Model:        p.Model,
		CategoryID:   p.CategoryID,
		CategoryName: categoryName,

		EffectivePrice: p.EffectivePrice(),
		WholesalePrice: p.WholesalePrice,
		RetailPrice:    p.RetailPrice,
		MarketPrice:    p.MarketPrice,
		Currency:       p.Currency,

		Condition:     p.Condition,
		Status:        p.Status,
		StockQuantity: p.StockQuantity,
		InStock:       p.StockQuantity > 0,

		PrimaryImageURL: p.PrimaryImageURL,

		Specifications: p.Specifications,
		Tags:           tags,

		ViewCount:     p.ViewCount,
		AverageRating: p.AverageRating,
		ReviewCount:   p.ReviewCount,

		SearchableText: joinNonEmpty(p.Name, p.Description, p.Brand, p.Model, p.SKU, strings.Join(p.Tags, " ")),
		SourceVersion:  p.SourceVersion(),

		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
