package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectivePriceFallback(t *testing.T) {
	p := CatalogProduct{RetailPrice: 29800, MarketPrice: 27500, WholesalePrice: 18000}
	assert.Equal(t, int64(29800), p.EffectivePrice())

	p.RetailPrice = 0
	assert.Equal(t, int64(27500), p.EffectivePrice())

	p.MarketPrice = 0
	assert.Equal(t, int64(18000), p.EffectivePrice())
}

func TestIsActive(t *testing.T) {
	assert.True(t, (&CatalogProduct{Status: StatusActive}).IsActive())
	assert.False(t, (&CatalogProduct{Status: StatusInactive}).IsActive())
	assert.False(t, (&CatalogProduct{Status: StatusDiscontinued}).IsActive())
}

func TestSourceVersionFollowsUpdatedAt(t *testing.T) {
	earlier := CatalogProduct{UpdatedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	later := CatalogProduct{UpdatedAt: earlier.UpdatedAt.Add(time.Millisecond)}

	assert.Less(t, earlier.SourceVersion(), later.SourceVersion())
	assert.Equal(t, earlier.UpdatedAt.UnixMilli(), earlier.SourceVersion())
}

func TestBuildSearchDocument(t *testing.T) {
	p := CatalogProduct{
		ID:            "prod-1",
		Name:          "Wireless Headphones",
		Description:   "Noise canceling",
		SKU:           "SKU-1",
		Brand:         "Sony",
		Model:         "WH-1000XM5",
		CategoryID:    "cat-1",
		RetailPrice:   29800,
		Currency:      "JPY",
		Condition:     ConditionNew,
		Status:        StatusActive,
		StockQuantity: 3,
		Tags:          []string{"audio", "wireless"},
		UpdatedAt:     time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}

	doc := BuildSearchDocument(&p, "Audio")

	assert.Equal(t, "Audio", doc.CategoryName)
	assert.Equal(t, int64(29800), doc.EffectivePrice)
	assert.True(t, doc.InStock)
	assert.Equal(t, p.SourceVersion(), doc.SourceVersion)
	for _, part := range []string{"Wireless Headphones", "Noise canceling", "Sony", "WH-1000XM5", "SKU-1", "audio wireless"} {
		assert.Contains(t, doc.SearchableText, part)
	}
}

func TestBuildSearchDocumentOutOfStock(t *testing.T) {
	p := CatalogProduct{ID: "prod-1", Status: StatusActive, StockQuantity: 0}
	doc := BuildSearchDocument(&p, "")

	assert.False(t, doc.InStock)
	assert.NotNil(t, doc.Tags, "tags marshal as an empty array, not null")
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(45, 2, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.True(t, p.HasPrev)

	p = NewPagination(0, 1, 20)
	assert.Equal(t, 0, p.TotalPages)
	assert.False(t, p.HasNext)
	assert.False(t, p.HasPrev)

	p = NewPagination(40, 2, 20)
	assert.Equal(t, 2, p.TotalPages)
	assert.False(t, p.HasNext)
}
