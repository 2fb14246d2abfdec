package domain

import "time"

// Sort options for search results.
const (
	SortRelevance  = "relevance"
	SortPriceAsc   = "price_asc"
	SortPriceDesc  = "price_desc"
	SortNameAsc    = "name_asc"
	SortNameDesc   = "name_desc"
	SortNewest     = "newest"
	SortPopularity = "popularity"
	SortRating     = "rating"
)

// ValidSortOptions returns the list of valid sort options.
func ValidSortOptions() []string {
	return []string{
		SortRelevance, SortPriceAsc, SortPriceDesc,
		SortNameAsc, SortNameDesc, SortNewest,
		SortPopularity, SortRating,
	}
}

// IsValidSort checks whether the given sort string is a valid sort option.
func IsValidSort(sort string) bool {
	for _, s := range ValidSortOptions() {
		if s == sort {
			return true
		}
	}
	return false
}

// Search entity classes.
const (
	SearchTypeProducts   = "products"
	SearchTypeCategories = "categories"
	SearchTypeAll        = "all"
)

// IsValidSearchType checks whether the given type is a valid entity class.
func IsValidSearchType(t string) bool {
	return t == SearchTypeProducts || t == SearchTypeCategories || t == SearchTypeAll
}

// Pagination limits.
const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// PriceRange filters on the effective display price, inclusive on both ends.
// A nil bound is open.
type PriceRange struct {
	Min *int64 `json:"min,omitempty"`
	Max *int64 `json:"max,omitempty"`
}

// SearchQuery holds all parameters for a search request.
type SearchQuery struct {
	Query string `json:"q"`
	Type  string `json:"type"`

	CategoryID  string      `json:"category_id,omitempty"`
	Brands      []string    `json:"brands,omitempty"`
	Condition   string      `json:"condition,omitempty"`
	Status      string      `json:"status,omitempty"`
	PriceRange  *PriceRange `json:"price_range,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	InStockOnly bool        `json:"in_stock_only,omitempty"`
	MinRating   *float64    `json:"min_rating,omitempty"`

	SortBy        string `json:"sort_by"`
	Page          int    `json:"page"`
	Limit         int    `json:"limit"`
	IncludeFacets bool   `json:"include_facets"`
}

// SearchHit is a single scored result with its highlights.
type SearchHit struct {
	Document   SearchDocument      `json:"document"`
	Score      float64             `json:"search_score"`
	Highlights map[string][]string `json:"highlights,omitempty"`
}

// CategoryHit is a category matched when type is categories or all.
type CategoryHit struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Pagination describes the paging state of a result set.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewPagination computes the pagination block from total/page/limit.
func NewPagination(total, page, limit int) Pagination {
	totalPages := total / limit
	if total%limit > 0 {
		totalPages++
	}
	return Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// FacetValue is one value of a facet dimension with its match count.
// Selected marks values present in the active filter set.
type FacetValue struct {
	Value    string `json:"value"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected"`
}

// Facet is a filterable dimension with per-value counts.
type Facet struct {
	Name   string       `json:"name"`
	Label  string       `json:"label"`
	Values []FacetValue `json:"values"`
}

// SearchResult is the assembled response for a search request.
type SearchResult struct {
	Hits        []SearchHit   `json:"hits"`
	Categories  []CategoryHit `json:"categories,omitempty"`
	Pagination  Pagination    `json:"pagination"`
	Facets      []Facet       `json:"facets,omitempty"`
	Suggestions []string      `json:"suggestions,omitempty"`
	SearchTime  time.Duration `json:"-"`
	TookMs      int64         `json:"took_ms"`
}
