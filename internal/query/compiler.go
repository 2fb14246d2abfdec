// Package query compiles a user-facing SearchQuery into the engine-neutral
// CompiledQuery form. Malformed filter combinations are rejected here, before
// anything reaches the engine.
package query

import (
	"fmt"
	"strings"

	"github.com/takezou621/sedori-platform-sub006/internal/domain"
	"github.com/takezou621/sedori-platform-sub006/internal/engine"
	apperrors "github.com/takezou621/sedori-platform-sub006/pkg/errors"
)

// Normalize applies defaults and clamps page/limit in place. Out-of-range
// paging values are clamped rather than rejected so that sloppy clients still
// get a well-formed first page.
func Normalize(q *domain.SearchQuery) {
	q.Query = strings.TrimSpace(q.Query)
	if q.Type == "" {
		q.Type = domain.SearchTypeProducts
	}
	if q.SortBy == "" {
		q.SortBy = domain.SortRelevance
	}
	if q.Page < domain.DefaultPage {
		q.Page = domain.DefaultPage
	}
	if q.Limit <= 0 {
		q.Limit = domain.DefaultLimit
	}
	if q.Limit > domain.MaxLimit {
		q.Limit = domain.MaxLimit
	}
}

// Compile validates the query and produces its engine-native form plus the
// facet request list. Callers should Normalize first.
func Compile(q *domain.SearchQuery) (*engine.CompiledQuery, error) {
	if !domain.IsValidSearchType(q.Type) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("type must be one of: %s, %s, %s",
			domain.SearchTypeProducts, domain.SearchTypeCategories, domain.SearchTypeAll))
	}
	if !domain.IsValidSort(q.SortBy) {
		return nil, apperrors.InvalidInput("sort_by must be one of: " + strings.Join(domain.ValidSortOptions(), ", "))
	}

	filters, err := compileFilters(q)
	if err != nil {
		return nil, err
	}

	compiled := &engine.CompiledQuery{
		Text:      q.Query,
		Filters:   filters,
		Sort:      sortKeys(q.SortBy, q.Query),
		From:      (q.Page - 1) * q.Limit,
		Size:      q.Limit,
		Highlight: q.Query != "",
	}

	if q.IncludeFacets {
		compiled.Facets = facetRequests(filters)
	}

	return compiled, nil
}

func compileFilters(q *domain.SearchQuery) (engine.Filters, error) {
	f := engine.Filters{
		CategoryID:  q.CategoryID,
		Brands:      dropEmpty(q.Brands),
		Condition:   q.Condition,
		Status:      q.Status,
		Tags:        dropEmpty(q.Tags),
		InStockOnly: q.InStockOnly,
		MinRating:   q.MinRating,
	}

	if q.MinRating != nil && (*q.MinRating < 0 || *q.MinRating > 5) {
		return engine.Filters{}, apperrors.InvalidInput("min_rating must be between 0 and 5")
	}

	if pr := q.PriceRange; pr != nil {
		if pr.Min != nil && *pr.Min < 0 {
			return engine.Filters{}, apperrors.InvalidInput("price_range.min must not be negative")
		}
		if pr.Max != nil && *pr.Max < 0 {
			return engine.Filters{}, apperrors.InvalidInput("price_range.max must not be negative")
		}
		if pr.Min != nil && pr.Max != nil && *pr.Min > *pr.Max {
			return engine.Filters{}, apperrors.InvalidInput("price_range.min must not exceed price_range.max")
		}
		f.MinPrice = pr.Min
		f.MaxPrice = pr.Max
	}

	return f, nil
}

// sortKeys maps a sort option to the engine ordering. Every ordering ends with
// id ascending so repeated identical queries paginate deterministically.
func sortKeys(sortBy, text string) []engine.SortKey {
	idAsc := engine.SortKey{Field: engine.FieldID}

	switch sortBy {
	case domain.SortRelevance:
		if text == "" {
			// No text to rank by: fall back to newest rather than handing
			// every document a meaningless zero score.
			return []engine.SortKey{{Field: engine.FieldCreatedAt, Desc: true}, idAsc}
		}
		return []engine.SortKey{
			{Field: engine.FieldScore, Desc: true},
			{Field: engine.FieldReviewCount, Desc: true},
			idAsc,
		}
	case domain.SortPriceAsc:
		return []engine.SortKey{{Field: engine.FieldPrice}, idAsc}
	case domain.SortPriceDesc:
		return []engine.SortKey{{Field: engine.FieldPrice, Desc: true}, idAsc}
	case domain.SortNameAsc:
		return []engine.SortKey{{Field: engine.FieldName}, idAsc}
	case domain.SortNameDesc:
		return []engine.SortKey{{Field: engine.FieldName, Desc: true}, idAsc}
	case domain.SortPopularity:
		return []engine.SortKey{{Field: engine.FieldViewCount, Desc: true}, idAsc}
	case domain.SortRating:
		return []engine.SortKey{{Field: engine.FieldRating, Desc: true}, idAsc}
	default: // domain.SortNewest
		return []engine.SortKey{{Field: engine.FieldCreatedAt, Desc: true}, idAsc}
	}
}

// facetRequests builds one request per dimension, each carrying the active
// filter set minus its own dimension so the counts show alternative choices.
func facetRequests(f engine.Filters) []engine.FacetRequest {
	return []engine.FacetRequest{
		{Name: engine.FacetBrand, Field: "brand", Filters: without(f, engine.FacetBrand)},
		{Name: engine.FacetCategory, Field: "category_id", Filters: without(f, engine.FacetCategory)},
		{Name: engine.FacetCondition, Field: "condition", Filters: without(f, engine.FacetCondition)},
		{Name: engine.FacetTags, Field: "tags", Filters: without(f, engine.FacetTags)},
	}
}

func without(f engine.Filters, facet string) engine.Filters {
	switch facet {
	case engine.FacetBrand:
		f.Brands = nil
	case engine.FacetCategory:
		f.CategoryID = ""
	case engine.FacetCondition:
		f.Condition = ""
	case engine.FacetTags:
		f.Tags = nil
	}
	return f
}

func dropEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
