package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takezou621/sedori-platform-sub006/internal/domain"
	"github.com/takezou621/sedori-platform-sub006/internal/engine"
	apperrors "github.com/takezou621/sedori-platform-sub006/pkg/errors"
)

func TestNormalizeDefaults(t *testing.T) {
	q := &domain.SearchQuery{Query: "  headphones  "}
	Normalize(q)

	assert.Equal(t, "headphones", q.Query)
	assert.Equal(t, domain.SearchTypeProducts, q.Type)
	assert.Equal(t, domain.SortRelevance, q.SortBy)
	assert.Equal(t, domain.DefaultPage, q.Page)
	assert.Equal(t, domain.DefaultLimit, q.Limit)
}

func TestNormalizeClampsPaging(t *testing.T) {
	q := &domain.SearchQuery{Page: -5, Limit: 5000}
	Normalize(q)

	assert.Equal(t, 1, q.Page)
	assert.Equal(t, domain.MaxLimit, q.Limit)
}

func TestCompileOffsets(t *testing.T) {
	q := &domain.SearchQuery{Query: "headphones", Page: 3, Limit: 20}
	Normalize(q)

	compiled, err := Compile(q)
	require.NoError(t, err)
	assert.Equal(t, 40, compiled.From)
	assert.Equal(t, 20, compiled.Size)
	assert.True(t, compiled.Highlight)
}

func TestCompileRejectsInvalidSort(t *testing.T) {
	q := &domain.SearchQuery{SortBy: "cheapest"}
	Normalize(q)

	_, err := Compile(q)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCompileRejectsInvalidType(t *testing.T) {
	q := &domain.SearchQuery{Type: "vendors"}
	Normalize(q)

	_, err := Compile(q)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCompileRejectsBadPriceRange(t *testing.T) {
	neg := int64(-1)
	q := &domain.SearchQuery{PriceRange: &domain.PriceRange{Min: &neg}}
	Normalize(q)
	_, err := Compile(q)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	min, max := int64(5000), int64(100)
	q = &domain.SearchQuery{PriceRange: &domain.PriceRange{Min: &min, Max: &max}}
	Normalize(q)
	_, err = Compile(q)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCompileRejectsBadRating(t *testing.T) {
	rating := 7.5
	q := &domain.SearchQuery{MinRating: &rating}
	Normalize(q)

	_, err := Compile(q)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCompileRelevanceSort(t *testing.T) {
	q := &domain.SearchQuery{Query: "headphones"}
	Normalize(q)

	compiled, err := Compile(q)
	require.NoError(t, err)
	require.Len(t, compiled.Sort, 3)
	assert.Equal(t, engine.SortKey{Field: engine.FieldScore, Desc: true}, compiled.Sort[0])
	assert.Equal(t, engine.SortKey{Field: engine.FieldReviewCount, Desc: true}, compiled.Sort[1])
	assert.Equal(t, engine.SortKey{Field: engine.FieldID}, compiled.Sort[2])
}

func TestCompileEmptyTextRelevanceFallsBackToNewest(t *testing.T) {
	q := &domain.SearchQuery{}
	Normalize(q)

	compiled, err := Compile(q)
	require.NoError(t, err)
	require.NotEmpty(t, compiled.Sort)
	assert.Equal(t, engine.SortKey{Field: engine.FieldCreatedAt, Desc: true}, compiled.Sort[0])
	assert.False(t, compiled.Highlight)
}

func TestCompileEverySortEndsWithIDTieBreak(t *testing.T) {
	for _, sortBy := range domain.ValidSortOptions() {
		q := &domain.SearchQuery{Query: "x", SortBy: sortBy}
		Normalize(q)

		compiled, err := Compile(q)
		require.NoError(t, err, sortBy)
		last := compiled.Sort[len(compiled.Sort)-1]
		assert.Equal(t, engine.SortKey{Field: engine.FieldID}, last, sortBy)
	}
}

func TestCompileFacetRequestsExcludeOwnDimension(t *testing.T) {
	q := &domain.SearchQuery{
		CategoryID:    "cat-1",
		Brands:        []string{"Sony"},
		Condition:     "new",
		Tags:          []string{"audio"},
		IncludeFacets: true,
	}
	Normalize(q)

	compiled, err := Compile(q)
	require.NoError(t, err)
	require.Len(t, compiled.Facets, 4)

	byName := map[string]engine.FacetRequest{}
	for _, req := range compiled.Facets {
		byName[req.Name] = req
	}

	assert.Empty(t, byName[engine.FacetBrand].Filters.Brands)
	assert.Equal(t, "cat-1", byName[engine.FacetBrand].Filters.CategoryID)

	assert.Empty(t, byName[engine.FacetCategory].Filters.CategoryID)
	assert.Equal(t, []string{"Sony"}, byName[engine.FacetCategory].Filters.Brands)

	assert.Empty(t, byName[engine.FacetCondition].Filters.Condition)
	assert.Empty(t, byName[engine.FacetTags].Filters.Tags)
	assert.Equal(t, []string{"audio"}, byName[engine.FacetCondition].Filters.Tags)
}

func TestCompileNoFacetsUnlessRequested(t *testing.T) {
	q := &domain.SearchQuery{Query: "headphones"}
	Normalize(q)

	compiled, err := Compile(q)
	require.NoError(t, err)
	assert.Empty(t, compiled.Facets)
}

func TestCompileDropsEmptyFilterValues(t *testing.T) {
	q := &domain.SearchQuery{Brands: []string{" Sony ", "", "  "}, Tags: []string{"", "audio"}}
	Normalize(q)

	compiled, err := Compile(q)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sony"}, compiled.Filters.Brands)
	assert.Equal(t, []string{"audio"}, compiled.Filters.Tags)
}
