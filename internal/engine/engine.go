// Package engine defines the capability boundary of the search index engine.
// The synchronizer, coordinator, and query path all speak this interface, so
// any concrete engine (Elasticsearch, the in-memory index, or another
// inverted-index service) can be swapped in without touching them.
package engine

import (
	"context"
	"time"

	"github.com/takezou621/sedori-platform-sub006/internal/domain"
)

// Logical sort fields understood by every engine implementation. Each engine
// maps them onto its own field representation (e.g. name → name.keyword in
// Elasticsearch).
const (
	FieldScore       = "_score"
	FieldPrice       = "effective_price"
	FieldName        = "name"
	FieldCreatedAt   = "created_at"
	FieldViewCount   = "view_count"
	FieldRating      = "average_rating"
	FieldReviewCount = "review_count"
	FieldID          = "id"
)

// Facet dimensions. The value is the document field the dimension counts over.
const (
	FacetBrand     = "brand"
	FacetCategory  = "category_id"
	FacetCondition = "condition"
	FacetTags      = "tags"
)

// Filters is the engine-neutral structured filter set. Families combine with
// AND; multi-valued families (Brands, Tags) combine their values with OR.
type Filters struct {
	CategoryID  string
	Brands      []string
	Condition   string
	Status      string
	MinPrice    *int64
	MaxPrice    *int64
	Tags        []string
	InStockOnly bool
	MinRating   *float64
}

// SortKey is one component of the result ordering.
type SortKey struct {
	Field string
	Desc  bool
}

// FacetRequest asks for value counts along one dimension. Filters carries the
// active filter set minus this dimension, so the counts show what the user
// would get by picking a different value.
type FacetRequest struct {
	Name    string
	Field   string
	Filters Filters
}

// CompiledQuery is the engine-native form produced by the query compiler.
type CompiledQuery struct {
	Text      string
	Filters   Filters
	Sort      []SortKey
	From      int
	Size      int
	Facets    []FacetRequest
	Highlight bool
}

// Hit is a single engine match.
type Hit struct {
	Document   domain.SearchDocument
	Score      float64
	Highlights map[string][]string
}

// FacetCount is one value bucket of a facet dimension.
type FacetCount struct {
	Value string
	Count int
}

// Result is the raw engine response before assembly.
type Result struct {
	Hits   []Hit
	Total  int
	Facets map[string][]FacetCount
	Took   time.Duration
}

// Engine is the search index engine capability interface.
//
// Generations: CreateGeneration allocates a fresh, independently addressable
// index build; SwapAlias atomically redirects the live alias to it and returns
// the previously live generation; DropGeneration discards a generation.
// UpsertIfNewer, Delete, Query, and Suggest always address the live alias.
type Engine interface {
	// UpsertIfNewer writes doc into the live generation unless a document with
	// the same ID already carries a newer SourceVersion, in which case it
	// returns errors.ErrVersionConflict.
	UpsertIfNewer(ctx context.Context, doc *domain.SearchDocument) error

	// BulkUpsert writes docs into the named generation. An empty generation
	// targets the live alias. Per-document version checks still apply on the
	// live alias; shadow generations accept all writes (they start empty).
	BulkUpsert(ctx context.Context, generation string, docs []domain.SearchDocument) error

	// Delete removes the document with the given ID. Absence is not an error.
	Delete(ctx context.Context, id string) error

	// Query executes a compiled query against the live generation.
	Query(ctx context.Context, q *CompiledQuery) (*Result, error)

	// Suggest returns near-miss keyword suggestions for the given term.
	Suggest(ctx context.Context, term string, limit int) ([]string, error)

	// CreateGeneration allocates a fresh, empty index generation and returns
	// its handle.
	CreateGeneration(ctx context.Context) (string, error)

	// SwapAlias atomically points the live alias at the given generation and
	// returns the handle of the previously live generation (empty if none).
	SwapAlias(ctx context.Context, generation string) (string, error)

	// DropGeneration discards a generation. Dropping the live generation is an
	// error.
	DropGeneration(ctx context.Context, generation string) error

	// Ping reports whether the engine is reachable.
	Ping(ctx context.Context) error
}
