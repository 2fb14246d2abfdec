package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/takezou621/sedori-platform-sub006/internal/catalog"
	"github.com/takezou621/sedori-platform-sub006/internal/domain"
	"github.com/takezou621/sedori-platform-sub006/internal/engine"
	"github.com/takezou621/sedori-platform-sub006/internal/metrics"
	"github.com/takezou621/sedori-platform-sub006/internal/query"
	apperrors "github.com/takezou621/sedori-platform-sub006/pkg/errors"
	"github.com/takezou621/sedori-platform-sub006/pkg/logger"
)

// suggestionLimit bounds the number of alternatives offered on empty results.
const suggestionLimit = 5

// facetLabels maps facet dimensions to their display labels.
var facetLabels = map[string]string{
	engine.FacetBrand:     "Brand",
	engine.FacetCategory:  "Category",
	engine.FacetCondition: "Condition",
	engine.FacetTags:      "Tags",
}

// Searcher is the query side of the subsystem: it compiles requests, runs them
// through the engine behind a circuit breaker, and assembles the response.
type Searcher struct {
	engine  engine.Engine
	catalog catalog.Store
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker[*engine.Result]
}

// NewSearcher creates the query service. The breaker trips after repeated
// engine faults so that a struggling cluster sheds load quickly instead of
// stacking up timed-out requests.
func NewSearcher(eng engine.Engine, store catalog.Store, log *slog.Logger) *Searcher {
	if log == nil {
		log = slog.Default()
	}
	breaker := gobreaker.NewCircuitBreaker[*engine.Result](gobreaker.Settings{
		Name:        "search-engine",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Searcher{engine: eng, catalog: store, logger: log, breaker: breaker}
}

// Search runs one search request end to end: normalize, compile, query,
// assemble. Engine faults surface as a 503, never as a silently empty result.
func (s *Searcher) Search(ctx context.Context, q *domain.SearchQuery) (*domain.SearchResult, error) {
	started := time.Now()

	query.Normalize(q)
	compiled, err := query.Compile(q)
	if err != nil {
		metrics.SearchResultsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	result := &domain.SearchResult{Hits: []domain.SearchHit{}}

	if q.Type == domain.SearchTypeCategories || q.Type == domain.SearchTypeAll {
		result.Categories = s.searchCategories(ctx, q)
	}

	if q.Type == domain.SearchTypeCategories {
		result.Pagination = domain.NewPagination(len(result.Categories), q.Page, q.Limit)
		s.observe(q, result, started)
		return result, nil
	}

	raw, err := s.breaker.Execute(func() (*engine.Result, error) {
		return s.engine.Query(ctx, compiled)
	})
	if err != nil {
		metrics.SearchResultsTotal.WithLabelValues("error").Inc()
		if errors.Is(err, apperrors.ErrInvalidInput) {
			return nil, err
		}
		return nil, apperrors.EngineUnavailable(err)
	}

	s.assemble(ctx, q, compiled, raw, result)
	s.observe(q, result, started)
	return result, nil
}

// Suggest exposes keyword suggestions directly, for typeahead endpoints.
func (s *Searcher) Suggest(ctx context.Context, term string, limit int) ([]string, error) {
	if limit <= 0 || limit > suggestionLimit*4 {
		limit = suggestionLimit
	}
	suggestions, err := s.engine.Suggest(ctx, term, limit)
	if err != nil {
		return nil, apperrors.EngineUnavailable(err)
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	return suggestions, nil
}

func (s *Searcher) assemble(ctx context.Context, q *domain.SearchQuery, compiled *engine.CompiledQuery, raw *engine.Result, result *domain.SearchResult) {
	names := newCategoryNames(s.catalog)

	result.Hits = make([]domain.SearchHit, 0, len(raw.Hits))
	for _, h := range raw.Hits {
		doc := h.Document
		// Category renames land between index writes; re-resolve the display
		// name so results never show a stale one.
		if fresh := names.resolve(ctx, doc.CategoryID); fresh != "" {
			doc.CategoryName = fresh
		}
		result.Hits = append(result.Hits, domain.SearchHit{
			Document:   doc,
			Score:      h.Score,
			Highlights: h.Highlights,
		})
	}

	result.Pagination = domain.NewPagination(raw.Total, q.Page, q.Limit)
	result.SearchTime = raw.Took
	result.TookMs = raw.Took.Milliseconds()

	if q.IncludeFacets {
		result.Facets = s.buildFacets(compiled, raw)
	}

	if raw.Total == 0 && q.Query != "" {
		suggestions, err := s.engine.Suggest(ctx, q.Query, suggestionLimit)
		if err != nil {
			logger.FromContext(ctx).Warn("suggestion lookup failed", "q", q.Query, "error", err)
		} else {
			result.Suggestions = suggestions
		}
	}
}

// buildFacets orders the engine's facet counts into the response shape and
// marks the values present in the active filter set.
func (s *Searcher) buildFacets(compiled *engine.CompiledQuery, raw *engine.Result) []domain.Facet {
	selected := map[string]map[string]bool{
		engine.FacetBrand:     toSet(compiled.Filters.Brands),
		engine.FacetCategory:  toSet(oneOrNone(compiled.Filters.CategoryID)),
		engine.FacetCondition: toSet(oneOrNone(compiled.Filters.Condition)),
		engine.FacetTags:      toSet(compiled.Filters.Tags),
	}

	facets := make([]domain.Facet, 0, len(compiled.Facets))
	for _, req := range compiled.Facets {
		counts := raw.Facets[req.Name]
		values := make([]domain.FacetValue, 0, len(counts))
		for _, c := range counts {
			values = append(values, domain.FacetValue{
				Value:    c.Value,
				Count:    c.Count,
				Selected: selected[req.Name][c.Value],
			})
		}
		facets = append(facets, domain.Facet{
			Name:   req.Name,
			Label:  facetLabels[req.Name],
			Values: values,
		})
	}
	return facets
}

func (s *Searcher) searchCategories(ctx context.Context, q *domain.SearchQuery) []domain.CategoryHit {
	if q.Query == "" {
		return nil
	}
	cats, err := s.catalog.SearchCategories(ctx, q.Query, q.Limit)
	if err != nil {
		logger.FromContext(ctx).Warn("category search failed", "q", q.Query, "error", err)
		return nil
	}
	hits := make([]domain.CategoryHit, 0, len(cats))
	for _, c := range cats {
		hits = append(hits, domain.CategoryHit{ID: c.ID, Name: c.Name})
	}
	return hits
}

func (s *Searcher) observe(q *domain.SearchQuery, result *domain.SearchResult, started time.Time) {
	metrics.SearchDuration.WithLabelValues(q.Type).Observe(time.Since(started).Seconds())
	if len(result.Hits) > 0 || len(result.Categories) > 0 {
		metrics.SearchResultsTotal.WithLabelValues("hits").Inc()
	} else {
		metrics.SearchResultsTotal.WithLabelValues("empty").Inc()
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func oneOrNone(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
