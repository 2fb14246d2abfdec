// Package handler exposes the search subsystem over HTTP.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/takezou621/sedori-platform-sub006/internal/domain"
	"github.com/takezou621/sedori-platform-sub006/internal/service"
	apperrors "github.com/takezou621/sedori-platform-sub006/pkg/errors"
	"github.com/takezou621/sedori-platform-sub006/pkg/httputil"
)

// SearchHandler serves the public search and suggestion endpoints.
type SearchHandler struct {
	searcher *service.Searcher
	logger   *slog.Logger
}

// NewSearchHandler creates the search handler.
func NewSearchHandler(searcher *service.Searcher, log *slog.Logger) *SearchHandler {
	if log == nil {
		log = slog.Default()
	}
	return &SearchHandler{searcher: searcher, logger: log}
}

// Search handles GET /api/v1/search.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q, err := parseSearchQuery(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.searcher.Search(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Suggest handles GET /api/v1/search/suggestions.
func (h *SearchHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("q is required"), h.logger)
		return
	}

	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, r, apperrors.InvalidInput("limit must be an integer"), h.logger)
			return
		}
		limit = n
	}

	suggestions, err := h.searcher.Suggest(r.Context(), term, limit)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"suggestions": suggestions,
	}})
}

// parseSearchQuery maps URL query parameters onto a SearchQuery. Unparseable
// numerics are rejected; range and paging values are validated or clamped
// downstream by the compiler.
func parseSearchQuery(r *http.Request) (*domain.SearchQuery, error) {
	params := r.URL.Query()

	q := &domain.SearchQuery{
		Query:         params.Get("q"),
		Type:          params.Get("type"),
		CategoryID:    params.Get("category_id"),
		Brands:        splitCSV(params.Get("brands")),
		Condition:     params.Get("condition"),
		Status:        params.Get("status"),
		Tags:          splitCSV(params.Get("tags")),
		SortBy:        params.Get("sort_by"),
		IncludeFacets: true,
	}

	if raw := params.Get("facets"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, apperrors.InvalidInput("facets must be a boolean")
		}
		q.IncludeFacets = include
	}

	if raw := params.Get("in_stock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, apperrors.InvalidInput("in_stock must be a boolean")
		}
		q.InStockOnly = inStock
	}

	if raw := params.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperrors.InvalidInput("page must be an integer")
		}
		q.Page = page
	}

	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperrors.InvalidInput("limit must be an integer")
		}
		q.Limit = limit
	}

	minPrice, err := parseInt64(params.Get("min_price"), "min_price")
	if err != nil {
		return nil, err
	}
	maxPrice, err := parseInt64(params.Get("max_price"), "max_price")
	if err != nil {
		return nil, err
	}
	if minPrice != nil || maxPrice != nil {
		q.PriceRange = &domain.PriceRange{Min: minPrice, Max: maxPrice}
	}

	if raw := params.Get("min_rating"); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apperrors.InvalidInput("min_rating must be a number")
		}
		q.MinRating = &rating
	}

	return q, nil
}

func parseInt64(raw, name string) (*int64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, apperrors.InvalidInput(name + " must be an integer")
	}
	return &v, nil
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
