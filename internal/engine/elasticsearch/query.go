package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/takezou621/sedori-platform-sub006/internal/domain"
	"github.com/takezou621/sedori-platform-sub006/internal/engine"
)

// esSearchResponse is the structure used to decode Elasticsearch search responses.
type esSearchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score     float64               `json:"_score"`
			Source    domain.SearchDocument `json:"_source"`
			Highlight map[string][]string   `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]struct {
		Values struct {
			Buckets []struct {
				Key      any `json:"key"`
				DocCount int `json:"doc_count"`
			} `json:"buckets"`
		} `json:"values"`
	} `json:"aggregations"`
}

// Query executes a compiled query against the live alias.
func (e *Engine) Query(ctx context.Context, q *engine.CompiledQuery) (*engine.Result, error) {
	body := buildSearchBody(q)

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.alias),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithTrackTotalHits(true),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, decodeError(res.Body, res.Status(), "elasticsearch search")
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	hits := make([]engine.Hit, 0, len(esResp.Hits.Hits))
	for _, h := range esResp.Hits.Hits {
		hit := engine.Hit{Document: h.Source, Score: h.Score}
		if len(h.Highlight) > 0 {
			hit.Highlights = h.Highlight
		}
		hits = append(hits, hit)
	}

	facets := make(map[string][]engine.FacetCount, len(esResp.Aggregations))
	for name, agg := range esResp.Aggregations {
		counts := make([]engine.FacetCount, 0, len(agg.Values.Buckets))
		for _, b := range agg.Values.Buckets {
			counts = append(counts, engine.FacetCount{
				Value: fmt.Sprintf("%v", b.Key),
				Count: b.DocCount,
			})
		}
		facets[name] = counts
	}

	return &engine.Result{
		Hits:   hits,
		Total:  esResp.Hits.Total.Value,
		Facets: facets,
		Took:   time.Duration(esResp.Took) * time.Millisecond,
	}, nil
}

// buildSearchBody constructs the query DSL. Structured filters go into a
// post_filter so that facet aggregations (which carry their own filter sets,
// each minus its own dimension) are computed on the text-matched scope.
func buildSearchBody(q *engine.CompiledQuery) map[string]any {
	body := map[string]any{
		"query":            map[string]any{"bool": map[string]any{"must": []any{textClause(q.Text)}}},
		"from":             q.From,
		"size":             q.Size,
		"track_total_hits": true,
		"track_scores":     true,
		"sort":             sortClause(q.Sort),
	}

	if filters := filterClauses(&q.Filters); len(filters) > 0 {
		body["post_filter"] = map[string]any{"bool": map[string]any{"filter": filters}}
	}

	if q.Highlight {
		body["highlight"] = map[string]any{
			"fields": map[string]any{
				"name":        map[string]any{},
				"description": map[string]any{},
			},
		}
	}

	if len(q.Facets) > 0 {
		aggs := make(map[string]any, len(q.Facets))
		for _, req := range q.Facets {
			agg := map[string]any{
				"aggs": map[string]any{
					"values": map[string]any{
						"terms": map[string]any{"field": req.Field, "size": 50},
					},
				},
			}
			if clauses := filterClauses(&req.Filters); len(clauses) > 0 {
				agg["filter"] = map[string]any{"bool": map[string]any{"filter": clauses}}
			} else {
				agg["filter"] = map[string]any{"match_all": map[string]any{}}
			}
			aggs[req.Name] = agg
		}
		body["aggs"] = aggs
	}

	return body
}

func textClause(text string) map[string]any {
	if text == "" {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{
		"multi_match": map[string]any{
			"query":         text,
			"fields":        []string{"name^3", "name.autocomplete^2", "brand^2", "model", "sku", "description", "category_name", "searchable_text"},
			"type":          "best_fields",
			"fuzziness":     "AUTO",
			"prefix_length": 1,
		},
	}
}

func filterClauses(f *engine.Filters) []any {
	var filters []any

	if f.CategoryID != "" {
		filters = append(filters, term("category_id", f.CategoryID))
	}
	if len(f.Brands) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{"brand": f.Brands},
		})
	}
	if f.Condition != "" {
		filters = append(filters, term("condition", f.Condition))
	}
	if f.Status != "" {
		filters = append(filters, term("status", f.Status))
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		bounds := map[string]any{}
		if f.MinPrice != nil {
			bounds["gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			bounds["lte"] = *f.MaxPrice
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{"effective_price": bounds},
		})
	}
	if len(f.Tags) > 0 {
		filters = append(filters, map[string]any{
			"terms": map[string]any{"tags": f.Tags},
		})
	}
	if f.InStockOnly {
		filters = append(filters, map[string]any{
			"range": map[string]any{"stock_quantity": map[string]any{"gt": 0}},
		})
	}
	if f.MinRating != nil {
		filters = append(filters, map[string]any{
			"range": map[string]any{"average_rating": map[string]any{"gte": *f.MinRating}},
		})
	}

	return filters
}

func term(field string, value any) map[string]any {
	return map[string]any{"term": map[string]any{field: value}}
}

// sortClause maps the logical sort keys onto Elasticsearch fields.
func sortClause(keys []engine.SortKey) []any {
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		field := k.Field
		switch field {
		case engine.FieldName:
			field = "name.keyword"
		case engine.FieldID:
			field = "id"
		}
		dir := "asc"
		if k.Desc {
			dir = "desc"
		}
		out = append(out, map[string]any{field: dir})
	}
	return out
}
