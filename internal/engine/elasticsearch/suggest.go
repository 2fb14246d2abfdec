package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// esSuggestResponse is the structure used to decode suggestion queries.
type esSuggestResponse struct {
	Hits struct {
		Hits []struct {
			Source struct {
				Name string `json:"name"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Suggest returns near-miss keyword suggestions for the given term. It runs a
// fuzzy match against the autocomplete field and returns distinct product
// names, closest matches first by engine score.
func (e *Engine) Suggest(ctx context.Context, term string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}

	body := map[string]any{
		"query": map[string]any{
			"match": map[string]any{
				"name.autocomplete": map[string]any{
					"query":     term,
					"fuzziness": "AUTO",
				},
			},
		},
		"_source": []string{"name"},
		"size":    limit * 2,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.alias),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, decodeError(res.Body, res.Status(), "elasticsearch suggest")
	}

	var esResp esSuggestResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: decode response: %w", err)
	}

	seen := make(map[string]struct{}, len(esResp.Hits.Hits))
	suggestions := make([]string, 0, limit)
	for _, h := range esResp.Hits.Hits {
		name := h.Source.Name
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		suggestions = append(suggestions, name)
		if len(suggestions) == limit {
			break
		}
	}

	return suggestions, nil
}
