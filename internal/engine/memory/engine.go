// Package memory is an in-memory implementation of the engine interface.
// It backs development setups and the test suite, and doubles as the reference
// semantics for generation swaps, version checks, faceting, and ordering.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/takezou621/sedori-platform-sub006/internal/domain"
	"github.com/takezou621/sedori-platform-sub006/internal/engine"
	apperrors "github.com/takezou621/sedori-platform-sub006/pkg/errors"
)

// generation is one independently addressable index build.
type generation struct {
	docs map[string]domain.SearchDocument
}

// Engine is an in-memory search engine with named generations and an
// atomically swapped live pointer. Thread-safe via sync.RWMutex.
type Engine struct {
	mu          sync.RWMutex
	generations map[string]*generation
	live        string
	seq         int
}

// New creates an in-memory engine with a single empty live generation.
func New() *Engine {
	e := &Engine{
		generations: make(map[string]*generation),
	}
	e.live = e.newGenerationLocked()
	return e
}

func (e *Engine) newGenerationLocked() string {
	e.seq++
	name := fmt.Sprintf("gen-%04d", e.seq)
	e.generations[name] = &generation{docs: make(map[string]domain.SearchDocument)}
	return name
}

// UpsertIfNewer writes doc into the live generation unless the stored document
// carries a strictly newer SourceVersion. Equal versions overwrite, keeping
// repeated indexing of an unchanged product idempotent.
func (e *Engine) UpsertIfNewer(_ context.Context, doc *domain.SearchDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	gen := e.generations[e.live]
	if existing, ok := gen.docs[doc.ID]; ok && existing.SourceVersion > doc.SourceVersion {
		return apperrors.ErrVersionConflict
	}
	gen.docs[doc.ID] = *doc
	return nil
}

// BulkUpsert writes docs into the named generation; an empty name targets the
// live generation. Version conflicts on the live generation are skipped
// silently — the newer write has already won.
func (e *Engine) BulkUpsert(_ context.Context, generationName string, docs []domain.SearchDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	name := generationName
	if name == "" {
		name = e.live
	}
	gen, ok := e.generations[name]
	if !ok {
		return fmt.Errorf("memory: unknown generation %q", name)
	}

	checkVersions := name == e.live
	for i := range docs {
		d := docs[i]
		if checkVersions {
			if existing, ok := gen.docs[d.ID]; ok && existing.SourceVersion > d.SourceVersion {
				continue
			}
		}
		gen.docs[d.ID] = d
	}
	return nil
}

// Delete removes the document from the live generation. Absence is not an error.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.generations[e.live].docs, id)
	return nil
}

// CreateGeneration allocates a fresh, empty generation.
func (e *Engine) CreateGeneration(_ context.Context) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.newGenerationLocked(), nil
}

// SwapAlias atomically makes the given generation live and returns the
// previous one. Queries in flight see either the old or the new generation in
// full, never a mix.
func (e *Engine) SwapAlias(_ context.Context, generationName string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.generations[generationName]; !ok {
		return "", fmt.Errorf("memory: unknown generation %q", generationName)
	}
	previous := e.live
	e.live = generationName
	return previous, nil
}

// DropGeneration discards a generation. Dropping the live generation is an error.
func (e *Engine) DropGeneration(_ context.Context, generationName string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if generationName == e.live {
		return fmt.Errorf("memory: refusing to drop live generation %q", generationName)
	}
	delete(e.generations, generationName)
	return nil
}

// Ping always succeeds for the in-memory engine.
func (e *Engine) Ping(_ context.Context) error {
	return nil
}

// Query executes a compiled query against the live generation.
func (e *Engine) Query(_ context.Context, q *engine.CompiledQuery) (*engine.Result, error) {
	start := time.Now()

	e.mu.RLock()
	live := e.generations[e.live]
	snapshot := make([]domain.SearchDocument, 0, len(live.docs))
	for _, d := range live.docs {
		snapshot = append(snapshot, d)
	}
	e.mu.RUnlock()

	terms := tokenize(q.Text)

	type scored struct {
		doc   domain.SearchDocument
		score float64
	}
	var matched []scored
	for _, d := range snapshot {
		if !matchesText(&d, terms) || !matchesFilters(&d, &q.Filters) {
			continue
		}
		matched = append(matched, scored{doc: d, score: score(&d, terms)})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return less(&matched[i].doc, matched[i].score, &matched[j].doc, matched[j].score, q.Sort)
	})

	total := len(matched)
	from := q.From
	if from > total {
		from = total
	}
	end := from + q.Size
	if end > total {
		end = total
	}

	hits := make([]engine.Hit, 0, end-from)
	for _, m := range matched[from:end] {
		h := engine.Hit{Document: m.doc, Score: m.score}
		if q.Highlight && len(terms) > 0 {
			h.Highlights = highlight(&m.doc, terms)
		}
		hits = append(hits, h)
	}

	facets := make(map[string][]engine.FacetCount, len(q.Facets))
	for _, req := range q.Facets {
		facets[req.Name] = e.countFacet(snapshot, terms, &req)
	}

	return &engine.Result{
		Hits:   hits,
		Total:  total,
		Facets: facets,
		Took:   time.Since(start),
	}, nil
}

// countFacet counts documents per value of one dimension, applying the
// request's filter set (the active filters minus this dimension).
func (e *Engine) countFacet(snapshot []domain.SearchDocument, terms []string, req *engine.FacetRequest) []engine.FacetCount {
	counts := make(map[string]int)
	for _, d := range snapshot {
		if !matchesText(&d, terms) || !matchesFilters(&d, &req.Filters) {
			continue
		}
		switch req.Field {
		case "brand":
			if d.Brand != "" {
				counts[d.Brand]++
			}
		case "category_id":
			if d.CategoryID != "" {
				counts[d.CategoryID]++
			}
		case "condition":
			if d.Condition != "" {
				counts[d.Condition]++
			}
		case "tags":
			for _, t := range d.Tags {
				counts[t]++
			}
		}
	}

	out := make([]engine.FacetCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, engine.FacetCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Suggest returns indexed terms within edit distance 2 of the given term,
// closest first.
func (e *Engine) Suggest(_ context.Context, term string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil, nil
	}

	e.mu.RLock()
	live := e.generations[e.live]
	candidates := make(map[string]struct{})
	for _, d := range live.docs {
		for _, tok := range tokenize(d.Name) {
			candidates[tok] = struct{}{}
		}
		if d.Brand != "" {
			candidates[strings.ToLower(d.Brand)] = struct{}{}
		}
	}
	e.mu.RUnlock()

	type ranked struct {
		term string
		dist int
	}
	var near []ranked
	for c := range candidates {
		if c == term {
			continue
		}
		if d := editDistance(term, c); d <= 2 {
			near = append(near, ranked{term: c, dist: d})
		}
	}
	sort.Slice(near, func(i, j int) bool {
		if near[i].dist != near[j].dist {
			return near[i].dist < near[j].dist
		}
		return near[i].term < near[j].term
	})

	if len(near) > limit {
		near = near[:limit]
	}
	out := make([]string, len(near))
	for i, n := range near {
		out[i] = n.term
	}
	return out, nil
}
