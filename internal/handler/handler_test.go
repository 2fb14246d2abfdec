package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takezou621/sedori-platform-sub006/internal/catalog"
	"github.com/takezou621/sedori-platform-sub006/internal/domain"
	"github.com/takezou621/sedori-platform-sub006/internal/engine/memory"
	"github.com/takezou621/sedori-platform-sub006/internal/service"
	apperrors "github.com/takezou621/sedori-platform-sub006/pkg/errors"
	"github.com/takezou621/sedori-platform-sub006/pkg/health"
	"github.com/takezou621/sedori-platform-sub006/pkg/logger"
)

type memCatalog struct {
	mu         sync.Mutex
	products   map[string]domain.CatalogProduct
	categories map[string]string
}

func (m *memCatalog) GetActiveProductByID(_ context.Context, id string) (*domain.CatalogProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok || !p.IsActive() {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (m *memCatalog) ListActiveProducts(_ context.Context, cursor string, limit int) (*catalog.ProductPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, p := range m.products {
		if p.IsActive() && id > cursor {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	page := &catalog.ProductPage{}
	for _, id := range ids {
		page.Products = append(page.Products, m.products[id])
	}
	if len(ids) == limit {
		page.NextCursor = ids[len(ids)-1]
	}
	return page, nil
}

func (m *memCatalog) GetCategory(_ context.Context, id string) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.categories[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &domain.Category{ID: id, Name: name}, nil
}

func (m *memCatalog) SearchCategories(_ context.Context, term string, limit int) ([]domain.Category, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *memCatalog) {
	t.Helper()

	cat := &memCatalog{
		products:   make(map[string]domain.CatalogProduct),
		categories: map[string]string{"cat-audio": "Audio"},
	}
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for _, p := range []domain.CatalogProduct{
		{ID: "prod-1", Name: "Wireless Headphones", Brand: "Sony", CategoryID: "cat-audio",
			RetailPrice: 29800, Currency: "JPY", Condition: domain.ConditionNew,
			Status: domain.StatusActive, StockQuantity: 3, UpdatedAt: now},
		{ID: "prod-2", Name: "Portable Speaker", Brand: "Anker", CategoryID: "cat-audio",
			RetailPrice: 15000, Currency: "JPY", Condition: domain.ConditionNew,
			Status: domain.StatusActive, StockQuantity: 0, UpdatedAt: now},
	} {
		cat.products[p.ID] = p
	}

	eng := memory.New()
	log := logger.NewWithWriter("search-test", "error", testWriter{t})
	indexer := service.NewIndexer(cat, eng, log)
	reindexer := service.NewReindexer(cat, eng, log)
	searcher := service.NewSearcher(eng, cat, log)

	_, err := indexer.IndexAllProducts(context.Background())
	require.NoError(t, err)

	router := NewRouter(
		NewSearchHandler(searcher, log),
		NewAdminHandler(indexer, reindexer, log),
		health.NewHandler(),
		log,
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, cat
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

type searchEnvelope struct {
	Data struct {
		Hits []struct {
			Document domain.SearchDocument `json:"document"`
		} `json:"hits"`
		Pagination  domain.Pagination `json:"pagination"`
		Facets      []domain.Facet    `json:"facets"`
		Suggestions []string          `json:"suggestions"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func doGet(t *testing.T, url string, out any) int {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func doReq(t *testing.T, method, url string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()
	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}
	return res.StatusCode
}

func TestSearchEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var body searchEnvelope
	status := doGet(t, srv.URL+"/api/v1/search?q=headphones", &body)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Data.Hits, 1)
	assert.Equal(t, "Wireless Headphones", body.Data.Hits[0].Document.Name)
	assert.Equal(t, 1, body.Data.Pagination.Total)
	assert.NotEmpty(t, body.Data.Facets, "facets are on by default")
}

func TestSearchEndpointFilters(t *testing.T) {
	srv, _ := newTestServer(t)

	var body searchEnvelope
	status := doGet(t, srv.URL+"/api/v1/search?brands=Sony,Anker&in_stock=true&facets=false", &body)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Data.Hits, 1, "only the in-stock product should match")
	assert.Equal(t, "prod-1", body.Data.Hits[0].Document.ID)
	assert.Empty(t, body.Data.Facets)
}

func TestSearchEndpointInvalidSort(t *testing.T) {
	srv, _ := newTestServer(t)

	var body searchEnvelope
	status := doGet(t, srv.URL+"/api/v1/search?sort_by=cheapest", &body)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, body.Error)
	assert.Equal(t, "INVALID_INPUT", body.Error.Code)
}

func TestSearchEndpointInvalidPrice(t *testing.T) {
	srv, _ := newTestServer(t)

	status := doGet(t, srv.URL+"/api/v1/search?min_price=abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSuggestEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var body struct {
		Data struct {
			Suggestions []string `json:"suggestions"`
		} `json:"data"`
	}
	status := doGet(t, srv.URL+"/api/v1/search/suggestions?q=hedphones", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body.Data.Suggestions, "headphones")
}

func TestSuggestEndpointRequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t)

	status := doGet(t, srv.URL+"/api/v1/search/suggestions", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminIndexAndRemove(t *testing.T) {
	srv, cat := newTestServer(t)

	cat.mu.Lock()
	cat.products["prod-3"] = domain.CatalogProduct{
		ID: "prod-3", Name: "Studio Monitor", Brand: "Yamaha", CategoryID: "cat-audio",
		RetailPrice: 45000, Currency: "JPY", Status: domain.StatusActive,
		StockQuantity: 1, UpdatedAt: time.Now(),
	}
	cat.mu.Unlock()

	status := doReq(t, http.MethodPost, srv.URL+"/api/v1/admin/index/prod-3", nil)
	require.Equal(t, http.StatusOK, status)

	var body searchEnvelope
	status = doGet(t, srv.URL+"/api/v1/search?q=monitor", &body)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body.Data.Hits, 1)

	status = doReq(t, http.MethodDelete, srv.URL+"/api/v1/admin/index/prod-3", nil)
	require.Equal(t, http.StatusNoContent, status)

	body = searchEnvelope{}
	status = doGet(t, srv.URL+"/api/v1/search?q=monitor&facets=false", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body.Data.Hits)
}

func TestAdminIndexAll(t *testing.T) {
	srv, _ := newTestServer(t)

	var body struct {
		Data struct {
			Indexed int `json:"indexed"`
		} `json:"data"`
	}
	status := doReq(t, http.MethodPost, srv.URL+"/api/v1/admin/index-all", &body)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, body.Data.Indexed)
}

func TestAdminReindex(t *testing.T) {
	srv, _ := newTestServer(t)

	var body struct {
		Data service.ReindexStatus `json:"data"`
	}
	status := doReq(t, http.MethodPost, srv.URL+"/api/v1/admin/reindex", &body)
	require.Equal(t, http.StatusAccepted, status)

	require.Eventually(t, func() bool {
		var s struct {
			Data service.ReindexStatus `json:"data"`
		}
		doGet(t, srv.URL+"/api/v1/admin/reindex/status", &s)
		return s.Data.State == service.ReindexCompleted
	}, 3*time.Second, 20*time.Millisecond)
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	assert.Equal(t, http.StatusOK, doGet(t, srv.URL+"/health", nil))
	assert.Equal(t, http.StatusOK, doGet(t, srv.URL+"/ready", nil))
	assert.Equal(t, http.StatusOK, doGet(t, srv.URL+"/metrics", nil))
}
