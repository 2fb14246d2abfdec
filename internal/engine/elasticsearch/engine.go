// Package elasticsearch implements the engine interface on top of an
// Elasticsearch cluster. Generations are concrete indices; the live pointer is
// an index alias updated atomically, so a rebuild never serves a half-built
// index. Out-of-order writes are rejected by external_gte versioning.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/takezou621/sedori-platform-sub006/internal/domain"
	apperrors "github.com/takezou621/sedori-platform-sub006/pkg/errors"
)

// Engine is an Elasticsearch-backed implementation of the engine interface.
type Engine struct {
	client *elasticsearch.Client
	alias  string
	logger *slog.Logger
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an Elasticsearch engine serving the given live alias. If the
// alias does not exist yet, an initial generation is created and aliased.
func New(esURL, alias string, logger *slog.Logger) (*Engine, error) {
	if alias == "" {
		alias = DefaultAlias
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	e := &Engine{
		client: client,
		alias:  alias,
		logger: logger,
	}

	if err := e.ensureAlias(context.Background()); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure alias: %w", err)
	}

	return e, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// ensureAlias bootstraps the live alias with a first generation when missing.
func (e *Engine) ensureAlias(ctx context.Context) error {
	res, err := e.client.Indices.ExistsAlias(
		[]string{e.alias},
		e.client.Indices.ExistsAlias.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("check alias exists: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusOK {
		e.logger.Info("elasticsearch alias already exists", "alias", e.alias)
		return nil
	}

	gen, err := e.CreateGeneration(ctx)
	if err != nil {
		return err
	}
	if _, err := e.SwapAlias(ctx, gen); err != nil {
		return err
	}

	e.logger.Info("elasticsearch alias bootstrapped", "alias", e.alias, "generation", gen)
	return nil
}

// CreateGeneration creates a fresh index named after the alias plus a
// timestamp suffix and applies the product mapping.
func (e *Engine) CreateGeneration(ctx context.Context) (string, error) {
	name := fmt.Sprintf("%s_%d", e.alias, time.Now().UnixNano())

	res, err := e.client.Indices.Create(
		name,
		e.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("create generation: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return "", decodeError(res.Body, res.Status(), "create generation")
	}

	e.logger.Info("elasticsearch generation created", "generation", name)
	return name, nil
}

// SwapAlias atomically redirects the live alias to the given generation using
// a single update-aliases request, and returns the previously live generation.
func (e *Engine) SwapAlias(ctx context.Context, generation string) (string, error) {
	previous, err := e.liveGeneration(ctx)
	if err != nil {
		return "", err
	}

	actions := []map[string]any{}
	if previous != "" {
		actions = append(actions, map[string]any{
			"remove": map[string]any{"index": previous, "alias": e.alias},
		})
	}
	actions = append(actions, map[string]any{
		"add": map[string]any{"index": generation, "alias": e.alias, "is_write_index": true},
	})

	body, err := json.Marshal(map[string]any{"actions": actions})
	if err != nil {
		return "", fmt.Errorf("swap alias: marshal actions: %w", err)
	}

	res, err := e.client.Indices.UpdateAliases(
		bytes.NewReader(body),
		e.client.Indices.UpdateAliases.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("swap alias: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return "", decodeError(res.Body, res.Status(), "swap alias")
	}

	e.logger.Info("elasticsearch alias swapped",
		"alias", e.alias,
		"generation", generation,
		"previous", previous,
	)
	return previous, nil
}

// liveGeneration resolves the index currently behind the live alias.
func (e *Engine) liveGeneration(ctx context.Context) (string, error) {
	res, err := e.client.Indices.GetAlias(
		e.client.Indices.GetAlias.WithName(e.alias),
		e.client.Indices.GetAlias.WithContext(ctx),
	)
	if err != nil {
		return "", fmt.Errorf("resolve alias: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if res.IsError() {
		return "", decodeError(res.Body, res.Status(), "resolve alias")
	}

	var aliasMap map[string]any
	if err := json.NewDecoder(res.Body).Decode(&aliasMap); err != nil {
		return "", fmt.Errorf("resolve alias: decode response: %w", err)
	}
	for index := range aliasMap {
		return index, nil
	}
	return "", nil
}

// DropGeneration deletes a generation index. A 404 is treated as success.
func (e *Engine) DropGeneration(ctx context.Context, generation string) error {
	res, err := e.client.Indices.Delete(
		[]string{generation},
		e.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("drop generation: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return decodeError(res.Body, res.Status(), "drop generation")
	}

	e.logger.Info("elasticsearch generation dropped", "generation", generation)
	return nil
}

// UpsertIfNewer indexes the document through the live alias with external_gte
// versioning: the engine rejects the write with a conflict if the stored
// document carries a newer source version.
func (e *Engine) UpsertIfNewer(ctx context.Context, doc *domain.SearchDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: marshal document: %w", err)
	}

	res, err := e.client.Index(
		e.alias,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(doc.ID),
		e.client.Index.WithVersion(int(doc.SourceVersion)),
		e.client.Index.WithVersionType("external_gte"),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusConflict {
		return apperrors.ErrVersionConflict
	}
	if res.IsError() {
		return decodeError(res.Body, res.Status(), "elasticsearch upsert")
	}

	e.logger.Debug("indexed document", "id", doc.ID, "version", doc.SourceVersion)
	return nil
}

// esBulkResponse is the structure used to decode Elasticsearch bulk responses.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// BulkUpsert writes documents into the named generation (or the live alias
// when empty) with external_gte versioning. Version conflicts are skipped
// silently; other item failures are aggregated into the returned error.
func (e *Engine) BulkUpsert(ctx context.Context, generation string, docs []domain.SearchDocument) error {
	if len(docs) == 0 {
		return nil
	}

	target := generation
	if target == "" {
		target = e.alias
	}

	var buf bytes.Buffer
	for i := range docs {
		meta := map[string]any{
			"index": map[string]any{
				"_index":       target,
				"_id":          docs[i].ID,
				"version":      docs[i].SourceVersion,
				"version_type": "external_gte",
			},
		}
		metaLine, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("elasticsearch bulk: marshal meta: %w", err)
		}
		docLine, err := json.Marshal(&docs[i])
		if err != nil {
			return fmt.Errorf("elasticsearch bulk: marshal document: %w", err)
		}
		buf.Write(metaLine)
		buf.WriteByte('\n')
		buf.Write(docLine)
		buf.WriteByte('\n')
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return decodeError(res.Body, res.Status(), "elasticsearch bulk")
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk: decode response: %w", err)
	}
	if !bulkResp.Errors {
		return nil
	}

	var failed []string
	for _, item := range bulkResp.Items {
		if item.Index.Status >= 400 && item.Index.Status != http.StatusConflict {
			failed = append(failed, fmt.Sprintf("%s: %s", item.Index.ID, item.Index.Error.Reason))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("elasticsearch bulk: %d item(s) failed: %s", len(failed), strings.Join(failed, "; "))
	}
	return nil
}

// Delete removes the document through the live alias. A 404 is ignored.
func (e *Engine) Delete(ctx context.Context, id string) error {
	res, err := e.client.Delete(
		e.alias,
		id,
		e.client.Delete.WithRefresh("true"),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return decodeError(res.Body, res.Status(), "elasticsearch delete")
	}

	e.logger.Debug("deleted document", "id", id)
	return nil
}

// decodeError turns an Elasticsearch error body into a Go error.
func decodeError(body io.Reader, status, op string) error {
	var errResp esErrorResponse
	if err := json.NewDecoder(body).Decode(&errResp); err == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, status)
}
