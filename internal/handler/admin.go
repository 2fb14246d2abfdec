package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/takezou621/sedori-platform-sub006/internal/service"
	apperrors "github.com/takezou621/sedori-platform-sub006/pkg/errors"
	"github.com/takezou621/sedori-platform-sub006/pkg/httputil"
)

// AdminHandler serves the index management endpoints.
type AdminHandler struct {
	indexer   *service.Indexer
	reindexer *service.Reindexer
	logger    *slog.Logger
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(indexer *service.Indexer, reindexer *service.Reindexer, log *slog.Logger) *AdminHandler {
	if log == nil {
		log = slog.Default()
	}
	return &AdminHandler{indexer: indexer, reindexer: reindexer, logger: log}
}

// IndexProduct handles POST /api/v1/admin/index/{productID}. It re-reads the
// product and synchronizes its index document.
func (h *AdminHandler) IndexProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("productID is required"), h.logger)
		return
	}

	if err := h.indexer.IndexProduct(r.Context(), productID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"product_id": productID,
		"indexed":    true,
	}})
}

// RemoveProduct handles DELETE /api/v1/admin/index/{productID}.
func (h *AdminHandler) RemoveProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("productID is required"), h.logger)
		return
	}

	if err := h.indexer.RemoveFromIndex(r.Context(), productID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// IndexAll handles POST /api/v1/admin/index-all. It bulk-writes every active
// product into the live generation and reports the document count. Unlike a
// reindex it does not prune vanished products.
func (h *AdminHandler) IndexAll(w http.ResponseWriter, r *http.Request) {
	indexed, err := h.indexer.IndexAllProducts(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"indexed": indexed,
	}})
}

// Reindex handles POST /api/v1/admin/reindex. The rebuild runs in the
// background; the response carries the initial status snapshot. A second
// request while one is running gets a 409.
func (h *AdminHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	if err := h.reindexer.Trigger(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: h.reindexer.Status()})
}

// ReindexStatus handles GET /api/v1/admin/reindex/status.
func (h *AdminHandler) ReindexStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.reindexer.Status()})
}
