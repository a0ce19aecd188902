package handlers

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/diewo77/voyage-billing/internal/logging"
)

// CatalogCache is the part of the catalog cache the catalog owner may reset after
// editing packages.
type CatalogCache interface {
	Invalidate(id uint)
	InvalidateAll()
}

type CatalogHandler struct {
	Cache CatalogCache
	Log   logrus.FieldLogger
}

func NewCatalogHandler(cache CatalogCache, log logrus.FieldLogger) *CatalogHandler {
	return &CatalogHandler{Cache: cache, Log: log}
}

func (h *CatalogHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("DELETE /api/catalog/cache", h.Purge)
	mux.HandleFunc("DELETE /api/catalog/cache/packages/{id}", h.Evict)
}

func (h *CatalogHandler) Purge(w http.ResponseWriter, r *http.Request) {
	h.Cache.InvalidateAll()
	logging.FromContext(r.Context(), h.Log).Info("catalog cache purged")
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) Evict(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	h.Cache.Invalidate(id)
	logging.FromContext(r.Context(), h.Log).WithField("package_id", id).Info("catalog package evicted")
	w.WriteHeader(http.StatusNoContent)
}
