package api

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	catalog "github.com/vetrina/storefront/internal/domain/catalog"
)

// boolParam reads a query parameter that accepts "true" or "1".
func boolParam(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return v == "true" || v == "1"
}

// ListProducts handles GET /api/products. Supports ?featured=true and
// ?preview=true. A source outage surfaces as 502: serving an empty catalog
// would look like an empty shop.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	preview := boolParam(r, "preview")

	var (
		products []catalog.Product
		err      error
	)
	if boolParam(r, "featured") {
		products, err = h.resolver.FetchFeatured(r.Context(), preview)
	} else {
		products, err = h.resolver.FetchAll(r.Context(), preview)
	}
	if err != nil {
		zctx.From(r.Context()).Error("list products", zap.Error(err))
		respondError(w, http.StatusBadGateway, "catalog temporarily unavailable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"total":    len(products),
	})
}

// GetProduct handles GET /api/products/{key}. The key may be an ID or a slug;
// unresolvable keys are 404.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	preview := boolParam(r, "preview")

	p := h.resolver.ResolveOne(r.Context(), key, preview)
	if p == nil {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	respondJSON(w, http.StatusOK, p)
}
