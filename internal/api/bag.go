package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vetrina/storefront/internal/bag"
)

// bagResponse is the JSON shape of every bag endpoint response.
type bagResponse struct {
	Lines     []bag.Line      `json:"lines"`
	Total     decimal.Decimal `json:"total"`
	ItemAdded bool            `json:"itemAdded"`
}

func (h *Handler) bagStore(w http.ResponseWriter, r *http.Request) *bag.Store {
	key, ok := sessionKey(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "a valid X-Session-ID header is required")
		return nil
	}
	return h.bags.Store(r.Context(), key)
}

func writeBag(w http.ResponseWriter, s *bag.Store) {
	lines := s.Lines()
	if lines == nil {
		lines = []bag.Line{}
	}
	respondJSON(w, http.StatusOK, bagResponse{
		Lines:     lines,
		Total:     s.Total(),
		ItemAdded: s.ItemAdded(),
	})
}

// GetBag handles GET /api/bag. Reading the bag acknowledges the item-added
// signal: the storefront shows its "added to bag" toast at most once.
func (h *Handler) GetBag(w http.ResponseWriter, r *http.Request) {
	s := h.bagStore(w, r)
	if s == nil {
		return
	}
	writeBag(w, s)
	s.ResetItemAdded()
}

// addItemRequest is the body of POST /api/bag/items.
type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"selectedColor"`
	Size      string `json:"selectedSize"`
}

// AddBagItem handles POST /api/bag/items. The product is resolved through the
// catalog so the stored line carries a full published snapshot.
func (h *Handler) AddBagItem(w http.ResponseWriter, r *http.Request) {
	s := h.bagStore(w, r)
	if s == nil {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" || req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "productId and a positive quantity are required")
		return
	}

	p := h.resolver.ResolveOne(r.Context(), req.ProductID, false)
	if p == nil {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}

	s.Add(r.Context(), *p, req.Quantity, req.Color, req.Size)
	writeBag(w, s)
}

// updateItemRequest is the body of PUT /api/bag/items.
type updateItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Color     string `json:"selectedColor"`
	Size      string `json:"selectedSize"`
}

// UpdateBagItem handles PUT /api/bag/items. The quantity is set absolutely;
// zero is kept as a zero-quantity line rather than removing it.
func (h *Handler) UpdateBagItem(w http.ResponseWriter, r *http.Request) {
	s := h.bagStore(w, r)
	if s == nil {
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" || req.Quantity < 0 {
		respondError(w, http.StatusBadRequest, "productId and a non-negative quantity are required")
		return
	}

	s.UpdateQuantity(r.Context(), req.ProductID, req.Color, req.Size, req.Quantity)
	writeBag(w, s)
}

// RemoveBagItem handles DELETE /api/bag/items. Selection comes from query
// parameters; omitting color or size widens the removal to every line of the
// product with any value for that field.
func (h *Handler) RemoveBagItem(w http.ResponseWriter, r *http.Request) {
	s := h.bagStore(w, r)
	if s == nil {
		return
	}

	productID := r.URL.Query().Get("productId")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "productId is required")
		return
	}

	s.Remove(r.Context(), productID, r.URL.Query().Get("color"), r.URL.Query().Get("size"))
	writeBag(w, s)
}

// ClearBag handles DELETE /api/bag.
func (h *Handler) ClearBag(w http.ResponseWriter, r *http.Request) {
	s := h.bagStore(w, r)
	if s == nil {
		return
	}

	s.Clear(r.Context())
	writeBag(w, s)
}
