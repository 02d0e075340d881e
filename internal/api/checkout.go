package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/vetrina/storefront/internal/checkout"
)

// placeOrderRequest is the body of POST /api/checkout.
type placeOrderRequest struct {
	Customer checkout.Customer `json:"customer"`
}

// placeOrderResponse is the success body of POST /api/checkout.
type placeOrderResponse struct {
	Order       *checkout.Order `json:"order"`
	WhatsAppURL string          `json:"whatsappUrl,omitempty"`
}

// PlaceOrder handles POST /api/checkout. The order is built from the session
// bag; on success the bag is cleared.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	s := h.bagStore(w, r)
	if s == nil {
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Customer.Email == "" {
		respondError(w, http.StatusBadRequest, "customer email is required")
		return
	}

	result, err := h.checkout.PlaceOrder(r.Context(), checkout.PlaceOrderRequest{
		Lines:    s.Lines(),
		Customer: req.Customer,
	})
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	s.Clear(r.Context())

	respondJSON(w, http.StatusCreated, placeOrderResponse{
		Order:       result.Order,
		WhatsAppURL: result.WhatsAppURL,
	})
}

// writeCheckoutError maps checkout domain errors to HTTP responses.
func (h *Handler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, checkout.ErrEmptyBag) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var iqErr *checkout.InvalidQuantityError
	if errors.As(err, &iqErr) {
		respondError(w, http.StatusUnprocessableEntity, iqErr.Error())
		return
	}

	var msErr *checkout.MissingSelectionError
	if errors.As(err, &msErr) {
		respondError(w, http.StatusUnprocessableEntity, msErr.Error())
		return
	}

	zctx.From(r.Context()).Error("place order", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "could not place order")
}
