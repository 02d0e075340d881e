package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/vetrina/storefront/internal/newsletter"
)

// subscribeRequest is the body of POST /api/newsletter.
type subscribeRequest struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

// Subscribe handles POST /api/newsletter.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := h.newsletter.Subscribe(r.Context(), req.Email, req.Source)
	if err != nil {
		if errors.Is(err, newsletter.ErrInvalidEmail) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		zctx.From(r.Context()).Error("subscribe", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "could not subscribe")
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "subscribed"})
}
