package api

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/vetrina/storefront/internal/auth"
)

// requireRole guards a handler behind a JWT Bearer token carrying the role.
func (h *Handler) requireRole(role string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := h.verifier.ParseToken(token)
		if err != nil {
			zctx.From(r.Context()).Info("token rejected", zap.Error(err))
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if !auth.HasRole(claims.Roles, role) {
			respondError(w, http.StatusForbidden, "insufficient role")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RefreshCatalog handles POST /api/admin/catalog/refresh. It drops every
// cached catalog view and the slug ledger so the next request refetches.
func (h *Handler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	h.resolver.ClearCache()
	zctx.From(r.Context()).Info("catalog cache cleared")
	respondJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
