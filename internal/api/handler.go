// Package api exposes the storefront over HTTP.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vetrina/storefront/internal/auth"
	"github.com/vetrina/storefront/internal/bag"
	"github.com/vetrina/storefront/internal/catalog"
	"github.com/vetrina/storefront/internal/checkout"
	"github.com/vetrina/storefront/internal/newsletter"
)

// Handler wires the domain services to HTTP routes.
type Handler struct {
	resolver   *catalog.Resolver
	bags       *bag.Manager
	checkout   *checkout.Service
	newsletter *newsletter.Service
	verifier   *auth.Verifier
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	resolver *catalog.Resolver,
	bags *bag.Manager,
	checkoutSvc *checkout.Service,
	newsletterSvc *newsletter.Service,
	verifier *auth.Verifier,
) *Handler {
	return &Handler{
		resolver:   resolver,
		bags:       bags,
		checkout:   checkoutSvc,
		newsletter: newsletterSvc,
		verifier:   verifier,
	}
}

// Router builds the API route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{key}", h.GetProduct).Methods(http.MethodGet)

	api.HandleFunc("/bag", h.GetBag).Methods(http.MethodGet)
	api.HandleFunc("/bag", h.ClearBag).Methods(http.MethodDelete)
	api.HandleFunc("/bag/items", h.AddBagItem).Methods(http.MethodPost)
	api.HandleFunc("/bag/items", h.UpdateBagItem).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/bag/items", h.RemoveBagItem).Methods(http.MethodDelete)

	api.HandleFunc("/checkout", h.PlaceOrder).Methods(http.MethodPost)
	api.HandleFunc("/newsletter", h.Subscribe).Methods(http.MethodPost)

	api.Handle("/admin/catalog/refresh",
		h.requireRole("admin", http.HandlerFunc(h.RefreshCatalog)),
	).Methods(http.MethodPost)

	return r
}

// maxSessionKeyLen bounds client-supplied session keys so they stay usable
// as storage identifiers.
const maxSessionKeyLen = 128

// sessionKey extracts the bag session identifier from the request. Keys end
// up as storage identifiers, file names under the file backend included, so
// only letters, digits, hyphen and underscore are accepted.
func sessionKey(r *http.Request) (string, bool) {
	key := r.Header.Get("X-Session-ID")
	if key == "" || len(key) > maxSessionKeyLen {
		return "", false
	}
	for i := 0; i < len(key); i++ {
		switch c := key[i]; {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return "", false
		}
	}
	return key, true
}
