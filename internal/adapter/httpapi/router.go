package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/carhive/listing-service/internal/platform/logger"
)

// NewRouter wires the listing routes. The search route is registered before
// the {id} route; gorilla/mux matches in registration order, so the literal
// "search" can never be captured as a listing id.
func NewRouter(h *Handler, auth *Authenticator, log *logger.Logger) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(RequestLogger(log))
	api.Use(auth.Middleware)

	api.HandleFunc("/cars/search", h.SearchListings).Methods(http.MethodGet)
	api.HandleFunc("/cars", h.ListListings).Methods(http.MethodGet)
	api.HandleFunc("/cars", h.CreateListing).Methods(http.MethodPost)
	api.HandleFunc("/cars/{id}", h.GetListing).Methods(http.MethodGet)
	api.HandleFunc("/cars/{id}", h.UpdateListing).Methods(http.MethodPut)
	api.HandleFunc("/cars/{id}", h.DeleteListing).Methods(http.MethodDelete)

	return router
}
