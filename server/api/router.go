package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterMux binds the introspection routes. A nil gatherer leaves
// /metrics unregistered.
func (h *Handler) RegisterMux(r *mux.Router, gatherer prometheus.Gatherer) {
	r.HandleFunc(routeHealth, h.handleHealth).Methods(http.MethodGet, http.MethodHead).Name(RouteNameHealth)
	r.HandleFunc(routeCollections, h.handleCollections).Methods(http.MethodGet).Name(RouteNameCollections)
	r.HandleFunc(routeCollection, h.handleCollection).Methods(http.MethodGet).Name(RouteNameCollection)
	r.HandleFunc(routeProtocols, h.handleProtocols).Methods(http.MethodGet).Name(RouteNameProtocols)
	r.HandleFunc(routeProtocol, h.handleProtocol).Methods(http.MethodGet).Name(RouteNameProtocol)
	r.HandleFunc(routeInterface, h.handleInterface).Methods(http.MethodGet).Name(RouteNameInterface)
	if gatherer != nil {
		r.Handle(routeMetrics, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).
			Methods(http.MethodGet).
			Name(RouteNameMetrics)
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, "not_found", "no such route", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", http.StatusText(http.StatusMethodNotAllowed), nil)
	})
}
