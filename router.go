package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"optionchain/controllers"
	"optionchain/metrics"
	"optionchain/middleware"
)

type apiRoute struct {
	Path    string
	Method  string
	Handler http.HandlerFunc
}

func apiRoutes(h *controllers.Handler) []apiRoute {
	return []apiRoute{
		{Path: "/optionchain", Method: http.MethodGet, Handler: h.GetOptionChain},
		{Path: "/expiries", Method: http.MethodGet, Handler: h.GetExpiries},
		{Path: "/settings", Method: http.MethodGet, Handler: h.GetSettings},
		{Path: "/settings", Method: http.MethodPost, Handler: h.UpdateSettings},
		{Path: "/workers", Method: http.MethodGet, Handler: h.GetWorkers},
		{Path: "/workers/{id}", Method: http.MethodDelete, Handler: h.CancelWorker},
	}
}

func registerRoutes(h *controllers.Handler, hub *controllers.Hub, m *metrics.Registry) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", handler).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	for _, route := range apiRoutes(h) {
		api.HandleFunc(route.Path, route.Handler).Methods(route.Method)
	}

	r.HandleFunc("/ws/optionchain", hub.ServeWS)
	r.Handle("/metrics", m.Handler())

	return middleware.Zstd(r)
}
