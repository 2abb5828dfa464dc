package handlers

import (
	"net/http"

	"media-variants/internal/middleware"

	"github.com/gorilla/mux"
)

// NewRouter registers every route on a gorilla/mux router.
func NewRouter(h *Handlers, metricsEnabled bool) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
	if metricsEnabled {
		r.Handle("/metrics", h.MetricsHandler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/image/{path:.*}", h.GetImage).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/thumbnail/{path:.*}", h.GetThumbnail).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/video/{path:.*}", h.GetVideo).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/transcode-status/{path:.*}", h.GetTranscodeStatus).Methods(http.MethodGet)

	return r
}
