package server

import (
	"net/http"

	"github.com/woozymasta/gpsmarker/internal/metrics"
)

// Routes registers the receiver handlers and wraps them in the request logger.
func (s *ServerContext) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(collectionsRoute, s.HandleCollections)
	mux.HandleFunc(collectionsRoute+"/", s.HandleCollectionFile)
	mux.HandleFunc("/healthz", s.HandleHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/", s.HandleIndex)

	return RequestLogger(mux)
}
