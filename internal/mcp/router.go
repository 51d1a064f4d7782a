package mcp

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// loggingMiddleware logs request details and latency.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s - %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// NewRouter mounts the MCP endpoint at /mcp and the health check at /health.
func NewRouter(server *Server, health HealthChecker, opts *HTTPHandlerOptions) *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware)

	r.Handle("/mcp", NewHTTPHandler(server, opts))
	r.HandleFunc("/health", NewHealthHandler(health)).Methods(http.MethodGet)

	return r
}
