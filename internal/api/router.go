package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()

	r.Use(corsMiddleware, loggingMiddleware(h.logger))

	r.HandleFunc("/jobs", h.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/jobs/{id}", h.handleJobStatus).Methods(http.MethodGet)
	r.HandleFunc("/kinds", h.handleKinds).Methods(http.MethodGet)
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Info("request received",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			next.ServeHTTP(w, r)
		})
	}
}
