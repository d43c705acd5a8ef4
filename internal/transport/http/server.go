package http

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer создает HTTP-роутер API с middleware для request-id, логирования и CORS.
// gatherer задает реестр для /metrics; при nil эндпоинт не регистрируется.
func NewServer(log *slog.Logger, h *Handler, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/categories", h.getCategories)
	mux.HandleFunc("GET /api/articles", h.getArticles)
	mux.HandleFunc("POST /api/articles/refresh", h.refreshArticles)
	mux.HandleFunc("GET /api/snapshot", h.getSnapshot)
	mux.HandleFunc("POST /api/snapshot/refresh", h.refreshSnapshot)
	mux.HandleFunc("GET /api/health", h.healthCheck)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	var handler http.Handler = mux
	handler = loggingMiddleware(log)(handler)
	handler = requestIDMiddleware()(handler)
	handler = corsMiddleware()(handler)
	return handler
}
