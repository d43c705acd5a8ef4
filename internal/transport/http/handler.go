package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"trendingreads/internal/domain"
	"trendingreads/internal/snapshot"
	"trendingreads/internal/usecase"
	"trendingreads/internal/worker"
)

type articleReader interface {
	Categories() []domain.Category
	Articles(ctx context.Context, category domain.Category, query string) (usecase.Listing, error)
	Refresh(ctx context.Context, category domain.Category) (usecase.Listing, error)
}

type snapshotLoader interface {
	Load(ctx context.Context) (snapshot.Document, error)
	Refresh(ctx context.Context) (snapshot.Document, error)
}

type cycleReporter interface {
	LastCycle() (worker.CycleStats, bool)
}

type Handler struct {
	log       *slog.Logger
	reader    articleReader
	snapshots snapshotLoader
	cycles    cycleReporter
	started   time.Time
}

// NewHandler создает обработчики API. snapshots и cycles могут быть nil.
func NewHandler(log *slog.Logger, reader articleReader, snapshots snapshotLoader, cycles cycleReporter) *Handler {
	return &Handler{
		log:       log,
		reader:    reader,
		snapshots: snapshots,
		cycles:    cycles,
		started:   time.Now(),
	}
}

type categoriesResponse struct {
	Categories []domain.Category `json:"categories"`
}

type articlesResponse struct {
	usecase.Listing
	Count int `json:"count"`
}

// getCategories - хендлер для эндпоинта GET /api/categories
func (h *Handler) getCategories(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, categoriesResponse{Categories: h.reader.Categories()})
}

// getArticles - хендлер для эндпоинта GET /api/articles?category=&q=
func (h *Handler) getArticles(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http/getArticles"
	log := h.requestLogger(r, op)
	category, ok := categoryParam(w, r, log)
	if !ok {
		return
	}
	listing, err := h.reader.Articles(r.Context(), category, r.URL.Query().Get("q"))
	if err != nil {
		h.respondWithReadError(w, log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, articlesResponse{Listing: nonNil(listing), Count: len(listing.Articles)})
}

// refreshArticles - хендлер для эндпоинта POST /api/articles/refresh?category=
func (h *Handler) refreshArticles(w http.ResponseWriter, r *http.Request) {
	const op = "transport.http/refreshArticles"
	log := h.requestLogger(r, op)
	category, ok := categoryParam(w, r, log)
	if !ok {
		return
	}
	listing, err := h.reader.Refresh(r.Context(), category)
	if err != nil {
		h.respondWithReadError(w, log, err)
		return
	}
	log.Info("Category refreshed on request", slog.String("category", string(category)), slog.Int("count", len(listing.Articles)))
	respondWithJSON(w, http.StatusOK, articlesResponse{Listing: nonNil(listing), Count: len(listing.Articles)})
}

// getSnapshot - хендлер для эндпоинта GET /api/snapshot
func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	h.serveSnapshot(w, r, "transport.http/getSnapshot", false)
}

// refreshSnapshot - хендлер для эндпоинта POST /api/snapshot/refresh
func (h *Handler) refreshSnapshot(w http.ResponseWriter, r *http.Request) {
	h.serveSnapshot(w, r, "transport.http/refreshSnapshot", true)
}

func (h *Handler) serveSnapshot(w http.ResponseWriter, r *http.Request, op string, refresh bool) {
	log := h.requestLogger(r, op)
	if h.snapshots == nil {
		respondWithError(w, http.StatusNotFound, "Snapshot is not configured")
		return
	}
	load := h.snapshots.Load
	if refresh {
		load = h.snapshots.Refresh
	}
	doc, err := load(r.Context())
	if err != nil {
		log.Warn("Snapshot unavailable", slog.Any("error", err))
		respondWithError(w, http.StatusServiceUnavailable, "Could not load articles")
		return
	}
	respondWithJSON(w, http.StatusOK, doc)
}

type healthResponse struct {
	Status    string             `json:"status"`
	Uptime    string             `json:"uptime"`
	LastCycle *worker.CycleStats `json:"lastCycle,omitempty"`
}

// healthCheck - хендлер для проверки состояния сервиса
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Uptime: time.Since(h.started).Round(time.Second).String()}
	if h.cycles != nil {
		if stats, ok := h.cycles.LastCycle(); ok {
			resp.LastCycle = &stats
		}
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) requestLogger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", getRequestID(r.Context())),
	)
}

func categoryParam(w http.ResponseWriter, r *http.Request, log *slog.Logger) (domain.Category, bool) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category")))
	if raw == "" {
		log.Warn("missing category parameter")
		respondWithError(w, http.StatusBadRequest, "Missing 'category' parameter")
		return "", false
	}
	return domain.Category(raw), true
}

func (h *Handler) respondWithReadError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, usecase.ErrUnknownCategory):
		log.Warn("unknown category", slog.Any("error", err))
		respondWithError(w, http.StatusNotFound, "Unknown category")
	case errors.Is(err, usecase.ErrAllSourcesFailed):
		log.Error("All sources failed", slog.Any("error", err))
		respondWithError(w, http.StatusBadGateway, "Could not load articles")
	case errors.Is(err, context.Canceled):
		log.Debug("request canceled")
	default:
		log.Error("Failed to get articles", slog.Any("error", err))
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

func nonNil(l usecase.Listing) usecase.Listing {
	if l.Articles == nil {
		l.Articles = []domain.Article{}
	}
	return l
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
