package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"partsync/internal/database"
)

// Store is the read-only database surface the API exposes.
type Store interface {
	CountByStatus(ctx context.Context) (map[database.SupplierStatus]int, error)
	GetSupplierPart(ctx context.Context, offerID string) (*database.SupplierPart, error)
	FindByPartCode(ctx context.Context, partCode string) ([]*database.SupplierPart, error)
	LastRun(ctx context.Context, kind string) (*database.SyncRun, error)
}

type Handlers struct {
	store  Store
	logger *slog.Logger
}

func NewHandlers(store Store, logger *slog.Logger) *Handlers {
	return &Handlers{
		store:  store,
		logger: logger.With("component", "api"),
	}
}

// Router assembles the HTTP surface: a health probe and read-only inspection
// endpoints over the mirrored supplier state.
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://localhost:*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", h.Stats)
		r.Get("/parts/{offerID}", h.GetPart)
		r.Get("/parts", h.FindParts)
		r.Get("/runs/{kind}/last", h.LastRun)
	})

	return r
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountByStatus(r.Context())
	if err != nil {
		h.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	health := map[string]interface{}{
		"status": "ok",
		"parts":  counts,
	}
	if counts[database.SupplierStatusFailed] > 100 {
		health["status"] = "warning"
		health["message"] = "high number of failed supplier parts"
	}
	h.respondJSON(w, http.StatusOK, health)
}

// StatsResponse summarizes the supplier mirror and the last sweep.
type StatsResponse struct {
	Parts   map[database.SupplierStatus]int `json:"parts"`
	LastRun *database.SyncRun               `json:"last_run,omitempty"`
}

func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountByStatus(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	run, err := h.store.LastRun(r.Context(), "supplier")
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, StatsResponse{Parts: counts, LastRun: run})
}

func (h *Handlers) GetPart(w http.ResponseWriter, r *http.Request) {
	offerID := chi.URLParam(r, "offerID")

	part, err := h.store.GetSupplierPart(r.Context(), offerID)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if part == nil {
		h.respondError(w, http.StatusNotFound, "unknown offer")
		return
	}
	h.respondJSON(w, http.StatusOK, part)
}

func (h *Handlers) FindParts(w http.ResponseWriter, r *http.Request) {
	pcode := r.URL.Query().Get("pcode")
	if pcode == "" {
		h.respondError(w, http.StatusBadRequest, "pcode query parameter is required")
		return
	}

	parts, err := h.store.FindByPartCode(r.Context(), pcode)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"pcode": pcode,
		"parts": parts,
	})
}

func (h *Handlers) LastRun(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	run, err := h.store.LastRun(r.Context(), kind)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		h.respondError(w, http.StatusNotFound, "no runs of this kind")
		return
	}
	h.respondJSON(w, http.StatusOK, run)
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
