// Package handlers exposes the worker's ops surface: liveness, readiness
// (queue lag), Prometheus metrics, and a read-only award listing for triage.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hooplab/achievements-worker/internal/models"
)

// QueueLagger reports how many items are visible and waiting.
type QueueLagger interface {
	QueueLag(ctx context.Context) (int64, error)
}

// AwardReader lists a player's recent awards.
type AwardReader interface {
	ListPlayerAwards(ctx context.Context, playerID string) ([]models.Award, error)
}

type Config struct {
	Queue  QueueLagger
	Awards AwardReader
	Logger *zap.Logger
}

type Handler struct {
	queue  QueueLagger
	awards AwardReader
	logger *zap.SugaredLogger
}

func New(cfg Config) *Handler {
	return &Handler{
		queue:  cfg.Queue,
		awards: cfg.Awards,
		logger: cfg.Logger.Sugar(),
	}
}

// Router builds the ops router.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/awards/{playerID}", h.GetPlayerAwards)
	return r
}

// Health is pure liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// Ready reports queue lag; a failing lag query means the store is
// unreachable and the worker is not ready.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	lag, err := h.queue.QueueLag(r.Context())
	if err != nil {
		h.logger.Errorw("readiness check failed", "error", err)
		h.jsonResponse(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unavailable",
			"time":   time.Now().UTC(),
		})
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"queueLag": lag,
		"time":     time.Now().UTC(),
	})
}

// GetPlayerAwards returns a player's recent awards.
func (h *Handler) GetPlayerAwards(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	awards, err := h.awards.ListPlayerAwards(r.Context(), playerID)
	if err != nil {
		h.logger.Errorw("failed to list player awards", "player_id", playerID, "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "Failed to list awards")
		return
	}
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"player_id": playerID,
		"awards":    awards,
	})
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}
