package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/models"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/notifications"
	"github.com/ShobhithBN/social-media-brand-monitoring-system/internal/repository"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Handler serves the read-only charting API plus the operator alert
// transitions (promote to investigating, manual resolve with notes). All
// rendering stays external; everything here is JSON.
type Handler struct {
	repo     repository.Repository
	notifier notifications.Notifier
	now      func() time.Time
}

// NewHandler creates the API handler.
func NewHandler(repo repository.Repository, notifier notifications.Notifier) *Handler {
	return &Handler{repo: repo, notifier: notifier, now: time.Now}
}

// Register mounts the API routes on the given router.
func (h *Handler) Register(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/brands/{brand}/window-stats", h.windowStats).Methods("GET")
	api.HandleFunc("/brands/{brand}/alerts", h.alertsByBrand).Methods("GET")
	api.HandleFunc("/brands/{brand}/competitive-metrics", h.competitiveMetrics).Methods("GET")
	api.HandleFunc("/alerts/{id}", h.patchAlert).Methods("PATCH")
	api.HandleFunc("/influencers", h.influencers).Methods("GET")
}

func (h *Handler) windowStats(w http.ResponseWriter, r *http.Request) {
	brand := mux.Vars(r)["brand"]
	limit := queryLimit(r, 48)

	stats, err := h.repo.WindowHistory(r.Context(), brand, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load window stats")
		logrus.Errorf("Window stats query failed for %s: %v", brand, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) alertsByBrand(w http.ResponseWriter, r *http.Request) {
	brand := mux.Vars(r)["brand"]
	limit := queryLimit(r, 50)

	alerts, err := h.repo.AlertsByBrand(r.Context(), brand, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load alerts")
		logrus.Errorf("Alert query failed for %s: %v", brand, err)
		return
	}

	writeJSON(w, http.StatusOK, alerts)
}

func (h *Handler) competitiveMetrics(w http.ResponseWriter, r *http.Request) {
	brand := mux.Vars(r)["brand"]

	metrics, err := h.repo.CompetitiveMetrics(r.Context(), brand)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load competitive metrics")
		logrus.Errorf("Competitive metrics query failed for %s: %v", brand, err)
		return
	}

	writeJSON(w, http.StatusOK, metrics)
}

func (h *Handler) influencers(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 100)

	influencers, err := h.repo.Influencers(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load influencers")
		logrus.Errorf("Influencer query failed: %v", err)
		return
	}

	writeJSON(w, http.StatusOK, influencers)
}

type alertPatch struct {
	Status models.AlertStatus `json:"status"`
	Notes  string             `json:"notes,omitempty"`
}

// patchAlert applies an operator status transition. Illegal transitions
// (resolved alerts are terminal, investigating cannot go back to new) are
// rejected; a resolved alert can only be "reopened" by the engine creating a
// new one.
func (h *Handler) patchAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var patch alertPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !patch.Status.Valid() {
		writeError(w, http.StatusBadRequest, "unknown status "+string(patch.Status))
		return
	}

	alert, err := h.repo.Alert(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load alert")
		logrus.Errorf("Alert load failed for %s: %v", id, err)
		return
	}
	if alert == nil {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}

	if !alert.Status.CanTransitionTo(patch.Status) {
		writeError(w, http.StatusConflict, "cannot transition from "+string(alert.Status)+" to "+string(patch.Status))
		return
	}

	resolved := false
	if patch.Status == models.AlertStatusResolved {
		alert.Resolve(h.now(), patch.Notes)
		resolved = true
	} else {
		alert.Status = patch.Status
	}

	if err := h.repo.UpdateAlert(r.Context(), alert); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update alert")
		logrus.Errorf("Alert update failed for %s: %v", id, err)
		return
	}

	if resolved && h.notifier != nil {
		if err := h.notifier.AlertResolved(alert); err != nil {
			logrus.Errorf("Failed to notify manual resolve for %s: %v", alert.Brand, err)
		}
	}

	writeJSON(w, http.StatusOK, alert)
}

func queryLimit(r *http.Request, fallback int) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
