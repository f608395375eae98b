package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mantralabs/japa-api/internal/counting"
	"github.com/mantralabs/japa-api/internal/models"
	"github.com/mantralabs/japa-api/internal/progress"
	"github.com/mantralabs/japa-api/internal/request"
)

// JapaHandler handles tap, share, counter and streak requests
type JapaHandler struct {
	service *counting.Service
}

// NewJapaHandler creates a new japa handler
func NewJapaHandler(service *counting.Service) *JapaHandler {
	return &JapaHandler{service: service}
}

// RegisterRoutes registers japa routes on the given router.
// The router should already carry the /japa prefix.
func (h *JapaHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/tap", h.Tap).Methods("POST")
	r.HandleFunc("/share", h.Share).Methods("POST")
	r.HandleFunc("/counter", h.GetCounter).Methods("GET")
	r.HandleFunc("/streak", h.GetStreak).Methods("GET")
}

// CounterResponse represents the counter state with derived progress
type CounterResponse struct {
	Counter   models.Counter     `json:"counter"`
	Progress  progress.Progress  `json:"progress"`
	Milestone progress.Milestone `json:"milestone"`
}

// Tap registers one repetition for the authenticated user
func (h *JapaHandler) Tap(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserID(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	result, err := h.service.Tap(r.Context(), userID)
	if err != nil {
		if result.Reverted {
			// The caller still gets the last known-good snapshot.
			respondJSON(w, http.StatusConflict, result)
			return
		}
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to register tap")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Share registers a content share, the second streak activity signal
func (h *JapaHandler) Share(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserID(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	result, err := h.service.Share(r.Context(), userID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to register share")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetCounter returns the live counter with derived progress
func (h *JapaHandler) GetCounter(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserID(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	counter, err := h.service.Counter(r.Context(), userID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load counter")
		return
	}

	respondJSON(w, http.StatusOK, CounterResponse{
		Counter:   counter,
		Progress:  progress.Calculate(counter.Count, progress.DefaultGoal),
		Milestone: progress.Classify(counter.Count),
	})
}

// GetStreak returns the persisted streak record
func (h *JapaHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserID(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	rec, err := h.service.Streak(r.Context(), userID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load streak")
		return
	}

	respondJSON(w, http.StatusOK, rec)
}
