package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mantralabs/japa-api/internal/ads"
	"github.com/mantralabs/japa-api/internal/request"
	"github.com/mantralabs/japa-api/internal/validation"
)

// AdHandler answers ad admission queries and records impressions
type AdHandler struct {
	controller *ads.Controller
}

// NewAdHandler creates a new ad handler
func NewAdHandler(controller *ads.Controller) *AdHandler {
	return &AdHandler{controller: controller}
}

// RegisterRoutes registers ad routes on the given router.
// The router should already carry the /ads prefix.
func (h *AdHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/interstitial/check", h.CheckInterstitial).Methods("POST")
	r.HandleFunc("/interstitial/show", h.ShowInterstitial).Methods("POST")
	r.HandleFunc("/rewarded/check", h.CheckRewarded).Methods("POST")
	r.HandleFunc("/rewarded/show", h.ShowRewarded).Methods("POST")
}

// InterstitialRequest names the placement asking to show an ad
type InterstitialRequest struct {
	Origin      string `json:"origin" validate:"required,ad_origin"`
	PlacementID string `json:"placement_id" validate:"max=128"`
}

// RewardedRequest carries the rewarded placement identifier
type RewardedRequest struct {
	PlacementID string `json:"placement_id" validate:"max=128"`
}

// AdmissionResponse is the outcome of an admission query
type AdmissionResponse struct {
	Permitted bool `json:"permitted"`
}

// ShownResponse reports whether the provider displayed the ad
type ShownResponse struct {
	Shown bool `json:"shown"`
}

func decodeInterstitialRequest(w http.ResponseWriter, r *http.Request) (*InterstitialRequest, bool) {
	var req InterstitialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return nil, false
	}
	if err := validation.Validate.Struct(&req); err != nil {
		// Surface the precise origin complaint when that is what failed.
		if originErr := validation.ValidateAdOrigin(req.Origin); originErr != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", originErr.Error())
		} else {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		}
		return nil, false
	}
	return &req, true
}

// CheckInterstitial evaluates the frequency gates without recording
// an impression.
func (h *AdHandler) CheckInterstitial(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserID(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	req, ok := decodeInterstitialRequest(w, r)
	if !ok {
		return
	}

	permitted := h.controller.CanShow(r.Context(), userID, ads.Origin(req.Origin))
	respondJSON(w, http.StatusOK, AdmissionResponse{Permitted: permitted})
}

// ShowInterstitial runs the gates and, when permitted, asks the
// provider to display the ad and records the impression.
func (h *AdHandler) ShowInterstitial(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserID(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	req, ok := decodeInterstitialRequest(w, r)
	if !ok {
		return
	}

	shown := h.controller.ShowInterstitial(r.Context(), userID, ads.Origin(req.Origin), req.PlacementID)
	respondJSON(w, http.StatusOK, ShownResponse{Shown: shown})
}

// CheckRewarded evaluates the rewarded gate, which only applies the
// global gap and the session cap.
func (h *AdHandler) CheckRewarded(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserID(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	permitted := h.controller.CanShowRewarded(userID)
	respondJSON(w, http.StatusOK, AdmissionResponse{Permitted: permitted})
}

// ShowRewarded displays a rewarded ad when the gate permits
func (h *AdHandler) ShowRewarded(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserID(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req RewardedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid JSON body")
		return
	}
	if err := validation.Validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "placement_id too long")
		return
	}

	shown := h.controller.ShowRewarded(r.Context(), userID, req.PlacementID)
	respondJSON(w, http.StatusOK, ShownResponse{Shown: shown})
}
