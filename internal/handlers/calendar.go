package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/mantralabs/japa-api/internal/models"
	"github.com/mantralabs/japa-api/internal/progresslog"
	"github.com/mantralabs/japa-api/internal/request"
	"github.com/mantralabs/japa-api/internal/validation"
)

// CalendarHandler serves the merged monthly progress calendar
type CalendarHandler struct {
	log *progresslog.Store
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(log *progresslog.Store) *CalendarHandler {
	return &CalendarHandler{log: log}
}

// RegisterRoutes registers calendar routes on the given router.
// The router should already carry the /calendar prefix.
func (h *CalendarHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/range", h.GetRange).Methods("GET")
	r.HandleFunc("/{year}/{month}", h.GetMonth).Methods("GET")
	r.HandleFunc("/{year}/{month}/total", h.GetMonthTotal).Methods("GET")
}

// MonthResponse represents one month of merged progress
type MonthResponse struct {
	Year      int                                  `json:"year"`
	Month     int                                  `json:"month"`
	Days      map[string]models.DailyProgressEntry `json:"days"`
	TotalJaps int64                                `json:"total_japs"`
}

// GetMonth returns the merged calendar for one month. Remote data is
// authoritative for past dates; the live counter decides today.
func (h *CalendarHandler) GetMonth(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserID(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	year, month, ok := parseMonthVars(w, r)
	if !ok {
		return
	}

	days := h.log.GetMergedMonth(r.Context(), userID, year, month)

	var total int64
	for _, entry := range days {
		total += entry.JapCount
	}

	respondJSON(w, http.StatusOK, MonthResponse{
		Year:      year,
		Month:     int(month),
		Days:      days,
		TotalJaps: total,
	})
}

// MonthTotalResponse is the mala aggregate for one month
type MonthTotalResponse struct {
	Year       int   `json:"year"`
	Month      int   `json:"month"`
	TotalMalas int64 `json:"total_malas"`
}

// GetMonthTotal returns the completed malas summed over one merged month
func (h *CalendarHandler) GetMonthTotal(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserID(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	year, month, ok := parseMonthVars(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, MonthTotalResponse{
		Year:       year,
		Month:      int(month),
		TotalMalas: h.log.MonthTotal(r.Context(), userID, year, month),
	})
}

// RangeResponse lists the recorded entries between two dates inclusive
type RangeResponse struct {
	StartDate string                       `json:"start_date"`
	EndDate   string                       `json:"end_date"`
	Entries   []*models.DailyProgressEntry `json:"entries"`
}

// GetRange returns recorded progress entries between the start and end
// query dates inclusive. Unlike GetMonth it serves remote data only,
// without the live-counter override.
func (h *CalendarHandler) GetRange(w http.ResponseWriter, r *http.Request) {
	userID, ok := request.UserID(r)
	if !ok {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	start := r.URL.Query().Get("start")
	if err := validation.ValidateCalendarDate(start); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	end := r.URL.Query().Get("end")
	if err := validation.ValidateCalendarDate(end); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if end < start {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "end must not precede start")
		return
	}

	entries, err := h.log.GetRange(r.Context(), userID, start, end)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load progress entries")
		return
	}
	if entries == nil {
		entries = []*models.DailyProgressEntry{}
	}

	respondJSON(w, http.StatusOK, RangeResponse{
		StartDate: start,
		EndDate:   end,
		Entries:   entries,
	})
}

// parseMonthVars extracts and bounds-checks the {year}/{month} path
// variables, writing the error response itself on failure.
func parseMonthVars(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	vars := mux.Vars(r)

	year, err := strconv.Atoi(vars["year"])
	if err != nil || year < 2000 || year > 2200 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "year must be a number between 2000 and 2200")
		return 0, 0, false
	}

	month, err := strconv.Atoi(vars["month"])
	if err != nil || month < 1 || month > 12 {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "month must be a number between 1 and 12")
		return 0, 0, false
	}

	return year, time.Month(month), true
}
