package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/careslot/careslot/internal/store"
)

type slotItem struct {
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	IsAvailable bool   `json:"isAvailable"`
}

// Slots handles GET /api/slots?providerId&date&duration.
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	providerID := strings.TrimSpace(r.URL.Query().Get("providerId"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	durationStr := strings.TrimSpace(r.URL.Query().Get("duration"))
	if providerID == "" || dateStr == "" || durationStr == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "providerId, date and duration are required")
		return
	}

	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "date must be YYYY-MM-DD")
		return
	}
	duration, err := strconv.Atoi(durationStr)
	if err != nil || duration <= 0 || duration > 8*60 {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "duration must be a positive number of minutes")
		return
	}

	slots, err := h.slots.SlotsForDay(r.Context(), providerID, date, duration)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "no availability record for provider")
			return
		}
		h.logger.Error("slot resolution failed", "provider_id", providerID, "err", err)
		writeStoreError(w)
		return
	}

	items := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		items = append(items, slotItem{
			StartTime:   s.StartTime.UTC().Format(time.RFC3339),
			EndTime:     s.EndTime.UTC().Format(time.RFC3339),
			IsAvailable: true,
		})
	}
	writeJSON(w, http.StatusOK, items)
}
