package handlers

import (
	"encoding/json"
	"net/http"
)

// Machine-readable error codes returned alongside HTTP status codes.
const (
	CodeInvalidInput    = "INVALID_INPUT"
	CodeNotFound        = "NOT_FOUND"
	CodeDoubleBooking   = "DOUBLE_BOOKING"
	CodeSlotUnavailable = "SLOT_UNAVAILABLE"
	CodeDatabaseError   = "DATABASE_ERROR"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Success: false, Code: code, Message: message})
}

// writeStoreError hides store internals behind a generic 500.
func writeStoreError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, CodeDatabaseError, "internal error")
}
