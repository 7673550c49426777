package handlers

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func validationHandler() *Handler {
	return New(nil, nil, nil, nil, nil, slog.New(slog.DiscardHandler))
}

func postJSON(t *testing.T, h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestCreateAppointment_Validation(t *testing.T) {
	h := validationHandler()
	cases := []struct {
		name string
		body string
	}{
		{"invalid json", "{"},
		{"missing provider", `{"patientName":"Asha","startTime":"2026-03-02T10:00:00Z"}`},
		{"missing patient", `{"providerId":"p1","startTime":"2026-03-02T10:00:00Z"}`},
		{"missing start", `{"providerId":"p1","patientName":"Asha"}`},
		{"bad start", `{"providerId":"p1","patientName":"Asha","startTime":"tomorrow"}`},
		{"bad end", `{"providerId":"p1","patientName":"Asha","startTime":"2026-03-02T10:00:00Z","endTime":"later"}`},
		{"no end and no service", `{"providerId":"p1","patientName":"Asha","startTime":"2026-03-02T10:00:00Z"}`},
		{"end before start", `{"providerId":"p1","patientName":"Asha","startTime":"2026-03-02T10:00:00Z","endTime":"2026-03-02T09:00:00Z"}`},
	}
	for _, c := range cases {
		rec := postJSON(t, h.CreateAppointment, "/api/appointments", c.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", c.name, rec.Code)
		}
	}
}

func TestReschedule_Validation(t *testing.T) {
	h := validationHandler()
	cases := []struct {
		name string
		body string
	}{
		{"invalid json", "{"},
		{"missing times", `{}`},
		{"bad start", `{"startTime":"x","endTime":"2026-03-02T11:00:00Z"}`},
		{"end before start", `{"startTime":"2026-03-02T11:00:00Z","endTime":"2026-03-02T10:00:00Z"}`},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPatch, "/api/admin/appointments/a1/reschedule", strings.NewReader(c.body))
		req.SetPathValue("id", "a1")
		rec := httptest.NewRecorder()
		h.Reschedule(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", c.name, rec.Code)
		}
	}
}

func TestPutBusinessHours_Validation(t *testing.T) {
	h := validationHandler()
	// Malformed JSON must be rejected before any store access.
	req := httptest.NewRequest(http.MethodPut, "/api/admin/providers/p1/hours", strings.NewReader("{"))
	req.SetPathValue("id", "p1")
	rec := httptest.NewRecorder()
	h.PutBusinessHours(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}
