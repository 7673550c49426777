package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/careslot/careslot/internal/booking"
	"github.com/careslot/careslot/internal/model"
	"github.com/careslot/careslot/internal/notify"
	"github.com/careslot/careslot/internal/store"
)

type createAppointmentRequest struct {
	ProviderID   string            `json:"providerId"`
	ServiceID    string            `json:"serviceId"`
	PatientName  string            `json:"patientName"`
	PatientEmail string            `json:"patientEmail"`
	PatientPhone string            `json:"patientPhone"`
	StartTime    string            `json:"startTime"`
	EndTime      string            `json:"endTime"`
	CustomFields map[string]string `json:"customFields"`
}

type createAppointmentResponse struct {
	Success       bool   `json:"success"`
	AppointmentID string `json:"appointmentId"`
	Message       string `json:"message"`
}

type appointmentItem struct {
	ID               string            `json:"id"`
	ProviderID       string            `json:"providerId"`
	ServiceID        string            `json:"serviceId,omitempty"`
	PatientName      string            `json:"patientName"`
	PatientEmail     string            `json:"patientEmail,omitempty"`
	PatientPhone     string            `json:"patientPhone,omitempty"`
	CustomFields     map[string]string `json:"customFields,omitempty"`
	StartTime        string            `json:"startTime"`
	EndTime          string            `json:"endTime"`
	Status           string            `json:"status"`
	RescheduleReason string            `json:"rescheduleReason,omitempty"`
	ReminderSent     bool              `json:"reminderSent"`
	CreatedAt        string            `json:"createdAt"`
}

func toAppointmentItem(a model.Appointment) appointmentItem {
	return appointmentItem{
		ID:               a.ID,
		ProviderID:       a.ProviderID,
		ServiceID:        a.ServiceID,
		PatientName:      a.PatientName,
		PatientEmail:     a.PatientEmail,
		PatientPhone:     a.PatientPhone,
		CustomFields:     a.CustomFields,
		StartTime:        a.StartTime.UTC().Format(time.RFC3339),
		EndTime:          a.EndTime.UTC().Format(time.RFC3339),
		Status:           string(a.Status),
		RescheduleReason: a.RescheduleReason,
		ReminderSent:     a.ReminderSent,
		CreatedAt:        a.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateAppointment handles POST /api/appointments.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid json body")
		return
	}
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.PatientName = strings.TrimSpace(req.PatientName)
	if req.ProviderID == "" || req.PatientName == "" || req.StartTime == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "providerId, patientName and startTime are required")
		return
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid startTime")
		return
	}

	ctx := r.Context()

	var svc model.Service
	if req.ServiceID != "" {
		svc, err = h.gw.Services.Get(ctx, req.ServiceID)
		if err != nil {
			if store.IsNotFound(err) {
				writeError(w, http.StatusNotFound, CodeNotFound, "service not found")
				return
			}
			writeStoreError(w)
			return
		}
	}

	var endTime time.Time
	switch {
	case req.EndTime != "":
		endTime, err = time.Parse(time.RFC3339, req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid endTime")
			return
		}
	case svc.DurationMins > 0:
		endTime = startTime.Add(time.Duration(svc.DurationMins) * time.Minute)
	default:
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "endTime or serviceId is required")
		return
	}
	if !endTime.After(startTime) {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "endTime must be after startTime")
		return
	}

	provider, err := h.gw.Providers.Get(ctx, req.ProviderID)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "provider not found")
			return
		}
		writeStoreError(w)
		return
	}

	if err := h.guard.CheckAndReserve(ctx, provider.ID, startTime, endTime, ""); err != nil {
		if errors.Is(err, booking.ErrConflict) {
			writeError(w, http.StatusConflict, CodeDoubleBooking, "this slot is no longer available, pick another")
			return
		}
		writeStoreError(w)
		return
	}

	appt := &model.Appointment{
		ProviderID:   provider.ID,
		ServiceID:    svc.ID,
		PatientName:  req.PatientName,
		PatientEmail: strings.TrimSpace(req.PatientEmail),
		PatientPhone: strings.TrimSpace(req.PatientPhone),
		CustomFields: req.CustomFields,
		StartTime:    startTime,
		EndTime:      endTime,
		Status:       model.StatusPending,
	}

	tx, err := h.gw.Begin(ctx)
	if err != nil {
		writeStoreError(w)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id, err := h.gw.Appointments.Create(ctx, tx, appt)
	if err != nil {
		// The exclusion constraint is the atomic arbiter: of two racing
		// requests for overlapping intervals exactly one insert survives.
		if store.IsConflict(err) {
			writeError(w, http.StatusConflict, CodeDoubleBooking, "this slot is no longer available, pick another")
			return
		}
		h.logger.Error("appointment insert failed", "err", err)
		writeStoreError(w)
		return
	}

	if err := h.appendAppointmentEvent(ctx, tx, "careslot.appointment.booked.v1", id, appt); err != nil {
		h.logger.Error("outbox write failed", "err", err)
		writeStoreError(w)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		writeStoreError(w)
		return
	}

	h.notifier.Enqueue(notify.Job{
		AppointmentID: id,
		Kind:          notify.KindConfirmation,
		EmailTo:       appt.PatientEmail,
		SMSTo:         appt.PatientPhone,
		Data: notify.TemplateData{
			PatientName:  appt.PatientName,
			ProviderName: provider.Name,
			ServiceName:  svc.Name,
			StartTime:    appt.StartTime,
		},
	})

	writeJSON(w, http.StatusCreated, createAppointmentResponse{
		Success:       true,
		AppointmentID: id,
		Message:       "appointment booked",
	})
}

// ListAppointments handles GET /api/appointments with optional providerId,
// status, from and to filters, compiled through the typed predicate builder.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter store.Filter
	if v := strings.TrimSpace(q.Get("providerId")); v != "" {
		filter = filter.Where("providerId", store.OpEq, v)
	}
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		if !model.AppointmentStatus(v).Valid() {
			writeError(w, http.StatusBadRequest, CodeInvalidInput, "unknown status")
			return
		}
		filter = filter.Where("status", store.OpEq, v)
	}
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid from")
			return
		}
		filter = filter.Where("startTime", store.OpGte, t)
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid to")
			return
		}
		filter = filter.Where("startTime", store.OpLt, t)
	}
	limit := 0
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	appts, err := h.gw.Appointments.List(r.Context(), filter, limit)
	if err != nil {
		h.logger.Error("appointment list failed", "err", err)
		writeStoreError(w)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentItem(a))
	}
	writeJSON(w, http.StatusOK, items)
}

// GetAppointment handles GET /api/appointments/{id}.
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.gw.Appointments.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "appointment not found")
			return
		}
		writeStoreError(w)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}

type rescheduleRequest struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Reason    string `json:"reason"`
}

// Reschedule handles PATCH /api/admin/appointments/{id}/reschedule. Only the
// interval (and optionally the reason) changes; status is left alone.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid json body")
		return
	}
	startTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid startTime")
		return
	}
	endTime, err := time.Parse(time.RFC3339, strings.TrimSpace(req.EndTime))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid endTime")
		return
	}
	if !endTime.After(startTime) {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "endTime must be after startTime")
		return
	}

	ctx := r.Context()
	appt, err := h.gw.Appointments.Get(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "appointment not found")
			return
		}
		writeStoreError(w)
		return
	}

	// Self-exclusion: the appointment's own prior interval never blocks the move.
	if err := h.guard.CheckAndReserve(ctx, appt.ProviderID, startTime, endTime, appt.ID); err != nil {
		if errors.Is(err, booking.ErrConflict) {
			writeError(w, http.StatusConflict, CodeSlotUnavailable, "this slot is no longer available, pick another")
			return
		}
		writeStoreError(w)
		return
	}

	tx, err := h.gw.Begin(ctx)
	if err != nil {
		writeStoreError(w)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.gw.Appointments.Reschedule(ctx, tx, appt.ID, startTime, endTime, strings.TrimSpace(req.Reason)); err != nil {
		if store.IsConflict(err) {
			writeError(w, http.StatusConflict, CodeSlotUnavailable, "this slot is no longer available, pick another")
			return
		}
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "appointment not found")
			return
		}
		writeStoreError(w)
		return
	}

	moved := appt
	moved.StartTime = startTime
	moved.EndTime = endTime
	if err := h.appendAppointmentEvent(ctx, tx, "careslot.appointment.rescheduled.v1", appt.ID, &moved); err != nil {
		writeStoreError(w)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		writeStoreError(w)
		return
	}

	// The old reminder timing is stale after a move; drop any armed timer
	// and let reconciliation-by-sweep pick the new time up.
	h.reminders.Cancel(appt.ID)

	h.audit(ctx, r, "appointment.reschedule", "appointment", appt.ID, map[string]any{
		"start_time": startTime.UTC().Format(time.RFC3339),
		"end_time":   endTime.UTC().Format(time.RFC3339),
		"reason":     req.Reason,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type statusUpdateRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// UpdateStatus handles PATCH /api/admin/appointments/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid json body")
		return
	}
	newStatus := model.AppointmentStatus(strings.TrimSpace(req.Status))

	ctx := r.Context()
	appt, err := h.gw.Appointments.Get(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "appointment not found")
			return
		}
		writeStoreError(w)
		return
	}

	if err := booking.ValidateTransition(appt.Status, newStatus); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
		return
	}

	tx, err := h.gw.Begin(ctx)
	if err != nil {
		writeStoreError(w)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.gw.Appointments.UpdateStatus(ctx, tx, appt.ID, newStatus); err != nil {
		writeStoreError(w)
		return
	}

	changed := appt
	changed.Status = newStatus
	if err := h.appendAppointmentEvent(ctx, tx, "careslot.appointment.status_changed.v1", appt.ID, &changed); err != nil {
		writeStoreError(w)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		writeStoreError(w)
		return
	}

	if newStatus == model.StatusCancelled {
		h.reminders.Cancel(appt.ID)
		h.notifier.Enqueue(notify.Job{
			AppointmentID: appt.ID,
			Kind:          notify.KindCancellation,
			EmailTo:       appt.PatientEmail,
			SMSTo:         appt.PatientPhone,
			Data: notify.TemplateData{
				PatientName: appt.PatientName,
				StartTime:   appt.StartTime,
				Reason:      strings.TrimSpace(req.Reason),
			},
		})
	}

	h.audit(ctx, r, "appointment.status", "appointment", appt.ID, map[string]any{
		"from": string(appt.Status),
		"to":   string(newStatus),
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": string(newStatus)})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /api/admin/appointments/{id}/cancel: a shorthand for
// the cancelled status transition, with the same timer and notification
// side effects.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req cancelRequest
	if r.Body != nil {
		// Body is optional; a missing reason is fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	ctx := r.Context()
	appt, err := h.gw.Appointments.Get(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "appointment not found")
			return
		}
		writeStoreError(w)
		return
	}

	if err := booking.ValidateTransition(appt.Status, model.StatusCancelled); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, err.Error())
		return
	}

	tx, err := h.gw.Begin(ctx)
	if err != nil {
		writeStoreError(w)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := h.gw.Appointments.UpdateStatus(ctx, tx, appt.ID, model.StatusCancelled); err != nil {
		writeStoreError(w)
		return
	}

	cancelled := appt
	cancelled.Status = model.StatusCancelled
	if err := h.appendAppointmentEvent(ctx, tx, "careslot.appointment.status_changed.v1", appt.ID, &cancelled); err != nil {
		writeStoreError(w)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		writeStoreError(w)
		return
	}

	h.reminders.Cancel(appt.ID)
	h.notifier.Enqueue(notify.Job{
		AppointmentID: appt.ID,
		Kind:          notify.KindCancellation,
		EmailTo:       appt.PatientEmail,
		SMSTo:         appt.PatientPhone,
		Data: notify.TemplateData{
			PatientName: appt.PatientName,
			StartTime:   appt.StartTime,
			Reason:      strings.TrimSpace(req.Reason),
		},
	})
	h.audit(ctx, r, "appointment.cancel", "appointment", appt.ID, map[string]any{"reason": req.Reason})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// DeleteAppointment handles DELETE /api/admin/appointments/{id}.
func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	appt, err := h.gw.Appointments.Get(r.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "appointment not found")
			return
		}
		writeStoreError(w)
		return
	}
	if err := h.gw.Appointments.Delete(r.Context(), appt.ID); err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "appointment not found")
			return
		}
		writeStoreError(w)
		return
	}
	h.reminders.Cancel(appt.ID)
	h.audit(r.Context(), r, "appointment.delete", "appointment", appt.ID, nil)
	w.WriteHeader(http.StatusNoContent)
}
