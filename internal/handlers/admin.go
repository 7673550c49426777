package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/careslot/careslot/internal/model"
	"github.com/careslot/careslot/internal/store"
)

// --- providers ---

type providerRequest struct {
	Name      string `json:"name"`
	Timezone  string `json:"timezone"`
	LegacyRef string `json:"legacyRef"`
}

type providerItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timezone  string `json:"timezone"`
	CreatedAt string `json:"createdAt"`
}

func toProviderItem(p model.Provider) providerItem {
	return providerItem{
		ID:        p.ID,
		Name:      p.Name,
		Timezone:  p.Timezone,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// CreateProvider handles POST /api/admin/providers. New providers start with
// a default Mon-Fri 09:00-17:00 schedule.
func (h *Handler) CreateProvider(w http.ResponseWriter, r *http.Request) {
	var req providerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "name is required")
		return
	}
	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "unknown timezone")
		return
	}

	id, err := h.gw.Providers.Create(r.Context(), req.Name, tz, strings.TrimSpace(req.LegacyRef))
	if err != nil {
		h.logger.Error("provider create failed", "err", err)
		writeStoreError(w)
		return
	}
	h.audit(r.Context(), r, "provider.create", "provider", id, map[string]any{"name": req.Name})
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "providerId": id})
}

func (h *Handler) ListProviders(w http.ResponseWriter, r *http.Request) {
	providers, err := h.gw.Providers.List(r.Context(), queryLimit(r))
	if err != nil {
		writeStoreError(w)
		return
	}
	items := make([]providerItem, 0, len(providers))
	for _, p := range providers {
		items = append(items, toProviderItem(p))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) GetProvider(w http.ResponseWriter, r *http.Request) {
	p, err := h.gw.Providers.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "provider not found")
			return
		}
		writeStoreError(w)
		return
	}
	writeJSON(w, http.StatusOK, toProviderItem(p))
}

func (h *Handler) DeleteProvider(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.gw.Providers.Delete(r.Context(), id); err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "provider not found")
			return
		}
		writeStoreError(w)
		return
	}
	h.audit(r.Context(), r, "provider.delete", "provider", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// --- provider availability ---

type businessHoursItem struct {
	Weekday int    `json:"weekday"`
	IsOpen  bool   `json:"isOpen"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
}

type availabilityResponse struct {
	ProviderID   string              `json:"providerId"`
	Timezone     string              `json:"timezone"`
	Hours        []businessHoursItem `json:"hours"`
	BlockedDates []string            `json:"blockedDates"`
}

func minutesToClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func clockToMinutes(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// GetProviderAvailability handles GET /api/admin/providers/{id}/availability.
func (h *Handler) GetProviderAvailability(w http.ResponseWriter, r *http.Request) {
	avail, err := h.gw.Providers.Availability(r.Context(), r.PathValue("id"))
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "provider not found")
			return
		}
		writeStoreError(w)
		return
	}

	resp := availabilityResponse{
		ProviderID:   avail.Provider.ID,
		Timezone:     avail.Provider.Timezone,
		Hours:        make([]businessHoursItem, 0, 7),
		BlockedDates: make([]string, 0, len(avail.BlockedDates)),
	}
	for wd, bh := range avail.Hours {
		item := businessHoursItem{Weekday: wd, IsOpen: bh.IsOpen}
		if bh.IsOpen {
			item.Start = minutesToClock(bh.StartMinute)
			item.End = minutesToClock(bh.EndMinute)
		}
		resp.Hours = append(resp.Hours, item)
	}
	for d := range avail.BlockedDates {
		resp.BlockedDates = append(resp.BlockedDates, d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// PutBusinessHours handles PUT /api/admin/providers/{id}/hours. The body is
// the full weekly schedule; weekdays not listed are left unchanged.
func (h *Handler) PutBusinessHours(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req []businessHoursItem
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid json body")
		return
	}

	provider, err := h.gw.Providers.Get(r.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "provider not found")
			return
		}
		writeStoreError(w)
		return
	}

	hours := make([]model.BusinessHours, 0, len(req))
	for _, item := range req {
		if item.Weekday < 0 || item.Weekday > 6 {
			writeError(w, http.StatusBadRequest, CodeInvalidInput, "weekday must be 0-6")
			return
		}
		bh := model.BusinessHours{Weekday: item.Weekday, IsOpen: item.IsOpen}
		if item.IsOpen {
			start, err := clockToMinutes(item.Start)
			if err != nil {
				writeError(w, http.StatusBadRequest, CodeInvalidInput, "start must be HH:mm")
				return
			}
			end, err := clockToMinutes(item.End)
			if err != nil {
				writeError(w, http.StatusBadRequest, CodeInvalidInput, "end must be HH:mm")
				return
			}
			if end <= start {
				writeError(w, http.StatusBadRequest, CodeInvalidInput, "end must be after start")
				return
			}
			bh.StartMinute, bh.EndMinute = start, end
		}
		hours = append(hours, bh)
	}

	for _, bh := range hours {
		if err := h.gw.Providers.UpsertBusinessHours(r.Context(), provider.ID, bh); err != nil {
			h.logger.Error("business hours upsert failed", "provider", provider.ID, "err", err)
			writeStoreError(w)
			return
		}
	}
	h.audit(r.Context(), r, "provider.hours", "provider", provider.ID, map[string]any{"weekdays": len(hours)})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type blockedDateRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// AddBlockedDate handles POST /api/admin/providers/{id}/blocked-dates.
func (h *Handler) AddBlockedDate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req blockedDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid json body")
		return
	}
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.Date), time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "date must be YYYY-MM-DD")
		return
	}

	provider, err := h.gw.Providers.Get(r.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "provider not found")
			return
		}
		writeStoreError(w)
		return
	}

	if err := h.gw.Providers.AddBlockedDate(r.Context(), provider.ID, day, strings.TrimSpace(req.Reason)); err != nil {
		writeStoreError(w)
		return
	}
	h.audit(r.Context(), r, "provider.block_date", "provider", provider.ID, map[string]any{"date": req.Date})
	writeJSON(w, http.StatusCreated, map[string]any{"success": true})
}

// RemoveBlockedDate handles DELETE /api/admin/providers/{id}/blocked-dates/{date}.
func (h *Handler) RemoveBlockedDate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	day, err := time.ParseInLocation("2006-01-02", r.PathValue("date"), time.UTC)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "date must be YYYY-MM-DD")
		return
	}

	provider, err := h.gw.Providers.Get(r.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "provider not found")
			return
		}
		writeStoreError(w)
		return
	}

	if err := h.gw.Providers.RemoveBlockedDate(r.Context(), provider.ID, day); err != nil {
		writeStoreError(w)
		return
	}
	h.audit(r.Context(), r, "provider.unblock_date", "provider", provider.ID, map[string]any{"date": r.PathValue("date")})
	w.WriteHeader(http.StatusNoContent)
}

// --- services ---

type serviceRequest struct {
	Name         string `json:"name"`
	DurationMins int    `json:"durationMins"`
	Price        string `json:"price"`
	Description  string `json:"description"`
	Active       *bool  `json:"active"`
}

type serviceItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DurationMins int    `json:"durationMins"`
	Price        string `json:"price,omitempty"`
	Description  string `json:"description,omitempty"`
	Active       bool   `json:"active"`
}

func toServiceItem(s model.Service) serviceItem {
	return serviceItem{
		ID:           s.ID,
		Name:         s.Name,
		DurationMins: s.DurationMins,
		Price:        s.Price,
		Description:  s.Description,
		Active:       s.Active,
	}
}

func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.DurationMins <= 0 {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "name and a positive durationMins are required")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	id, err := h.gw.Services.Create(r.Context(), model.Service{
		Name:         req.Name,
		DurationMins: req.DurationMins,
		Price:        strings.TrimSpace(req.Price),
		Description:  strings.TrimSpace(req.Description),
		Active:       active,
	})
	if err != nil {
		h.logger.Error("service create failed", "err", err)
		writeStoreError(w)
		return
	}
	h.audit(r.Context(), r, "service.create", "service", id, map[string]any{"name": req.Name})
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "serviceId": id})
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.gw.Services.List(r.Context(), queryLimit(r))
	if err != nil {
		writeStoreError(w)
		return
	}
	items := make([]serviceItem, 0, len(services))
	for _, s := range services {
		items = append(items, toServiceItem(s))
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.gw.Services.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "service not found")
			return
		}
		writeStoreError(w)
		return
	}
	writeJSON(w, http.StatusOK, toServiceItem(svc))
}

func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid json body")
		return
	}

	svc, err := h.gw.Services.Get(r.Context(), id)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "service not found")
			return
		}
		writeStoreError(w)
		return
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		svc.Name = name
	}
	if req.DurationMins > 0 {
		svc.DurationMins = req.DurationMins
	}
	if req.Price != "" {
		svc.Price = strings.TrimSpace(req.Price)
	}
	if req.Description != "" {
		svc.Description = strings.TrimSpace(req.Description)
	}
	if req.Active != nil {
		svc.Active = *req.Active
	}

	if err := h.gw.Services.Update(r.Context(), svc); err != nil {
		writeStoreError(w)
		return
	}
	h.audit(r.Context(), r, "service.update", "service", svc.ID, nil)
	writeJSON(w, http.StatusOK, toServiceItem(svc))
}

func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.gw.Services.Delete(r.Context(), id); err != nil {
		if store.IsNotFound(err) {
			writeError(w, http.StatusNotFound, CodeNotFound, "service not found")
			return
		}
		writeStoreError(w)
		return
	}
	h.audit(r.Context(), r, "service.delete", "service", id, nil)
	w.WriteHeader(http.StatusNoContent)
}

// --- notification settings ---

type settingsPayload struct {
	EmailEnabled     bool   `json:"emailEnabled"`
	SMSEnabled       bool   `json:"smsEnabled"`
	LookaheadHours   int    `json:"lookaheadHours"`
	EmailSubjectTmpl string `json:"emailSubjectTemplate,omitempty"`
	EmailBodyTmpl    string `json:"emailBodyTemplate,omitempty"`
	SMSBodyTmpl      string `json:"smsBodyTemplate,omitempty"`
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.gw.Settings.Get(r.Context())
	if err != nil {
		writeStoreError(w)
		return
	}
	writeJSON(w, http.StatusOK, settingsPayload{
		EmailEnabled:     cfg.EmailEnabled,
		SMSEnabled:       cfg.SMSEnabled,
		LookaheadHours:   cfg.LookaheadHours,
		EmailSubjectTmpl: cfg.EmailSubjectTmpl,
		EmailBodyTmpl:    cfg.EmailBodyTmpl,
		SMSBodyTmpl:      cfg.SMSBodyTmpl,
	})
}

func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "invalid json body")
		return
	}
	if req.LookaheadHours < 1 || req.LookaheadHours > 720 {
		writeError(w, http.StatusBadRequest, CodeInvalidInput, "lookaheadHours must be within 1-720")
		return
	}

	err := h.gw.Settings.Update(r.Context(), model.NotificationSettings{
		EmailEnabled:     req.EmailEnabled,
		SMSEnabled:       req.SMSEnabled,
		LookaheadHours:   req.LookaheadHours,
		EmailSubjectTmpl: req.EmailSubjectTmpl,
		EmailBodyTmpl:    req.EmailBodyTmpl,
		SMSBodyTmpl:      req.SMSBodyTmpl,
	})
	if err != nil {
		writeStoreError(w)
		return
	}
	h.audit(r.Context(), r, "settings.update", "settings", "1", map[string]any{
		"email_enabled":   req.EmailEnabled,
		"sms_enabled":     req.SMSEnabled,
		"lookahead_hours": req.LookaheadHours,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// --- logs ---

type notificationLogItem struct {
	ID            int64  `json:"id"`
	AppointmentID string `json:"appointmentId"`
	Channel       string `json:"channel"`
	Recipient     string `json:"recipient"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

func (h *Handler) ListNotificationLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.gw.Notifications.ListRecent(r.Context(), queryLimit(r))
	if err != nil {
		writeStoreError(w)
		return
	}
	items := make([]notificationLogItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, notificationLogItem{
			ID:            e.ID,
			AppointmentID: e.AppointmentID,
			Channel:       e.Channel,
			Recipient:     e.Recipient,
			Status:        e.Status,
			Error:         e.Error,
			CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type auditLogItem struct {
	ID         int64          `json:"id"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	EntityType string         `json:"entityType"`
	EntityID   string         `json:"entityId"`
	Detail     map[string]any `json:"detail,omitempty"`
	CreatedAt  string         `json:"createdAt"`
}

func (h *Handler) ListAuditLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.gw.Audit.ListRecent(r.Context(), queryLimit(r))
	if err != nil {
		writeStoreError(w)
		return
	}
	items := make([]auditLogItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, auditLogItem{
			ID:         e.ID,
			Actor:      e.Actor,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			Detail:     e.Detail,
			CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}
