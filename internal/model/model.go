package model

import "time"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Active reports whether an appointment in this status occupies its
// [start, end) interval exclusively for the provider.
func (s AppointmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID               string
	LegacyRef        string
	ProviderID       string
	ServiceID        string
	PatientName      string
	PatientEmail     string
	PatientPhone     string
	CustomFields     map[string]string
	StartTime        time.Time
	EndTime          time.Time
	Status           AppointmentStatus
	RescheduleReason string
	ReminderSent     bool
	ReminderSentAt   *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BusinessHours is one weekday's open window for a provider.
// Weekday is 0 (Sunday) through 6 (Saturday); minutes are local time-of-day.
type BusinessHours struct {
	Weekday     int
	IsOpen      bool
	StartMinute int
	EndMinute   int
}

type Provider struct {
	ID        string
	LegacyRef string
	Name      string
	Timezone  string
	CreatedAt time.Time
}

// ProviderAvailability is the full availability record for one provider:
// at most one BusinessHours entry per weekday plus blocked calendar dates
// (YYYY-MM-DD strings, compared by exact match).
type ProviderAvailability struct {
	Provider     Provider
	Hours        [7]BusinessHours
	BlockedDates map[string]struct{}
}

func (a ProviderAvailability) IsBlocked(date string) bool {
	_, ok := a.BlockedDates[date]
	return ok
}

type Service struct {
	ID           string
	Name         string
	DurationMins int
	Price        string
	Description  string
	Active       bool
	CreatedAt    time.Time
}

// TimeSlot is a derived candidate interval; generated on demand and never
// persisted.
type TimeSlot struct {
	StartTime   time.Time
	EndTime     time.Time
	IsAvailable bool
}

// NotificationSettings is the single global settings record driving the
// reminder sweep look-ahead and channel toggles. Empty template fields fall
// back to built-in defaults.
type NotificationSettings struct {
	EmailEnabled     bool
	SMSEnabled       bool
	LookaheadHours   int
	EmailSubjectTmpl string
	EmailBodyTmpl    string
	SMSBodyTmpl      string
	UpdatedAt        time.Time
}

type NotificationLogEntry struct {
	ID            int64
	AppointmentID string
	Channel       string
	Recipient     string
	Status        string // sent | failed
	Error         string
	CreatedAt     time.Time
}

type AuditEntry struct {
	ID         int64
	Actor      string
	Action     string
	EntityType string
	EntityID   string
	Detail     map[string]any
	CreatedAt  time.Time
}
