package notify

import (
	"fmt"
	"strings"
	"text/template"
	"time"
)

// TemplateData is what notification templates may reference.
type TemplateData struct {
	PatientName  string
	ProviderName string
	ServiceName  string
	StartTime    time.Time
	Reason       string
}

func (d TemplateData) withFormattedTime() map[string]string {
	return map[string]string{
		"PatientName":  d.PatientName,
		"ProviderName": d.ProviderName,
		"ServiceName":  d.ServiceName,
		"StartTime":    d.StartTime.Format("Monday, 2 Jan 2006 at 15:04"),
		"Reason":       d.Reason,
	}
}

const (
	defaultReminderSubject = "Reminder: your appointment on {{.StartTime}}"
	defaultReminderBody    = "Hi {{.PatientName}},\n\nThis is a reminder of your upcoming appointment" +
		"{{if .ServiceName}} for {{.ServiceName}}{{end}}" +
		"{{if .ProviderName}} with {{.ProviderName}}{{end}} on {{.StartTime}}.\n\n" +
		"If you cannot make it, please contact the clinic to reschedule."
	defaultReminderSMS = "Reminder: appointment{{if .ProviderName}} with {{.ProviderName}}{{end}} on {{.StartTime}}."

	defaultConfirmationSubject = "Your appointment is booked"
	defaultConfirmationBody    = "Hi {{.PatientName}},\n\nYour appointment" +
		"{{if .ServiceName}} for {{.ServiceName}}{{end}}" +
		"{{if .ProviderName}} with {{.ProviderName}}{{end}} is booked for {{.StartTime}}."
	defaultConfirmationSMS = "Booked: appointment{{if .ProviderName}} with {{.ProviderName}}{{end}} on {{.StartTime}}."

	defaultCancellationSubject = "Your appointment was cancelled"
	defaultCancellationBody    = "Hi {{.PatientName}},\n\nYour appointment on {{.StartTime}} has been cancelled." +
		"{{if .Reason}}\nReason: {{.Reason}}{{end}}"
	defaultCancellationSMS = "Cancelled: appointment on {{.StartTime}}."
)

// Render executes a subject and body template against the data. Empty
// template strings take the given defaults; a template that fails to parse
// or execute also falls back to the default rather than blocking the send.
func Render(subjectTmpl, bodyTmpl, defaultSubject, defaultBody string, data TemplateData) (subject, body string) {
	subject = renderOne(subjectTmpl, defaultSubject, data)
	body = renderOne(bodyTmpl, defaultBody, data)
	return subject, body
}

func renderOne(tmpl, fallback string, data TemplateData) string {
	if strings.TrimSpace(tmpl) == "" {
		tmpl = fallback
	}
	out, err := execute(tmpl, data)
	if err != nil && tmpl != fallback {
		out, err = execute(fallback, data)
	}
	if err != nil {
		return fallback
	}
	return out
}

func execute(tmpl string, data TemplateData) (string, error) {
	t, err := template.New("msg").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data.withFormattedTime()); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return sb.String(), nil
}
