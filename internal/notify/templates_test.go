package notify

import (
	"strings"
	"testing"
	"time"
)

func sampleData() TemplateData {
	return TemplateData{
		PatientName:  "Asha Rahman",
		ProviderName: "Dr. Chowdhury",
		ServiceName:  "Dental Checkup",
		StartTime:    time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC),
	}
}

func TestRender_Defaults(t *testing.T) {
	subject, body := Render("", "", defaultReminderSubject, defaultReminderBody, sampleData())
	if !strings.Contains(subject, "Monday, 2 Mar 2026 at 10:30") {
		t.Fatalf("subject missing formatted time: %q", subject)
	}
	if !strings.Contains(body, "Asha Rahman") || !strings.Contains(body, "Dr. Chowdhury") {
		t.Fatalf("body missing patient or provider: %q", body)
	}
	if !strings.Contains(body, "Dental Checkup") {
		t.Fatalf("body missing service name: %q", body)
	}
}

func TestRender_CustomTemplateWins(t *testing.T) {
	subject, body := Render(
		"See you soon, {{.PatientName}}",
		"{{.ServiceName}} at {{.StartTime}}",
		defaultReminderSubject, defaultReminderBody, sampleData())
	if subject != "See you soon, Asha Rahman" {
		t.Fatalf("custom subject not used: %q", subject)
	}
	if !strings.HasPrefix(body, "Dental Checkup at ") {
		t.Fatalf("custom body not used: %q", body)
	}
}

func TestRender_BrokenTemplateFallsBack(t *testing.T) {
	subject, body := Render(
		"{{.PatientName", // unparseable
		"{{end}}",
		defaultReminderSubject, defaultReminderBody, sampleData())
	if !strings.Contains(subject, "Reminder: your appointment") {
		t.Fatalf("broken subject template must fall back to the default: %q", subject)
	}
	if !strings.Contains(body, "This is a reminder") {
		t.Fatalf("broken body template must fall back to the default: %q", body)
	}
}

func TestRender_OptionalFieldsOmitted(t *testing.T) {
	data := TemplateData{PatientName: "Asha", StartTime: time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)}
	_, body := Render("", "", defaultReminderSubject, defaultReminderBody, data)
	if strings.Contains(body, " for ") || strings.Contains(body, " with ") {
		t.Fatalf("empty service/provider must not leave connective text: %q", body)
	}
}
