package store

import (
	"strings"
	"testing"
	"time"
)

func TestFilterCompile_Empty(t *testing.T) {
	where, args, err := Filter{}.compile(appointmentColumns, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if where != "TRUE" {
		t.Fatalf("empty filter must compile to TRUE, got %q", where)
	}
	if len(args) != 0 {
		t.Fatalf("empty filter must produce no args, got %d", len(args))
	}
}

func TestFilterCompile_Conjunction(t *testing.T) {
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	f := Filter{}.
		Where("providerId", OpEq, "prov-1").
		Where("status", OpEq, "pending").
		Where("startTime", OpGte, from)

	where, args, err := f.compile(appointmentColumns, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "provider_id = $1 AND status = $2 AND start_time >= $3"
	if where != want {
		t.Fatalf("expected %q, got %q", want, where)
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(args))
	}
	if args[0] != "prov-1" || args[1] != "pending" {
		t.Fatalf("args out of order: %v", args)
	}
}

func TestFilterCompile_PlaceholderOffset(t *testing.T) {
	f := Filter{}.Where("status", OpNeq, "cancelled")
	where, _, err := f.compile(appointmentColumns, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if where != "status <> $4" {
		t.Fatalf("expected placeholder numbering to start at $4, got %q", where)
	}
}

func TestFilterCompile_InUsesAny(t *testing.T) {
	f := Filter{}.Where("status", OpIn, []string{"pending", "confirmed"})
	where, args, err := f.compile(appointmentColumns, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if where != "status = ANY($1)" {
		t.Fatalf("expected ANY() rendering, got %q", where)
	}
	if len(args) != 1 {
		t.Fatalf("IN must bind the whole slice as one arg, got %d", len(args))
	}
}

func TestFilterCompile_UnknownFieldRejected(t *testing.T) {
	f := Filter{}.Where("patientName; DROP TABLE appointments", OpEq, "x")
	if _, _, err := f.compile(appointmentColumns, 1); err == nil {
		t.Fatal("unknown field must be rejected, not interpolated")
	} else if !strings.Contains(err.Error(), "unknown filter field") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFilterCompile_UnknownOperatorRejected(t *testing.T) {
	f := Filter{Cond{Field: "status", Op: Op("LIKE"), Value: "%x%"}}
	if _, _, err := f.compile(appointmentColumns, 1); err == nil {
		t.Fatal("unknown operator must be rejected")
	}
}

func TestIDColumn(t *testing.T) {
	if got := idColumn("6f1f7f2e-9c1b-4a7e-9f9e-0db8a42b55aa"); got != "id" {
		t.Fatalf("uuid must resolve to the id column, got %q", got)
	}
	if got := idColumn("64b0f7a1e4b0c93d2f8a1b2c"); got != "legacy_ref" {
		t.Fatalf("legacy hex ref must resolve to legacy_ref, got %q", got)
	}
}
