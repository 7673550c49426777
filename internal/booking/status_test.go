package booking

import (
	"testing"

	"github.com/careslot/careslot/internal/model"
)

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		from, to model.AppointmentStatus
		ok       bool
	}{
		{model.StatusPending, model.StatusConfirmed, true},
		{model.StatusPending, model.StatusCompleted, true},
		{model.StatusPending, model.StatusCancelled, true},
		{model.StatusConfirmed, model.StatusCompleted, true},
		{model.StatusConfirmed, model.StatusCancelled, true},
		{model.StatusConfirmed, model.StatusPending, false},
		{model.StatusCompleted, model.StatusCancelled, false},
		{model.StatusCompleted, model.StatusPending, false},
		{model.StatusCancelled, model.StatusConfirmed, false},
		// same-status updates are harmless no-ops
		{model.StatusPending, model.StatusPending, true},
		{model.StatusCancelled, model.StatusCancelled, true},
	}
	for _, c := range cases {
		err := ValidateTransition(c.from, c.to)
		if c.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", c.from, c.to, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%s -> %s: expected rejection", c.from, c.to)
		}
	}
}

func TestValidateTransition_UnknownStatus(t *testing.T) {
	if err := ValidateTransition(model.StatusPending, model.AppointmentStatus("archived")); err == nil {
		t.Fatal("unknown target status must be rejected")
	}
}
