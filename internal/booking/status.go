package booking

import (
	"fmt"

	"github.com/careslot/careslot/internal/model"
)

// ValidateTransition enforces the appointment status state machine:
// pending -> confirmed, and pending|confirmed -> completed|cancelled.
// Completed and cancelled are terminal; there is no auto-expiry out of
// pending. All transitions are explicit staff-initiated status updates.
func ValidateTransition(from, to model.AppointmentStatus) error {
	if !to.Valid() {
		return fmt.Errorf("unknown status %q", to)
	}
	if from == to {
		return nil
	}
	switch from {
	case model.StatusPending:
		if to == model.StatusConfirmed || to == model.StatusCompleted || to == model.StatusCancelled {
			return nil
		}
	case model.StatusConfirmed:
		if to == model.StatusCompleted || to == model.StatusCancelled {
			return nil
		}
	}
	return fmt.Errorf("cannot change status from %q to %q", from, to)
}
