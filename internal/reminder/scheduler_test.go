package reminder

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/careslot/careslot/internal/model"
	"github.com/careslot/careslot/internal/notify"
	"github.com/careslot/careslot/internal/store"
)

type memAppointments struct {
	mu    sync.Mutex
	appts map[string]*model.Appointment
}

func newMemAppointments(appts ...model.Appointment) *memAppointments {
	m := &memAppointments{appts: map[string]*model.Appointment{}}
	for i := range appts {
		a := appts[i]
		m.appts[a.ID] = &a
	}
	return m
}

func (m *memAppointments) Get(_ context.Context, id string) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.appts[id]; ok {
		return *a, nil
	}
	return model.Appointment{}, errNotFound{}
}

func (m *memAppointments) ListUnreminded(_ context.Context, from, until time.Time) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Appointment
	for _, a := range m.appts {
		if a.ReminderSent || !a.Status.Active() {
			continue
		}
		if a.StartTime.Before(from) || a.StartTime.After(until) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

// ClaimReminder mirrors the conditional UPDATE: exactly one caller wins.
func (m *memAppointments) ClaimReminder(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.ReminderSent || !a.Status.Active() {
		return false, nil
	}
	a.ReminderSent = true
	return true, nil
}

type errNotFound struct{}

func (errNotFound) Error() string { return "no rows in result set" }

type stubSettings struct {
	cfg model.NotificationSettings
}

func (s stubSettings) Get(context.Context) (model.NotificationSettings, error) {
	return s.cfg, nil
}

type recordingDispatch struct {
	mu   sync.Mutex
	jobs []notify.Job
}

func (d *recordingDispatch) Enqueue(job notify.Job) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return true
}

func (d *recordingDispatch) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []store.OutboxEvent
}

func (e *recordingEvents) Append(_ context.Context, evt store.OutboxEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, evt)
	return nil
}

func testScheduler(appts Appointments, dispatch Dispatcher, events EventSink) *Scheduler {
	return NewScheduler(appts, stubSettings{cfg: model.NotificationSettings{LookaheadHours: 24}}, dispatch, events,
		slog.New(slog.DiscardHandler), Config{
			SweepEvery:      time.Minute,
			ReconcileWindow: 30 * 24 * time.Hour,
			ReminderLead:    24 * time.Hour,
		})
}

func TestSweep_SendsOnceAndNeverAgain(t *testing.T) {
	appts := newMemAppointments(model.Appointment{
		ID:        "a1",
		Status:    model.StatusConfirmed,
		StartTime: time.Now().UTC().Add(2 * time.Hour),
	})
	dispatch := &recordingDispatch{}
	events := &recordingEvents{}
	s := testScheduler(appts, dispatch, events)

	if err := s.sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if dispatch.count() != 1 {
		t.Fatalf("expected 1 reminder job, got %d", dispatch.count())
	}
	if dispatch.jobs[0].Kind != notify.KindReminder {
		t.Fatalf("expected reminder kind, got %q", dispatch.jobs[0].Kind)
	}
	if len(events.events) != 1 || events.events[0].EventType != "careslot.reminder.dispatched.v1" {
		t.Fatalf("expected one dispatched event, got %+v", events.events)
	}

	// A later sweep over the same window finds nothing left to claim.
	if err := s.sweep(context.Background()); err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if dispatch.count() != 1 {
		t.Fatalf("reminder fired twice: %d jobs", dispatch.count())
	}
}

func TestSweep_SkipsOutsideLookahead(t *testing.T) {
	appts := newMemAppointments(model.Appointment{
		ID:        "far",
		Status:    model.StatusPending,
		StartTime: time.Now().UTC().Add(72 * time.Hour),
	})
	dispatch := &recordingDispatch{}
	s := testScheduler(appts, dispatch, nil)

	if err := s.sweep(context.Background()); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if dispatch.count() != 0 {
		t.Fatalf("appointment beyond the look-ahead must not fire, got %d jobs", dispatch.count())
	}
}

func TestFireAppointment_InactiveNeverDispatches(t *testing.T) {
	appts := newMemAppointments(model.Appointment{
		ID:        "gone",
		Status:    model.StatusCancelled,
		StartTime: time.Now().UTC().Add(time.Hour),
	})
	dispatch := &recordingDispatch{}
	s := testScheduler(appts, dispatch, nil)

	appt, _ := appts.Get(context.Background(), "gone")
	s.fireAppointment(context.Background(), appt)
	if dispatch.count() != 0 {
		t.Fatalf("cancelled appointment must not be reminded, got %d jobs", dispatch.count())
	}
}

func TestTimerAndSweep_ClaimArbitratesToOneSend(t *testing.T) {
	appts := newMemAppointments(model.Appointment{
		ID:        "a1",
		Status:    model.StatusConfirmed,
		StartTime: time.Now().UTC().Add(2 * time.Hour),
	})
	dispatch := &recordingDispatch{}
	s := testScheduler(appts, dispatch, nil)

	// Both firing paths race over the same appointment; the claim lets
	// exactly one through.
	appt, _ := appts.Get(context.Background(), "a1")
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.fireAppointment(context.Background(), appt)
		}()
	}
	wg.Wait()
	if dispatch.count() != 1 {
		t.Fatalf("expected exactly one send under contention, got %d", dispatch.count())
	}
}

func TestReconcile_ArmsOnlyFutureReminderTimes(t *testing.T) {
	now := time.Now().UTC()
	appts := newMemAppointments(
		// Reminder time (start - 24h) still in the future: armed.
		model.Appointment{ID: "future", Status: model.StatusPending, StartTime: now.Add(48 * time.Hour)},
		// Already inside the lead window: sweep territory, not a timer.
		model.Appointment{ID: "soon", Status: model.StatusPending, StartTime: now.Add(2 * time.Hour)},
	)
	s := testScheduler(appts, &recordingDispatch{}, nil)

	if err := s.reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if got := s.ArmedCount(); got != 1 {
		t.Fatalf("expected 1 armed timer, got %d", got)
	}

	s.Cancel("future")
	if got := s.ArmedCount(); got != 0 {
		t.Fatalf("cancel must clear the timer, got %d armed", got)
	}
}

func TestRun_ShutdownDisarmsAllTimers(t *testing.T) {
	now := time.Now().UTC()
	appts := newMemAppointments(
		model.Appointment{ID: "a1", Status: model.StatusPending, StartTime: now.Add(48 * time.Hour)},
		model.Appointment{ID: "a2", Status: model.StatusConfirmed, StartTime: now.Add(72 * time.Hour)},
	)
	s := testScheduler(appts, &recordingDispatch{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// Run's startup reconciliation arms both timers.
	deadline := time.After(2 * time.Second)
	for s.ArmedCount() != 2 {
		select {
		case <-deadline:
			t.Fatalf("expected 2 armed timers, got %d", s.ArmedCount())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
	if got := s.ArmedCount(); got != 0 {
		t.Fatalf("shutdown must disarm every timer, %d still armed", got)
	}
}

func TestCancel_UnknownIDIsANoOp(t *testing.T) {
	s := testScheduler(newMemAppointments(), &recordingDispatch{}, nil)
	s.Cancel("never-armed")
	if got := s.ArmedCount(); got != 0 {
		t.Fatalf("expected no timers, got %d", got)
	}
}
