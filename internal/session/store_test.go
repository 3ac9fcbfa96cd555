package session

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/openclinic/ehr-shell/internal/appointment"
	"github.com/openclinic/ehr-shell/internal/ehrapi"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(client, "tab-1")
}

func TestPendingReturnConsumeOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.SetPendingReturn(ctx, PendingReturn{
		Field:   ReturnFieldPatient,
		Patient: &ehrapi.Patient{ID: 55, FirstName: "New", LastName: "Patient"},
	})
	if err != nil {
		t.Fatal(err)
	}

	first, err := store.ConsumePendingReturn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first == nil || first.Field != ReturnFieldPatient || first.Patient.ID != 55 {
		t.Fatalf("unexpected first consume: %+v", first)
	}

	second, err := store.ConsumePendingReturn(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second != nil {
		t.Fatalf("expected nil on second consume, got %+v", second)
	}
}

func TestActiveAppointmentLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snap, err := store.ActiveAppointment(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap != nil {
		t.Fatalf("expected no snapshot initially, got %+v", snap)
	}

	model := appointment.NewModel()
	model.ProviderID = 7
	model.Date = "2024-06-01"
	model.SetStart("09:00")

	err = store.SaveActiveAppointment(ctx, ActiveAppointment{
		ProviderID:  7,
		StartISO:    "2024-06-01T09:00",
		Appointment: model.Clone(),
	})
	if err != nil {
		t.Fatal(err)
	}

	snap, err = store.ActiveAppointment(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap == nil || snap.ProviderID != 7 || snap.Appointment.TimeEnd != "09:15" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	// reading does not clear: the snapshot survives until the edit ends
	snap, err = store.ActiveAppointment(ctx)
	if err != nil || snap == nil {
		t.Fatalf("snapshot should survive reads: %v %v", snap, err)
	}

	if err := store.ClearActiveAppointment(ctx); err != nil {
		t.Fatal(err)
	}
	snap, err = store.ActiveAppointment(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap != nil {
		t.Fatalf("expected snapshot cleared, got %+v", snap)
	}
}

func TestPrefillConsume(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetPrefillProvider(ctx, Prefill{First: "Gre", Last: "Hou", InPracticeOnly: true}); err != nil {
		t.Fatal(err)
	}

	pf, err := store.ConsumePrefillProvider(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pf == nil || pf.First != "Gre" || !pf.InPracticeOnly {
		t.Fatalf("unexpected prefill: %+v", pf)
	}

	pf, err = store.ConsumePrefillProvider(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pf != nil {
		t.Fatalf("expected prefill consumed, got %+v", pf)
	}

	// patient prefill is an independent slot
	if err := store.SetPrefillPatient(ctx, Prefill{First: "Ann"}); err != nil {
		t.Fatal(err)
	}
	pp, err := store.ConsumePrefillPatient(ctx)
	if err != nil || pp == nil || pp.First != "Ann" {
		t.Fatalf("unexpected patient prefill: %+v %v", pp, err)
	}
}

func TestLastSectionDefault(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	section, err := store.LastSection(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if section != DefaultSection {
		t.Fatalf("expected default section, got %q", section)
	}

	if err := store.SetLastSection(ctx, "patient"); err != nil {
		t.Fatal(err)
	}
	section, err = store.LastSection(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if section != "patient" {
		t.Fatalf("expected patient, got %q", section)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	one := New(client, "tab-1")
	two := New(client, "tab-2")
	ctx := context.Background()

	if err := one.SetLastSection(ctx, "billing"); err != nil {
		t.Fatal(err)
	}
	section, err := two.LastSection(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if section != DefaultSection {
		t.Fatalf("sessions leaked state: %q", section)
	}
}

func TestClearAll(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.SetLastSection(ctx, "patient")
	store.SetPrefillPatient(ctx, Prefill{First: "A"})
	store.SetSelectedProvider(ctx, ehrapi.Provider{ID: 7})
	store.MarkReturnFromScheduler(ctx)

	if err := store.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}

	section, _ := store.LastSection(ctx)
	if section != DefaultSection {
		t.Fatalf("expected section reset, got %q", section)
	}
	if p, _ := store.SelectedProvider(ctx); p != nil {
		t.Fatalf("expected provider cleared, got %+v", p)
	}
	if flag, _ := store.ConsumeReturnFromScheduler(ctx); flag {
		t.Fatal("expected flag cleared")
	}
}
