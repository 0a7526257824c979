package medication

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardkit/wardkit/internal/domain/patient"
	"github.com/wardkit/wardkit/internal/platform/apperr"
	"github.com/wardkit/wardkit/internal/platform/store"
	"github.com/wardkit/wardkit/internal/schema"
)

func newTestService(t *testing.T) (*Service, int64) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "data.json"), schema.All(), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var patientID int64
	err = db.Update(func(tx *store.Tx) error {
		patientID, err = store.Create(tx, schema.Patients, &patient.Patient{Name: "Zhang San", Gender: patient.Male, Status: patient.Admitted})
		return err
	})
	if err != nil {
		t.Fatalf("seed patient: %v", err)
	}

	svc := NewService(db, zerolog.Nop(), 15*time.Minute)
	svc.SetClock(func() time.Time { return time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC) })
	return svc, patientID
}

func mustRecord(t *testing.T, svc *Service, patientID int64, freq Frequency, start time.Time, end *time.Time) int64 {
	t.Helper()
	id, err := svc.CreateRecord(context.Background(), &Record{
		PatientID:      patientID,
		MedicationName: "amoxicillin",
		Dosage:         "500mg",
		Frequency:      freq,
		Route:          Oral,
		StartDate:      start,
		EndDate:        end,
	})
	if err != nil {
		t.Fatalf("create record: %v", err)
	}
	return id
}

func TestCreateRecordValidation(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateRecord(ctx, &Record{PatientID: patientID, Frequency: BID}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("no name: err = %v, want validation", err)
	}
	if _, err := svc.CreateRecord(ctx, &Record{PatientID: patientID, MedicationName: "x", Frequency: "HOURLY"}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("bad frequency: err = %v, want validation", err)
	}
	if _, err := svc.CreateRecord(ctx, &Record{PatientID: 999, MedicationName: "x", Frequency: BID}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("unknown patient: err = %v, want not found", err)
	}
}

func TestCreateRemindersBulk(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	recID := mustRecord(t, svc, patientID, BID, start, &end)

	count, err := svc.CreateReminders(ctx, recID, 15*time.Minute)
	if err != nil {
		t.Fatalf("create reminders: %v", err)
	}
	if count != 4 {
		t.Fatalf("count = %d, want 4", count)
	}

	rems, err := svc.Reminders(ctx, patientID)
	if err != nil {
		t.Fatalf("reminders: %v", err)
	}
	if len(rems) != 4 {
		t.Fatalf("len = %d, want 4", len(rems))
	}
	if !rems[0].ReminderTime.Equal(time.Date(2024, 1, 1, 7, 45, 0, 0, time.UTC)) {
		t.Errorf("first = %v, want 07:45", rems[0].ReminderTime)
	}
	for _, r := range rems {
		if r.Status != ReminderPending {
			t.Errorf("reminder %d status = %s, want PENDING", r.ID, r.Status)
		}
		if r.MedicationName != "amoxicillin" {
			t.Errorf("reminder %d medicationName = %q", r.ID, r.MedicationName)
		}
	}
}

func TestCreateRemindersUnknownRecord(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.CreateReminders(context.Background(), 999, 0); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestTodayReminders(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()
	// clock is 2024-01-01; schedule spans the 1st and 2nd
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	recID := mustRecord(t, svc, patientID, Daily, start, &end)
	if _, err := svc.CreateReminders(ctx, recID, 0); err != nil {
		t.Fatal(err)
	}

	rems, err := svc.TodayReminders(ctx, patientID)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if len(rems) != 1 {
		t.Fatalf("len = %d, want 1 (only the 1st)", len(rems))
	}
	if rems[0].ReminderTime.Day() != 1 {
		t.Errorf("reminder on day %d, want 1", rems[0].ReminderTime.Day())
	}

	all, err := svc.TodayReminders(ctx, 0)
	if err != nil {
		t.Fatalf("today all: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("global today = %d, want 1", len(all))
	}
}

type recordingHook struct {
	missed []Reminder
}

func (h *recordingHook) MedicationMissed(r Reminder) { h.missed = append(h.missed, r) }

func TestUpdateReminderStatusMissedHook(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start
	recID := mustRecord(t, svc, patientID, Daily, start, &end)
	if _, err := svc.CreateReminders(ctx, recID, 0); err != nil {
		t.Fatal(err)
	}
	rems, _ := svc.Reminders(ctx, patientID)
	if len(rems) != 1 {
		t.Fatalf("len = %d, want 1", len(rems))
	}

	hook := &recordingHook{}
	svc.SetMissedHook(hook)

	if err := svc.UpdateReminderStatus(ctx, rems[0].ID, ReminderCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(hook.missed) != 0 {
		t.Errorf("hook fired on COMPLETED")
	}

	if err := svc.UpdateReminderStatus(ctx, rems[0].ID, ReminderMissed); err != nil {
		t.Fatalf("miss: %v", err)
	}
	if len(hook.missed) != 1 || hook.missed[0].ID != rems[0].ID {
		t.Errorf("hook calls = %+v, want one for reminder %d", hook.missed, rems[0].ID)
	}
}

func TestDiscontinueCancelsPendingReminders(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	recID := mustRecord(t, svc, patientID, BID, start, &end)
	if _, err := svc.CreateReminders(ctx, recID, 0); err != nil {
		t.Fatal(err)
	}

	rems, _ := svc.Reminders(ctx, patientID)
	if err := svc.UpdateReminderStatus(ctx, rems[0].ID, ReminderCompleted); err != nil {
		t.Fatal(err)
	}

	if err := svc.UpdateRecordStatus(ctx, recID, Discontinued); err != nil {
		t.Fatalf("discontinue: %v", err)
	}

	rems, _ = svc.Reminders(ctx, patientID)
	var cancelled, completed int
	for _, r := range rems {
		switch r.Status {
		case ReminderCancelled:
			cancelled++
		case ReminderCompleted:
			completed++
		}
	}
	if completed != 1 || cancelled != 3 {
		t.Errorf("completed/cancelled = %d/%d, want 1/3", completed, cancelled)
	}
}
