// Package medication manages medication records and their reminder
// schedules. Reminder generation is deterministic: the full schedule is
// derived from the record's frequency and validity window, then persisted
// as PENDING rows in one transaction.
package medication

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardkit/wardkit/internal/platform/apperr"
	"github.com/wardkit/wardkit/internal/platform/store"
	"github.com/wardkit/wardkit/internal/schema"
)

type Service struct {
	db           *store.Store
	logger       zerolog.Logger
	notifyBefore time.Duration
	missedHook   MissedHook
	now          func() time.Time
}

func NewService(db *store.Store, logger zerolog.Logger, notifyBefore time.Duration) *Service {
	return &Service{db: db, logger: logger, notifyBefore: notifyBefore, now: time.Now}
}

// SetClock replaces the service's time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetMissedHook installs the follow-up handler invoked after a reminder is
// marked MISSED.
func (s *Service) SetMissedHook(h MissedHook) { s.missedHook = h }

func (s *Service) CreateRecord(ctx context.Context, r *Record) (int64, error) {
	if r.MedicationName == "" {
		return 0, apperr.Validation(schema.MedicationRecords, "medicationName is required")
	}
	if _, ok := frequencyTimes[r.Frequency]; !ok && r.Frequency != Once && r.Frequency != PRN {
		return 0, apperr.Validation(schema.MedicationRecords, "unknown frequency %q", r.Frequency)
	}
	now := s.now().UTC()
	if r.Status == "" {
		r.Status = Active
	}
	if r.StartDate.IsZero() {
		r.StartDate = now
	}
	if r.AdministeredAt.IsZero() {
		r.AdministeredAt = now
	}
	r.CreatedAt, r.UpdatedAt = now, now

	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		var raw json.RawMessage
		ok, err := tx.Get(schema.Patients, r.PatientID, &raw)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(schema.Patients, r.PatientID)
		}
		id, err = store.Create(tx, schema.MedicationRecords, r)
		return err
	})
	return id, err
}

func (s *Service) Record(ctx context.Context, id int64) (*Record, error) {
	var r *Record
	err := s.db.View(func(tx *store.Tx) error {
		var err error
		r, err = getRecord(tx, id)
		return err
	})
	return r, err
}

// Records returns a patient's medication records, newest first.
func (s *Service) Records(ctx context.Context, patientID int64) ([]Record, error) {
	var recs []Record
	err := s.db.View(func(tx *store.Tx) error {
		return tx.ScanIndex(schema.MedicationRecords, "patientId", patientID, func(_ int64, raw json.RawMessage) (bool, error) {
			var r Record
			if err := json.Unmarshal(raw, &r); err != nil {
				return false, err
			}
			recs = append(recs, r)
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	return recs, nil
}

// UpdateRecordStatus moves a record to completed or discontinued.
// Discontinuing cancels the record's pending reminders in the same
// transaction.
func (s *Service) UpdateRecordStatus(ctx context.Context, id int64, status RecordStatus) error {
	now := s.now().UTC()
	return s.db.Update(func(tx *store.Tx) error {
		r, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		r.Status = status
		r.UpdatedAt = now
		if err := tx.Put(schema.MedicationRecords, id, r); err != nil {
			return err
		}
		if status != Discontinued {
			return nil
		}
		var pending []Reminder
		err = tx.ScanIndex(schema.MedicationReminders, "medicationRecordId", id, func(_ int64, raw json.RawMessage) (bool, error) {
			var rem Reminder
			if err := json.Unmarshal(raw, &rem); err != nil {
				return false, err
			}
			if rem.Status == ReminderPending {
				pending = append(pending, rem)
			}
			return true, nil
		})
		if err != nil {
			return err
		}
		for i := range pending {
			pending[i].Status = ReminderCancelled
			if err := tx.Put(schema.MedicationReminders, pending[i].ID, &pending[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateReminders generates the full reminder schedule for a record and
// persists it as PENDING rows in one transaction. A zero notifyBefore uses
// the service default. Returns the number of reminders created.
func (s *Service) CreateReminders(ctx context.Context, recordID int64, notifyBefore time.Duration) (int, error) {
	if notifyBefore <= 0 {
		notifyBefore = s.notifyBefore
	}
	now := s.now().UTC()
	var count int
	err := s.db.Update(func(tx *store.Tx) error {
		r, err := getRecord(tx, recordID)
		if err != nil {
			return err
		}
		var end time.Time
		if r.EndDate != nil {
			end = *r.EndDate
		}
		times := CalculateReminderTimes(r.Frequency, r.StartDate, end, notifyBefore)
		for _, ts := range times {
			rem := &Reminder{
				PatientID:          r.PatientID,
				MedicationRecordID: recordID,
				ReminderTime:       ts,
				Status:             ReminderPending,
				MedicationName:     r.MedicationName,
				CreatedAt:          now,
			}
			if _, err := store.Create(tx, schema.MedicationReminders, rem); err != nil {
				return err
			}
		}
		count = len(times)
		return nil
	})
	return count, err
}

// Reminders returns every reminder for a patient, in schedule order.
func (s *Service) Reminders(ctx context.Context, patientID int64) ([]Reminder, error) {
	var rems []Reminder
	err := s.db.View(func(tx *store.Tx) error {
		return tx.ScanIndex(schema.MedicationReminders, "patientId", patientID, func(_ int64, raw json.RawMessage) (bool, error) {
			var r Reminder
			if err := json.Unmarshal(raw, &r); err != nil {
				return false, err
			}
			rems = append(rems, r)
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rems, func(i, j int) bool { return rems[i].ReminderTime.Before(rems[j].ReminderTime) })
	return rems, nil
}

// TodayReminders returns one patient's reminders falling on the current
// calendar day. A zero patientID returns every patient's.
func (s *Service) TodayReminders(ctx context.Context, patientID int64) ([]Reminder, error) {
	day := s.now().UTC().Truncate(24 * time.Hour)
	next := day.AddDate(0, 0, 1)
	var rems []Reminder
	err := s.db.View(func(tx *store.Tx) error {
		return tx.ScanRange(schema.MedicationReminders, "reminderTime", day, next, func(_ int64, raw json.RawMessage) (bool, error) {
			var r Reminder
			if err := json.Unmarshal(raw, &r); err != nil {
				return false, err
			}
			if patientID == 0 || r.PatientID == patientID {
				rems = append(rems, r)
			}
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rems, func(i, j int) bool { return rems[i].ReminderTime.Before(rems[j].ReminderTime) })
	return rems, nil
}

// UpdateReminderStatus writes the reminder status directly. Marking a
// reminder MISSED invokes the missed hook after the write commits.
func (s *Service) UpdateReminderStatus(ctx context.Context, id int64, status ReminderStatus) error {
	var updated Reminder
	err := s.db.Update(func(tx *store.Tx) error {
		var r Reminder
		ok, err := tx.Get(schema.MedicationReminders, id, &r)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(schema.MedicationReminders, id)
		}
		r.Status = status
		if err := tx.Put(schema.MedicationReminders, id, &r); err != nil {
			return err
		}
		updated = r
		return nil
	})
	if err != nil {
		return err
	}
	if status == ReminderMissed && s.missedHook != nil {
		s.missedHook.MedicationMissed(updated)
	}
	return nil
}

func getRecord(tx *store.Tx, id int64) (*Record, error) {
	var r Record
	ok, err := tx.Get(schema.MedicationRecords, id, &r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound(schema.MedicationRecords, id)
	}
	return &r, nil
}
