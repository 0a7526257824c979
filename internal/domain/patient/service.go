// Package patient manages patients and their clinical records: medical
// records, vital signs, and nursing records. Bed occupancy is owned by the
// ward package; this package never writes BedID or RoomID.
package patient

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardkit/wardkit/internal/platform/apperr"
	"github.com/wardkit/wardkit/internal/platform/store"
	"github.com/wardkit/wardkit/internal/schema"
)

type Service struct {
	db     *store.Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(db *store.Store, logger zerolog.Logger) *Service {
	return &Service{db: db, logger: logger, now: time.Now}
}

// SetClock replaces the service's time source. Intended for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) Create(ctx context.Context, p *Patient) (int64, error) {
	if p.Name == "" {
		return 0, apperr.Validation(schema.Patients, "name is required")
	}
	if p.Gender != Male && p.Gender != Female {
		return 0, apperr.Validation(schema.Patients, "gender must be male or female")
	}
	now := s.now().UTC()
	if p.Status == "" {
		p.Status = Admitted
	}
	if p.AdmissionDate.IsZero() {
		p.AdmissionDate = now
	}
	p.BedID, p.RoomID = nil, nil
	p.CreatedAt, p.UpdatedAt = now, now

	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		var err error
		id, err = store.Create(tx, schema.Patients, p)
		return err
	})
	return id, err
}

func (s *Service) Patient(ctx context.Context, id int64) (*Patient, error) {
	var p *Patient
	err := s.db.View(func(tx *store.Tx) error {
		var err error
		p, err = getPatient(tx, id)
		return err
	})
	return p, err
}

// Patients returns the filtered, paginated patient list in creation order.
func (s *Service) Patients(ctx context.Context, f Filter, page, pageSize int) (store.Page[Patient], error) {
	var patients []Patient
	err := s.db.View(func(tx *store.Tx) error {
		var err error
		patients, err = scanPatients(tx, func(p *Patient) bool {
			if f.Status != "" && p.Status != f.Status {
				return false
			}
			if f.Gender != "" && p.Gender != f.Gender {
				return false
			}
			if f.RoomID != 0 && (p.RoomID == nil || *p.RoomID != f.RoomID) {
				return false
			}
			if f.MinAge > 0 && p.Age < f.MinAge {
				return false
			}
			if f.MaxAge > 0 && p.Age > f.MaxAge {
				return false
			}
			if f.Keyword != "" {
				kw := strings.ToLower(f.Keyword)
				if !strings.Contains(strings.ToLower(p.Name), kw) &&
					!strings.Contains(strings.ToLower(p.IDCard), kw) &&
					!strings.Contains(strings.ToLower(p.Phone), kw) {
					return false
				}
			}
			return true
		})
		return err
	})
	if err != nil {
		return store.Page[Patient]{}, err
	}
	return store.NewPage(patients, page, pageSize), nil
}

func (s *Service) Update(ctx context.Context, id int64, u Update) error {
	return s.db.Update(func(tx *store.Tx) error {
		p, err := getPatient(tx, id)
		if err != nil {
			return err
		}
		if u.Name != nil {
			p.Name = *u.Name
		}
		if u.Age != nil {
			p.Age = *u.Age
		}
		if u.Phone != nil {
			p.Phone = *u.Phone
		}
		if u.Diagnosis != nil {
			p.Diagnosis = *u.Diagnosis
		}
		if u.Notes != nil {
			p.Notes = *u.Notes
		}
		if u.ContactName != nil {
			p.ContactName = *u.ContactName
		}
		if u.ContactPhone != nil {
			p.ContactPhone = *u.ContactPhone
		}
		p.UpdatedAt = s.now().UTC()
		return tx.Put(schema.Patients, id, p)
	})
}

// Discharge marks a patient discharged. The patient must not occupy a bed;
// release the bed first.
func (s *Service) Discharge(ctx context.Context, id int64) error {
	return s.setStatus(id, Discharged)
}

// Transfer marks a patient transferred out. Same bed precondition as
// Discharge.
func (s *Service) Transfer(ctx context.Context, id int64) error {
	return s.setStatus(id, Transferred)
}

func (s *Service) setStatus(id int64, status Status) error {
	return s.db.Update(func(tx *store.Tx) error {
		p, err := getPatient(tx, id)
		if err != nil {
			return err
		}
		if p.BedID != nil {
			return apperr.InvalidState(schema.Patients, "patient %d still occupies bed %d", id, *p.BedID)
		}
		p.Status = status
		p.UpdatedAt = s.now().UTC()
		return tx.Put(schema.Patients, id, p)
	})
}

// Delete hard-deletes a patient. Only discharged patients may be removed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.db.Update(func(tx *store.Tx) error {
		p, err := getPatient(tx, id)
		if err != nil {
			return err
		}
		if p.Status != Discharged {
			return apperr.InvalidState(schema.Patients, "patient %d is %s, only discharged patients may be deleted", id, p.Status)
		}
		return tx.Delete(schema.Patients, id)
	})
}

// -- Medical records --

func (s *Service) AddMedicalRecord(ctx context.Context, m *MedicalRecord) (int64, error) {
	if m.Content == "" {
		return 0, apperr.Validation(schema.MedicalRecords, "content is required")
	}
	now := s.now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		if _, err := getPatient(tx, m.PatientID); err != nil {
			return err
		}
		var err error
		id, err = store.Create(tx, schema.MedicalRecords, m)
		return err
	})
	return id, err
}

// MedicalRecords returns a patient's chart entries, newest first.
func (s *Service) MedicalRecords(ctx context.Context, patientID int64) ([]MedicalRecord, error) {
	var recs []MedicalRecord
	err := s.db.View(func(tx *store.Tx) error {
		return byPatient(tx, schema.MedicalRecords, patientID, func(m MedicalRecord) { recs = append(recs, m) })
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
	return recs, nil
}

func (s *Service) UpdateMedicalRecord(ctx context.Context, id int64, content string) error {
	return s.db.Update(func(tx *store.Tx) error {
		var m MedicalRecord
		ok, err := tx.Get(schema.MedicalRecords, id, &m)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(schema.MedicalRecords, id)
		}
		m.Content = content
		m.UpdatedAt = s.now().UTC()
		return tx.Put(schema.MedicalRecords, id, &m)
	})
}

// -- Vital signs --

func (s *Service) RecordVitals(ctx context.Context, v *VitalSigns) (int64, error) {
	if v.RecordedAt.IsZero() {
		v.RecordedAt = s.now().UTC()
	}
	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		if _, err := getPatient(tx, v.PatientID); err != nil {
			return err
		}
		var err error
		id, err = store.Create(tx, schema.VitalSigns, v)
		return err
	})
	return id, err
}

// Vitals returns a patient's observations, optionally bounded to
// [from, to). Zero bounds are open.
func (s *Service) Vitals(ctx context.Context, patientID int64, from, to time.Time) ([]VitalSigns, error) {
	var vitals []VitalSigns
	err := s.db.View(func(tx *store.Tx) error {
		if from.IsZero() && to.IsZero() {
			return byPatient(tx, schema.VitalSigns, patientID, func(v VitalSigns) { vitals = append(vitals, v) })
		}
		var lo, hi any
		if !from.IsZero() {
			lo = from
		}
		if !to.IsZero() {
			hi = to
		}
		return tx.ScanRange(schema.VitalSigns, "recordedAt", lo, hi, func(_ int64, raw json.RawMessage) (bool, error) {
			var v VitalSigns
			if err := json.Unmarshal(raw, &v); err != nil {
				return false, err
			}
			if v.PatientID == patientID {
				vitals = append(vitals, v)
			}
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(vitals, func(i, j int) bool { return vitals[i].RecordedAt.Before(vitals[j].RecordedAt) })
	return vitals, nil
}

// -- Nursing records --

func (s *Service) AddNursingRecord(ctx context.Context, n *NursingRecord) (int64, error) {
	if n.Type == "" {
		n.Type = NursingGeneral
	}
	if n.PerformedAt.IsZero() {
		n.PerformedAt = s.now().UTC()
	}
	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		if _, err := getPatient(tx, n.PatientID); err != nil {
			return err
		}
		var err error
		id, err = store.Create(tx, schema.NursingRecords, n)
		return err
	})
	return id, err
}

func (s *Service) NursingRecords(ctx context.Context, patientID int64) ([]NursingRecord, error) {
	var recs []NursingRecord
	err := s.db.View(func(tx *store.Tx) error {
		return byPatient(tx, schema.NursingRecords, patientID, func(n NursingRecord) { recs = append(recs, n) })
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].PerformedAt.After(recs[j].PerformedAt) })
	return recs, nil
}
