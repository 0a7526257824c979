package patient

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardkit/wardkit/internal/platform/apperr"
	"github.com/wardkit/wardkit/internal/platform/store"
	"github.com/wardkit/wardkit/internal/schema"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "data.json"), schema.All(), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	svc := NewService(db, zerolog.Nop())
	svc.SetClock(func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) })
	return svc
}

func mustCreate(t *testing.T, svc *Service, p *Patient) int64 {
	t.Helper()
	id, err := svc.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return id
}

func TestCreateDefaults(t *testing.T) {
	svc := newTestService(t)
	id := mustCreate(t, svc, &Patient{Name: "Wang Wu", Gender: Male, Age: 62})
	p, err := svc.Patient(context.Background(), id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Status != Admitted {
		t.Errorf("status = %s, want admitted", p.Status)
	}
	if p.AdmissionDate.IsZero() {
		t.Error("admissionDate not defaulted")
	}
	if p.BedID != nil || p.RoomID != nil {
		t.Errorf("occupancy pointers = %v/%v, want nil/nil", p.BedID, p.RoomID)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Create(context.Background(), &Patient{Gender: Male}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("missing name: err = %v, want validation", err)
	}
	if _, err := svc.Create(context.Background(), &Patient{Name: "X"}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("missing gender: err = %v, want validation", err)
	}
}

func TestDeleteOnlyWhenDischarged(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, &Patient{Name: "Wang Wu", Gender: Male})

	if err := svc.Delete(ctx, id); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("delete admitted: err = %v, want invalid state", err)
	}
	if err := svc.Discharge(ctx, id); err != nil {
		t.Fatalf("discharge: %v", err)
	}
	if err := svc.Delete(ctx, id); err != nil {
		t.Fatalf("delete discharged: %v", err)
	}
	if _, err := svc.Patient(ctx, id); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("get after delete: err = %v, want not found", err)
	}
}

func TestDischargeBlockedWhileInBed(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, &Patient{Name: "Wang Wu", Gender: Male})

	// simulate the ward service's dual write
	bedID := int64(9)
	err := svc.db.Update(func(tx *store.Tx) error {
		p, err := getPatient(tx, id)
		if err != nil {
			return err
		}
		p.BedID = &bedID
		return tx.Put(schema.Patients, id, p)
	})
	if err != nil {
		t.Fatalf("seed bed pointer: %v", err)
	}

	if err := svc.Discharge(ctx, id); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Fatalf("discharge in bed: err = %v, want invalid state", err)
	}
}

func TestPatientsPagination(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		mustCreate(t, svc, &Patient{Name: fmt.Sprintf("Patient %02d", i), Gender: Female, Age: 30 + i})
	}

	page, err := svc.Patients(ctx, Filter{}, 3, 10)
	if err != nil {
		t.Fatalf("patients: %v", err)
	}
	if len(page.Items) != 5 {
		t.Errorf("items = %d, want 5", len(page.Items))
	}
	if page.Total != 25 || page.TotalPages != 3 {
		t.Errorf("total/totalPages = %d/%d, want 25/3", page.Total, page.TotalPages)
	}

	page, _ = svc.Patients(ctx, Filter{}, 9, 10)
	if len(page.Items) != 0 || page.Total != 25 {
		t.Errorf("out-of-range page = %d items total %d, want 0 items total 25", len(page.Items), page.Total)
	}
}

func TestPatientsFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, &Patient{Name: "Zhang San", Gender: Male, Age: 70, Phone: "13800138000"})
	mustCreate(t, svc, &Patient{Name: "Li Si", Gender: Female, Age: 45})
	young := mustCreate(t, svc, &Patient{Name: "Wang Wu", Gender: Male, Age: 20})
	if err := svc.Discharge(ctx, young); err != nil {
		t.Fatal(err)
	}

	page, _ := svc.Patients(ctx, Filter{Gender: Male, Status: Admitted}, 1, 10)
	if page.Total != 1 || page.Items[0].Name != "Zhang San" {
		t.Errorf("gender+status filter = %+v, want only Zhang San", page.Items)
	}

	page, _ = svc.Patients(ctx, Filter{MinAge: 40, MaxAge: 60}, 1, 10)
	if page.Total != 1 || page.Items[0].Name != "Li Si" {
		t.Errorf("age filter = %+v, want only Li Si", page.Items)
	}

	page, _ = svc.Patients(ctx, Filter{Keyword: "ZHANG"}, 1, 10)
	if page.Total != 1 {
		t.Errorf("keyword match is case-insensitive, got %d rows", page.Total)
	}
	page, _ = svc.Patients(ctx, Filter{Keyword: "138001"}, 1, 10)
	if page.Total != 1 {
		t.Errorf("keyword should match phone, got %d rows", page.Total)
	}
}

func TestMedicalRecordsNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, &Patient{Name: "Zhao Liu", Gender: Female})

	base := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	for i, content := range []string{"admission note", "day 2 progress", "day 3 progress"} {
		ts := base.AddDate(0, 0, i)
		svc.SetClock(func() time.Time { return ts })
		if _, err := svc.AddMedicalRecord(ctx, &MedicalRecord{PatientID: id, DoctorID: 1, Type: RecordProgress, Content: content}); err != nil {
			t.Fatalf("add record: %v", err)
		}
	}

	recs, err := svc.MedicalRecords(ctx, id)
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("len = %d, want 3", len(recs))
	}
	if recs[0].Content != "day 3 progress" || recs[2].Content != "admission note" {
		t.Errorf("order = %q..%q, want newest first", recs[0].Content, recs[2].Content)
	}

	if err := svc.UpdateMedicalRecord(ctx, recs[0].ID, "amended"); err != nil {
		t.Fatalf("update: %v", err)
	}
	recs, _ = svc.MedicalRecords(ctx, id)
	if recs[0].Content != "amended" {
		t.Errorf("content = %q, want amended", recs[0].Content)
	}
}

func TestVitalsRange(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, &Patient{Name: "Zhao Liu", Gender: Female})
	other := mustCreate(t, svc, &Patient{Name: "Qian Qi", Gender: Male})

	base := time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		v := &VitalSigns{PatientID: id, RecorderID: 2, Temperature: 36.5, Pulse: 70, RecordedAt: base.Add(time.Duration(i) * 6 * time.Hour)}
		if _, err := svc.RecordVitals(ctx, v); err != nil {
			t.Fatalf("record vitals: %v", err)
		}
	}
	if _, err := svc.RecordVitals(ctx, &VitalSigns{PatientID: other, RecorderID: 2, Pulse: 80, RecordedAt: base.Add(7 * time.Hour)}); err != nil {
		t.Fatal(err)
	}

	all, err := svc.Vitals(ctx, id, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("vitals: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("all = %d, want 4", len(all))
	}

	got, err := svc.Vitals(ctx, id, base.Add(6*time.Hour), base.Add(18*time.Hour))
	if err != nil {
		t.Fatalf("vitals range: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("range = %d rows, want 2", len(got))
	}
	if !got[0].RecordedAt.Equal(base.Add(6 * time.Hour)) {
		t.Errorf("first = %v, want %v", got[0].RecordedAt, base.Add(6*time.Hour))
	}

	if _, err := svc.RecordVitals(ctx, &VitalSigns{PatientID: 999}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("unknown patient: err = %v, want not found", err)
	}
}

func TestNursingRecords(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	id := mustCreate(t, svc, &Patient{Name: "Zhao Liu", Gender: Female})

	if _, err := svc.AddNursingRecord(ctx, &NursingRecord{PatientID: id, NurseID: 3, Description: "repositioned"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	recs, err := svc.NursingRecords(ctx, id)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 || recs[0].Type != NursingGeneral {
		t.Errorf("recs = %+v, want one general record", recs)
	}
}
