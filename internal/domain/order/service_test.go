package order

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

	svc := NewService(db, zerolog.Nop())
	svc.SetClock(func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) })
	return svc, patientID
}

func mustOrder(t *testing.T, svc *Service, patientID int64, typ Type) int64 {
	t.Helper()
	id, err := svc.Create(context.Background(), &Order{PatientID: patientID, DoctorID: 1, Type: typ, Content: "aspirin 100mg"})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return id
}

func TestCreateValidation(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, &Order{PatientID: patientID, Type: LongTerm}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("no content: err = %v, want validation", err)
	}
	if _, err := svc.Create(ctx, &Order{PatientID: patientID, Type: "weekly", Content: "x"}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("bad type: err = %v, want validation", err)
	}
	if _, err := svc.Create(ctx, &Order{PatientID: 999, Type: LongTerm, Content: "x"}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("unknown patient: err = %v, want not found", err)
	}
}

func TestStatusMachine(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()
	id := mustOrder(t, svc, patientID, LongTerm)

	// pending orders cannot be received or completed
	if err := svc.Receive(ctx, id); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Errorf("receive pending: err = %v, want invalid state", err)
	}
	if err := svc.Complete(ctx, id); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Errorf("complete pending: err = %v, want invalid state", err)
	}

	if err := svc.Review(ctx, id, 5, true, "looks right"); err != nil {
		t.Fatalf("review: %v", err)
	}
	o, _ := svc.Order(ctx, id)
	if o.Status != Approved {
		t.Errorf("status = %s, want approved", o.Status)
	}
	if o.ReviewerID == nil || *o.ReviewerID != 5 || o.ReviewTime == nil || o.ReviewNotes != "looks right" {
		t.Errorf("review metadata not recorded: %+v", o)
	}

	// approved orders cannot be re-reviewed
	if err := svc.Review(ctx, id, 5, false, ""); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Errorf("re-review: err = %v, want invalid state", err)
	}

	if err := svc.Receive(ctx, id); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if err := svc.Complete(ctx, id); err != nil {
		t.Fatalf("complete: %v", err)
	}
	o, _ = svc.Order(ctx, id)
	if o.Status != Completed {
		t.Errorf("status = %s, want completed", o.Status)
	}

	// terminal states accept nothing
	if err := svc.Stop(ctx, id, "late"); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Errorf("stop completed: err = %v, want invalid state", err)
	}
}

func TestRejection(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()
	id := mustOrder(t, svc, patientID, LongTerm)

	if err := svc.Review(ctx, id, 5, false, "wrong dose"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	o, _ := svc.Order(ctx, id)
	if o.Status != Rejected || o.ReviewNotes != "wrong dose" {
		t.Errorf("order = %+v, want rejected with notes", o)
	}
}

func TestStopWithReason(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()
	id := mustOrder(t, svc, patientID, LongTerm)

	if err := svc.Review(ctx, id, 5, true, ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.Stop(ctx, id, "patient allergic"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	o, _ := svc.Order(ctx, id)
	if o.Status != Stopped || o.Notes != "patient allergic" {
		t.Errorf("order = %+v, want stopped with reason", o)
	}
}

func TestTemporaryOrderAutoCompletes(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()
	id := mustOrder(t, svc, patientID, Temporary)

	if err := svc.Review(ctx, id, 5, true, ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.Receive(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordExecution(ctx, &Execution{OrderID: id, NurseID: 7}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	o, _ := svc.Order(ctx, id)
	if o.Status != Completed {
		t.Errorf("status = %s, want completed after first execution", o.Status)
	}

	// no second execution of a completed temporary order
	if _, err := svc.RecordExecution(ctx, &Execution{OrderID: id, NurseID: 7}); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Errorf("re-execute: err = %v, want invalid state", err)
	}
}

func TestLongTermOrderKeepsExecuting(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()
	id := mustOrder(t, svc, patientID, LongTerm)

	if err := svc.Review(ctx, id, 5, true, ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.Receive(ctx, id); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.RecordExecution(ctx, &Execution{OrderID: id, NurseID: 7}); err != nil {
			t.Fatalf("execute %d: %v", i, err)
		}
	}
	o, _ := svc.Order(ctx, id)
	if o.Status != Executing {
		t.Errorf("status = %s, want still executing", o.Status)
	}
	execs, err := svc.Executions(ctx, id)
	if err != nil {
		t.Fatalf("executions: %v", err)
	}
	if len(execs) != 3 {
		t.Errorf("executions = %d, want 3", len(execs))
	}
}

func TestHighSeverityExceptionStopsOrder(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()
	id := mustOrder(t, svc, patientID, LongTerm)

	if err := svc.Review(ctx, id, 5, true, ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.Receive(ctx, id); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ReportException(ctx, id, 7, "mild rash", SeverityLow); err != nil {
		t.Fatalf("low exception: %v", err)
	}
	o, _ := svc.Order(ctx, id)
	if o.Status != Executing {
		t.Errorf("status after low = %s, want executing", o.Status)
	}

	if _, err := svc.ReportException(ctx, id, 7, "anaphylaxis", SeverityHigh); err != nil {
		t.Fatalf("high exception: %v", err)
	}
	o, _ = svc.Order(ctx, id)
	if o.Status != Stopped {
		t.Errorf("status after high = %s, want stopped", o.Status)
	}

	page, err := svc.AbnormalExecutions(ctx, 1, 10)
	if err != nil {
		t.Fatalf("abnormal: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("abnormal executions = %d, want 2", page.Total)
	}
}

func TestExceptionRequiresExecutingOrder(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()
	id := mustOrder(t, svc, patientID, LongTerm)

	// pending orders cannot carry exception reports
	if _, err := svc.ReportException(ctx, id, 7, "wrong dose", SeverityLow); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Errorf("exception on pending: err = %v, want invalid state", err)
	}

	if err := svc.Review(ctx, id, 5, true, ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.Receive(ctx, id); err != nil {
		t.Fatal(err)
	}
	if err := svc.Complete(ctx, id); err != nil {
		t.Fatal(err)
	}

	// nor completed ones
	if _, err := svc.ReportException(ctx, id, 7, "late report", SeverityHigh); !apperr.IsKind(err, apperr.KindInvalidState) {
		t.Errorf("exception on completed: err = %v, want invalid state", err)
	}
	o, _ := svc.Order(ctx, id)
	if o.Status != Completed {
		t.Errorf("status = %s, want completed untouched", o.Status)
	}
	execs, _ := svc.Executions(ctx, id)
	if len(execs) != 0 {
		t.Errorf("executions = %d, want none recorded", len(execs))
	}
}

func TestDeleteGuardedByExecutions(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()
	id := mustOrder(t, svc, patientID, LongTerm)

	if err := svc.Review(ctx, id, 5, true, ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.Receive(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordExecution(ctx, &Execution{OrderID: id, NurseID: 7}); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, id); !apperr.IsKind(err, apperr.KindReferentialIntegrity) {
		t.Errorf("delete executed order: err = %v, want referential integrity", err)
	}

	fresh := mustOrder(t, svc, patientID, LongTerm)
	if err := svc.Delete(ctx, fresh); err != nil {
		t.Fatalf("delete fresh order: %v", err)
	}
}

func TestTodayExecutions(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()
	id := mustOrder(t, svc, patientID, LongTerm)
	if err := svc.Review(ctx, id, 5, true, ""); err != nil {
		t.Fatal(err)
	}
	if err := svc.Receive(ctx, id); err != nil {
		t.Fatal(err)
	}

	today := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	if _, err := svc.RecordExecution(ctx, &Execution{OrderID: id, NurseID: 7, ExecutionTime: today}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RecordExecution(ctx, &Execution{OrderID: id, NurseID: 7, ExecutionTime: yesterday}); err != nil {
		t.Fatal(err)
	}

	page, err := svc.TodayExecutions(ctx, 1, 10)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if page.Total != 1 || !page.Items[0].ExecutionTime.Equal(today) {
		t.Errorf("today = %+v, want only the 09:00 row", page.Items)
	}
}

func TestOrdersFilter(t *testing.T) {
	svc, patientID := newTestService(t)
	ctx := context.Background()
	a := mustOrder(t, svc, patientID, LongTerm)
	mustOrder(t, svc, patientID, Temporary)
	if err := svc.Review(ctx, a, 5, true, ""); err != nil {
		t.Fatal(err)
	}

	page, err := svc.Orders(ctx, Filter{Statuses: []Status{Approved}}, 1, 10)
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != a {
		t.Errorf("filtered = %+v, want only order %d", page.Items, a)
	}

	page, _ = svc.Orders(ctx, Filter{Type: Temporary}, 1, 10)
	if page.Total != 1 || page.Items[0].Type != Temporary {
		t.Errorf("type filter = %+v, want only temporary", page.Items)
	}

	page, _ = svc.Orders(ctx, Filter{Keyword: "ASPIRIN"}, 1, 10)
	if page.Total != 2 {
		t.Errorf("keyword = %d rows, want 2", page.Total)
	}
}
