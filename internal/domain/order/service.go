// Package order manages doctors' orders and their execution records. The
// status machine is enforced here: review moves pending orders to approved
// or rejected, receiving moves approved to executing, and execution records
// can complete or stop the parent order atomically.
package order

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

var transitions = map[Status][]Status{
	Pending:   {Approved, Rejected},
	Approved:  {Executing, Stopped},
	Executing: {Completed, Stopped},
}

func canTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

func (s *Service) Create(ctx context.Context, o *Order) (int64, error) {
	if o.Content == "" {
		return 0, apperr.Validation(schema.Orders, "content is required")
	}
	if o.Type != LongTerm && o.Type != Temporary {
		return 0, apperr.Validation(schema.Orders, "type must be long_term or temporary")
	}
	now := s.now().UTC()
	o.Status = Pending
	if o.StartTime.IsZero() {
		o.StartTime = now
	}
	o.CreatedAt, o.UpdatedAt = now, now

	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		var p json.RawMessage
		ok, err := tx.Get(schema.Patients, o.PatientID, &p)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(schema.Patients, o.PatientID)
		}
		id, err = store.Create(tx, schema.Orders, o)
		return err
	})
	return id, err
}

func (s *Service) Order(ctx context.Context, id int64) (*Order, error) {
	var o *Order
	err := s.db.View(func(tx *store.Tx) error {
		var err error
		o, err = getOrder(tx, id)
		return err
	})
	return o, err
}

// Orders returns the filtered, paginated order list, newest first.
func (s *Service) Orders(ctx context.Context, f Filter, page, pageSize int) (store.Page[Order], error) {
	var orders []Order
	err := s.db.View(func(tx *store.Tx) error {
		return tx.Scan(schema.Orders, func(_ int64, raw json.RawMessage) (bool, error) {
			var o Order
			if err := json.Unmarshal(raw, &o); err != nil {
				return false, err
			}
			if f.PatientID != 0 && o.PatientID != f.PatientID {
				return true, nil
			}
			if f.Type != "" && o.Type != f.Type {
				return true, nil
			}
			if len(f.Statuses) > 0 {
				match := false
				for _, st := range f.Statuses {
					if o.Status == st {
						match = true
						break
					}
				}
				if !match {
					return true, nil
				}
			}
			if f.Keyword != "" && !strings.Contains(strings.ToLower(o.Content), strings.ToLower(f.Keyword)) {
				return true, nil
			}
			orders = append(orders, o)
			return true, nil
		})
	})
	if err != nil {
		return store.Page[Order]{}, err
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return store.NewPage(orders, page, pageSize), nil
}

// Review moves a pending order to approved or rejected and records who
// reviewed it, when, and why.
func (s *Service) Review(ctx context.Context, id, reviewerID int64, approve bool, notes string) error {
	target := Approved
	if !approve {
		target = Rejected
	}
	now := s.now().UTC()
	return s.db.Update(func(tx *store.Tx) error {
		o, err := getOrder(tx, id)
		if err != nil {
			return err
		}
		if !canTransition(o.Status, target) {
			return apperr.InvalidState(schema.Orders, "order %d is %s, cannot move to %s", id, o.Status, target)
		}
		o.Status = target
		o.ReviewerID = &reviewerID
		o.ReviewTime = &now
		o.ReviewNotes = notes
		o.UpdatedAt = now
		return tx.Put(schema.Orders, id, o)
	})
}

// Receive moves an approved order to executing, acknowledging it for the
// nursing workflow.
func (s *Service) Receive(ctx context.Context, id int64) error {
	return s.transition(id, Executing, "")
}

// Complete finishes an executing long-term order.
func (s *Service) Complete(ctx context.Context, id int64) error {
	return s.transition(id, Completed, "")
}

// Stop halts an approved or executing order, recording the reason in the
// order notes.
func (s *Service) Stop(ctx context.Context, id int64, reason string) error {
	return s.transition(id, Stopped, reason)
}

func (s *Service) transition(id int64, target Status, notes string) error {
	return s.db.Update(func(tx *store.Tx) error {
		o, err := getOrder(tx, id)
		if err != nil {
			return err
		}
		if !canTransition(o.Status, target) {
			return apperr.InvalidState(schema.Orders, "order %d is %s, cannot move to %s", id, o.Status, target)
		}
		o.Status = target
		if notes != "" {
			o.Notes = notes
		}
		o.UpdatedAt = s.now().UTC()
		return tx.Put(schema.Orders, id, o)
	})
}

// RecordExecution appends an execution row for an executing order. A
// temporary order completes with its first execution, in the same
// transaction.
func (s *Service) RecordExecution(ctx context.Context, e *Execution) (int64, error) {
	now := s.now().UTC()
	if e.ExecutionTime.IsZero() {
		e.ExecutionTime = now
	}
	if e.Abnormal == "" {
		e.Abnormal = Normal
	}
	if e.Status == "" {
		e.Status = "DONE"
	}
	e.CreatedAt = now

	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		o, err := getOrder(tx, e.OrderID)
		if err != nil {
			return err
		}
		if o.Status != Executing {
			return apperr.InvalidState(schema.Orders, "order %d is %s, not executing", o.ID, o.Status)
		}
		if id, err = store.Create(tx, schema.OrderExecutions, e); err != nil {
			return err
		}
		if o.Type == Temporary {
			o.Status = Completed
			o.UpdatedAt = now
			return tx.Put(schema.Orders, o.ID, o)
		}
		return nil
	})
	return id, err
}

// ReportException appends an abnormal execution row for an executing
// order. A high-severity exception stops the parent order in the same
// transaction.
func (s *Service) ReportException(ctx context.Context, orderID, nurseID int64, description string, severity Severity) (int64, error) {
	now := s.now().UTC()
	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		o, err := getOrder(tx, orderID)
		if err != nil {
			return err
		}
		if o.Status != Executing {
			return apperr.InvalidState(schema.Orders, "order %d is %s, not executing", orderID, o.Status)
		}
		e := &Execution{
			OrderID:       orderID,
			NurseID:       nurseID,
			ExecutionTime: now,
			Status:        "EXCEPTION",
			Abnormal:      AbnormalEx,
			AbnormalDesc:  description,
			CreatedAt:     now,
		}
		if id, err = store.Create(tx, schema.OrderExecutions, e); err != nil {
			return err
		}
		if severity == SeverityHigh {
			o.Status = Stopped
			o.UpdatedAt = now
			if err := tx.Put(schema.Orders, orderID, o); err != nil {
				return err
			}
			s.logger.Warn().Int64("order", orderID).Str("severity", string(severity)).Msg("order stopped by abnormal execution")
		}
		return nil
	})
	return id, err
}

// Delete removes an order that has never been executed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.db.Update(func(tx *store.Tx) error {
		if _, err := getOrder(tx, id); err != nil {
			return err
		}
		n := 0
		err := tx.ScanIndex(schema.OrderExecutions, "orderId", id, func(int64, json.RawMessage) (bool, error) {
			n++
			return false, nil
		})
		if err != nil {
			return err
		}
		if n > 0 {
			return apperr.Blocked(schema.Orders, "order %d has execution records", id)
		}
		return tx.Delete(schema.Orders, id)
	})
}

// Executions returns an order's execution history, newest first.
func (s *Service) Executions(ctx context.Context, orderID int64) ([]Execution, error) {
	var execs []Execution
	err := s.db.View(func(tx *store.Tx) error {
		return tx.ScanIndex(schema.OrderExecutions, "orderId", orderID, func(_ int64, raw json.RawMessage) (bool, error) {
			var e Execution
			if err := json.Unmarshal(raw, &e); err != nil {
				return false, err
			}
			execs = append(execs, e)
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(execs, func(i, j int) bool { return execs[i].ExecutionTime.After(execs[j].ExecutionTime) })
	return execs, nil
}

// TodayExecutions returns executions whose executionTime falls on the
// current calendar day, in UTC.
func (s *Service) TodayExecutions(ctx context.Context, page, pageSize int) (store.Page[Execution], error) {
	day := s.now().UTC().Truncate(24 * time.Hour)
	var execs []Execution
	err := s.db.View(func(tx *store.Tx) error {
		return tx.ScanRange(schema.OrderExecutions, "executionTime", day, day.AddDate(0, 0, 1), func(_ int64, raw json.RawMessage) (bool, error) {
			var e Execution
			if err := json.Unmarshal(raw, &e); err != nil {
				return false, err
			}
			execs = append(execs, e)
			return true, nil
		})
	})
	if err != nil {
		return store.Page[Execution]{}, err
	}
	return store.NewPage(execs, page, pageSize), nil
}

// AbnormalExecutions returns every abnormal execution, paginated.
func (s *Service) AbnormalExecutions(ctx context.Context, page, pageSize int) (store.Page[Execution], error) {
	var execs []Execution
	err := s.db.View(func(tx *store.Tx) error {
		return tx.ScanIndex(schema.OrderExecutions, "abnormal", string(AbnormalEx), func(_ int64, raw json.RawMessage) (bool, error) {
			var e Execution
			if err := json.Unmarshal(raw, &e); err != nil {
				return false, err
			}
			execs = append(execs, e)
			return true, nil
		})
	})
	if err != nil {
		return store.Page[Execution]{}, err
	}
	return store.NewPage(execs, page, pageSize), nil
}

func getOrder(tx *store.Tx, id int64) (*Order, error) {
	var o Order
	ok, err := tx.Get(schema.Orders, id, &o)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound(schema.Orders, id)
	}
	return &o, nil
}
