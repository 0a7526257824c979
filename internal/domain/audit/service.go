// Package audit keeps an append-only operation log. Writes are
// best-effort: a failed log entry is reported to the logger and never
// fails the operation that produced it.
package audit

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardkit/wardkit/internal/platform/store"
	"github.com/wardkit/wardkit/internal/schema"
	"github.com/wardkit/wardkit/pkg/pagination"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

type Entry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	Status    Status    `json:"status"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (e *Entry) SetID(id int64) { e.ID = id }

type Filter struct {
	UserID int64
	Action string
	From   time.Time
	To     time.Time
}

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

// Record appends one entry. Errors are logged and swallowed so audit
// never blocks the caller's operation.
func (s *Service) Record(ctx context.Context, e Entry) {
	e.CreatedAt = s.now().UTC()
	if e.Status == "" {
		e.Status = StatusSuccess
	}
	err := s.db.Update(func(tx *store.Tx) error {
		_, err := store.Create(tx, schema.OperationLogs, &e)
		return err
	})
	if err != nil {
		s.logger.Error().Err(err).
			Int64("userId", e.UserID).
			Str("action", e.Action).
			Msg("audit write failed")
	}
}

// Entries lists log rows matching the filter, newest first.
func (s *Service) Entries(ctx context.Context, f Filter, p pagination.Params) (*store.Page[Entry], error) {
	var entries []Entry
	keep := func(e Entry) bool {
		if f.UserID != 0 && e.UserID != f.UserID {
			return false
		}
		if f.Action != "" && e.Action != f.Action {
			return false
		}
		if !f.To.IsZero() && !e.CreatedAt.Before(f.To) {
			return false
		}
		return true
	}
	collect := func(_ int64, raw json.RawMessage) (bool, error) {
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return false, err
		}
		if keep(e) {
			entries = append(entries, e)
		}
		return true, nil
	}

	err := s.db.View(func(tx *store.Tx) error {
		switch {
		case f.UserID != 0:
			return tx.ScanIndex(schema.OperationLogs, "userId", f.UserID, collect)
		case !f.From.IsZero() || !f.To.IsZero():
			var hi any
			if !f.To.IsZero() {
				hi = f.To
			}
			return tx.ScanRange(schema.OperationLogs, "createdAt", f.From, hi, collect)
		default:
			return tx.Scan(schema.OperationLogs, collect)
		}
	})
	if err != nil {
		return nil, err
	}
	if !f.From.IsZero() {
		filtered := entries[:0]
		for _, e := range entries {
			if !e.CreatedAt.Before(f.From) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	page := store.NewPage(entries, p.Page, p.PageSize)
	return &page, nil
}
