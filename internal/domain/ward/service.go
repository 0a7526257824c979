// Package ward manages wards, rooms, beds, and the bed occupancy lifecycle.
// All multi-row operations (aggregate recompute, assign, release) run inside
// one store transaction so a failure partway through leaves no partial
// state.
package ward

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wardkit/wardkit/internal/domain/patient"
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

// -- Wards --

func (s *Service) CreateWard(ctx context.Context, w *Ward) (int64, error) {
	if w.Code == "" || w.Name == "" || w.Department == "" {
		return 0, apperr.Validation(schema.Wards, "code, name and department are required")
	}
	if w.Status == "" {
		w.Status = WardActive
	}
	now := s.now().UTC()
	w.TotalRooms, w.TotalBeds = 0, 0
	w.CreatedAt, w.UpdatedAt = now, now

	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		var err error
		id, err = store.Create(tx, schema.Wards, w)
		return err
	})
	return id, err
}

func (s *Service) Ward(ctx context.Context, id int64) (*Ward, error) {
	var w *Ward
	err := s.db.View(func(tx *store.Tx) error {
		var err error
		w, err = getWard(tx, id)
		return err
	})
	return w, err
}

// Wards returns the filtered, paginated ward list ordered by code.
func (s *Service) Wards(ctx context.Context, f WardFilter, page, pageSize int) (store.Page[Ward], error) {
	var wards []Ward
	err := s.db.View(func(tx *store.Tx) error {
		var err error
		wards, err = scanWards(tx, func(w *Ward) bool {
			if f.Status != "" && w.Status != f.Status {
				return false
			}
			if f.Department != "" && w.Department != f.Department {
				return false
			}
			if f.Floor != 0 && w.Floor != f.Floor {
				return false
			}
			if f.Building != "" && w.Building != f.Building {
				return false
			}
			if f.Keyword != "" && !matchKeyword(f.Keyword, w.Name, w.Code, w.Department) {
				return false
			}
			return true
		})
		return err
	})
	if err != nil {
		return store.Page[Ward]{}, err
	}
	sort.Slice(wards, func(i, j int) bool { return wards[i].Code < wards[j].Code })
	return store.NewPage(wards, page, pageSize), nil
}

func (s *Service) AllWards(ctx context.Context) ([]Ward, error) {
	var wards []Ward
	err := s.db.View(func(tx *store.Tx) error {
		var err error
		wards, err = scanWards(tx, nil)
		return err
	})
	return wards, err
}

func (s *Service) UpdateWard(ctx context.Context, id int64, u WardUpdate) error {
	return s.db.Update(func(tx *store.Tx) error {
		w, err := getWard(tx, id)
		if err != nil {
			return err
		}
		if u.Name != nil {
			w.Name = *u.Name
		}
		if u.Department != nil {
			w.Department = *u.Department
		}
		if u.Floor != nil {
			w.Floor = *u.Floor
		}
		if u.Building != nil {
			w.Building = *u.Building
		}
		if u.Description != nil {
			w.Description = *u.Description
		}
		if u.Status != nil {
			w.Status = *u.Status
		}
		w.UpdatedAt = s.now().UTC()
		return tx.Put(schema.Wards, id, w)
	})
}

// DeleteWard fails while any room still belongs to the ward.
func (s *Service) DeleteWard(ctx context.Context, id int64) error {
	return s.db.Update(func(tx *store.Tx) error {
		if _, err := getWard(tx, id); err != nil {
			return err
		}
		if err := ensureWardDeletable(tx, id); err != nil {
			return err
		}
		return tx.Delete(schema.Wards, id)
	})
}

// -- Rooms --

func (s *Service) CreateRoom(ctx context.Context, r *Room) (int64, error) {
	if r.Code == "" || r.Name == "" {
		return 0, apperr.Validation(schema.Rooms, "code and name are required")
	}
	if r.Capacity < 1 {
		return 0, apperr.Validation(schema.Rooms, "capacity must be at least 1")
	}
	if r.Status == "" {
		r.Status = RoomAvailable
	}
	if r.Gender == "" {
		r.Gender = GenderAny
	}
	now := s.now().UTC()
	r.LastCleanedAt = now
	r.CreatedAt, r.UpdatedAt = now, now

	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		if _, err := getWard(tx, r.WardID); err != nil {
			return err
		}
		var err error
		if id, err = store.Create(tx, schema.Rooms, r); err != nil {
			return err
		}
		return refreshWardStats(tx, r.WardID, now)
	})
	return id, err
}

func (s *Service) Room(ctx context.Context, id int64) (*Room, error) {
	var r *Room
	err := s.db.View(func(tx *store.Tx) error {
		var err error
		r, err = getRoom(tx, id)
		return err
	})
	return r, err
}

// Rooms returns the filtered, paginated rooms of one ward.
func (s *Service) Rooms(ctx context.Context, wardID int64, f RoomFilter, page, pageSize int) (store.Page[Room], error) {
	var rooms []Room
	err := s.db.View(func(tx *store.Tx) error {
		all, err := roomsByWard(tx, wardID)
		if err != nil {
			return err
		}
		for _, r := range all {
			if f.Type != "" && r.Type != f.Type {
				continue
			}
			if f.Status != "" && r.Status != f.Status {
				continue
			}
			if f.Gender != "" && r.Gender != f.Gender {
				continue
			}
			if f.HasOxygen != nil && r.HasOxygen != *f.HasOxygen {
				continue
			}
			if f.HasToilet != nil && r.HasToilet != *f.HasToilet {
				continue
			}
			if f.Keyword != "" && !matchKeyword(f.Keyword, r.Name, r.Code) {
				continue
			}
			rooms = append(rooms, r)
		}
		return nil
	})
	if err != nil {
		return store.Page[Room]{}, err
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Code < rooms[j].Code })
	return store.NewPage(rooms, page, pageSize), nil
}

func (s *Service) UpdateRoom(ctx context.Context, id int64, u RoomUpdate) error {
	now := s.now().UTC()
	return s.db.Update(func(tx *store.Tx) error {
		r, err := getRoom(tx, id)
		if err != nil {
			return err
		}
		capacityChanged := false
		if u.Name != nil {
			r.Name = *u.Name
		}
		if u.Type != nil {
			r.Type = *u.Type
		}
		if u.Capacity != nil && *u.Capacity != r.Capacity {
			if *u.Capacity < 1 {
				return apperr.Validation(schema.Rooms, "capacity must be at least 1")
			}
			r.Capacity = *u.Capacity
			capacityChanged = true
		}
		if u.Status != nil {
			r.Status = *u.Status
		}
		if u.Gender != nil {
			r.Gender = *u.Gender
		}
		if u.HasOxygen != nil {
			r.HasOxygen = *u.HasOxygen
		}
		if u.HasToilet != nil {
			r.HasToilet = *u.HasToilet
		}
		r.UpdatedAt = now
		if err := tx.Put(schema.Rooms, id, r); err != nil {
			return err
		}
		if capacityChanged {
			return refreshWardStats(tx, r.WardID, now)
		}
		return nil
	})
}

// DeleteRoom fails while any bed still belongs to the room; otherwise it
// removes the room and refreshes the parent ward's aggregates in the same
// transaction.
func (s *Service) DeleteRoom(ctx context.Context, id int64) error {
	now := s.now().UTC()
	return s.db.Update(func(tx *store.Tx) error {
		r, err := getRoom(tx, id)
		if err != nil {
			return err
		}
		if err := ensureRoomDeletable(tx, id); err != nil {
			return err
		}
		if err := tx.Delete(schema.Rooms, id); err != nil {
			return err
		}
		return refreshWardStats(tx, r.WardID, now)
	})
}

// RecordCleaning appends a cleaning record and stamps the room's
// lastCleanedAt, atomically.
func (s *Service) RecordCleaning(ctx context.Context, roomID, staffID int64, kind CleaningType, remarks string) (int64, error) {
	now := s.now().UTC()
	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		r, err := getRoom(tx, roomID)
		if err != nil {
			return err
		}
		rec := &CleaningRecord{RoomID: roomID, StaffID: staffID, CleanedAt: now, Type: kind, Remarks: remarks}
		if id, err = store.Create(tx, schema.CleaningRecords, rec); err != nil {
			return err
		}
		r.LastCleanedAt = now
		r.UpdatedAt = now
		return tx.Put(schema.Rooms, roomID, r)
	})
	return id, err
}

func (s *Service) CleaningHistory(ctx context.Context, roomID int64) ([]CleaningRecord, error) {
	var recs []CleaningRecord
	err := s.db.View(func(tx *store.Tx) error {
		return scanInto(tx, schema.CleaningRecords, "roomId", roomID, func(r CleaningRecord) { recs = append(recs, r) })
	})
	return recs, err
}

// -- Beds --

func (s *Service) CreateBed(ctx context.Context, b *Bed) (int64, error) {
	if b.Code == "" {
		return 0, apperr.Validation(schema.Beds, "code is required")
	}
	if b.Status == "" {
		b.Status = BedAvailable
	}
	if b.Status == BedOccupied {
		return 0, apperr.InvalidState(schema.Beds, "a bed cannot be created occupied")
	}
	if b.Type == "" {
		b.Type = BedNormal
	}
	now := s.now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		r, err := getRoom(tx, b.RoomID)
		if err != nil {
			return err
		}
		beds, err := bedsByRoom(tx, b.RoomID)
		if err != nil {
			return err
		}
		if len(beds) >= r.Capacity {
			return apperr.InvalidState(schema.Beds, "room %d is at capacity (%d)", r.ID, r.Capacity)
		}
		id, err = store.Create(tx, schema.Beds, b)
		return err
	})
	return id, err
}

func (s *Service) Bed(ctx context.Context, id int64) (*Bed, error) {
	var b *Bed
	err := s.db.View(func(tx *store.Tx) error {
		var err error
		b, err = getBed(tx, id)
		return err
	})
	return b, err
}

func (s *Service) BedsByRoom(ctx context.Context, roomID int64) ([]Bed, error) {
	var beds []Bed
	err := s.db.View(func(tx *store.Tx) error {
		var err error
		beds, err = bedsByRoom(tx, roomID)
		return err
	})
	return beds, err
}

func (s *Service) UpdateBed(ctx context.Context, id int64, u BedUpdate) error {
	return s.db.Update(func(tx *store.Tx) error {
		b, err := getBed(tx, id)
		if err != nil {
			return err
		}
		if u.Name != nil {
			b.Name = *u.Name
		}
		if u.Code != nil {
			b.Code = *u.Code
		}
		if u.Type != nil {
			b.Type = *u.Type
		}
		b.UpdatedAt = s.now().UTC()
		return tx.Put(schema.Beds, id, b)
	})
}

// DeleteBed refuses to remove an occupied bed.
func (s *Service) DeleteBed(ctx context.Context, id int64) error {
	return s.db.Update(func(tx *store.Tx) error {
		b, err := getBed(tx, id)
		if err != nil {
			return err
		}
		if b.Status == BedOccupied {
			return apperr.InvalidState(schema.Beds, "bed %d is occupied", id)
		}
		return tx.Delete(schema.Beds, id)
	})
}

// StatusEditable reports whether the bed's status may be changed by direct
// update. An occupied bed must go through Release first. Callers of
// UpdateBedStatus can consult this to disable the control uniformly.
func StatusEditable(b *Bed) bool { return b.Status != BedOccupied }

// UpdateBedStatus moves a bed along the non-occupancy side branches
// (maintenance, cleaning, out of service, back to available). Occupancy
// itself moves only through Assign and Release.
func (s *Service) UpdateBedStatus(ctx context.Context, id int64, status BedStatus, maintenance *MaintenanceInfo, cleaningNote string) error {
	if status == BedOccupied {
		return apperr.InvalidState(schema.Beds, "occupied is only reachable through assign")
	}
	return s.db.Update(func(tx *store.Tx) error {
		b, err := getBed(tx, id)
		if err != nil {
			return err
		}
		if !StatusEditable(b) {
			return apperr.InvalidState(schema.Beds, "bed %d is occupied; release it first", id)
		}
		b.Status = status
		b.Maintenance = maintenance
		b.CleaningNote = cleaningNote
		b.UpdatedAt = s.now().UTC()
		return tx.Put(schema.Beds, id, b)
	})
}

// Assign moves an available bed to occupied, points it at the patient,
// mirrors the link on the patient row, and appends the BedAssignment audit
// record, all in one transaction.
func (s *Service) Assign(ctx context.Context, bedID int64, req AssignRequest) error {
	now := s.now().UTC()
	err := s.db.Update(func(tx *store.Tx) error {
		b, err := getBed(tx, bedID)
		if err != nil {
			return err
		}
		if b.Status != BedAvailable {
			return apperr.InvalidState(schema.Beds, "bed %d is %s, not available", bedID, b.Status)
		}
		var p patient.Patient
		ok, err := tx.Get(schema.Patients, req.PatientID, &p)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(schema.Patients, req.PatientID)
		}
		if p.BedID != nil {
			return apperr.InvalidState(schema.Patients, "patient %d already occupies bed %d", p.ID, *p.BedID)
		}

		b.Status = BedOccupied
		b.PatientID = &req.PatientID
		b.LastAssignedAt = &now
		b.UpdatedAt = now
		if err := tx.Put(schema.Beds, bedID, b); err != nil {
			return err
		}

		p.BedID = &bedID
		p.RoomID = &b.RoomID
		p.Status = patient.Admitted
		p.UpdatedAt = now
		if err := tx.Put(schema.Patients, p.ID, &p); err != nil {
			return err
		}

		admission := req.AdmissionDate
		if admission.IsZero() {
			admission = now
		}
		rec := &BedAssignment{
			BedID:          bedID,
			PatientID:      req.PatientID,
			AdmissionDate:  admission,
			AssignmentType: req.AssignmentType,
			Note:           req.Note,
			CreatedAt:      now,
		}
		_, err = store.Create(tx, schema.BedAssignments, rec)
		return err
	})
	if err == nil {
		s.logger.Info().Int64("bed", bedID).Int64("patient", req.PatientID).Msg("bed assigned")
	}
	return err
}

// Release moves an occupied bed back to available, clears the occupancy
// pointers on both sides, and appends the BedRelease audit record carrying
// the previous patient id, all in one transaction.
func (s *Service) Release(ctx context.Context, bedID int64) error {
	now := s.now().UTC()
	err := s.db.Update(func(tx *store.Tx) error {
		b, err := getBed(tx, bedID)
		if err != nil {
			return err
		}
		if b.Status != BedOccupied {
			return apperr.InvalidState(schema.Beds, "bed %d is %s, not occupied", bedID, b.Status)
		}
		prev := b.PatientID

		b.Status = BedAvailable
		b.PatientID = nil
		b.LastReleasedAt = &now
		b.UpdatedAt = now
		if err := tx.Put(schema.Beds, bedID, b); err != nil {
			return err
		}

		if prev != nil {
			var p patient.Patient
			ok, err := tx.Get(schema.Patients, *prev, &p)
			if err != nil {
				return err
			}
			if ok {
				p.BedID = nil
				p.RoomID = nil
				p.UpdatedAt = now
				if err := tx.Put(schema.Patients, p.ID, &p); err != nil {
					return err
				}
			}
		}

		rec := &BedRelease{BedID: bedID, ReleasedAt: now, PreviousPatientID: prev}
		_, err = store.Create(tx, schema.BedReleases, rec)
		return err
	})
	if err == nil {
		s.logger.Info().Int64("bed", bedID).Msg("bed released")
	}
	return err
}

// Assignments returns the append-only assignment audit for one bed.
func (s *Service) Assignments(ctx context.Context, bedID int64) ([]BedAssignment, error) {
	var recs []BedAssignment
	err := s.db.View(func(tx *store.Tx) error {
		return scanInto(tx, schema.BedAssignments, "bedId", bedID, func(r BedAssignment) { recs = append(recs, r) })
	})
	return recs, err
}

// Releases returns the append-only release audit for one bed.
func (s *Service) Releases(ctx context.Context, bedID int64) ([]BedRelease, error) {
	var recs []BedRelease
	err := s.db.View(func(tx *store.Tx) error {
		return scanInto(tx, schema.BedReleases, "bedId", bedID, func(r BedRelease) { recs = append(recs, r) })
	})
	return recs, err
}

// -- Equipment --

func (s *Service) AddEquipment(ctx context.Context, e *RoomEquipment) (int64, error) {
	if e.Code == "" || e.Name == "" {
		return 0, apperr.Validation(schema.RoomEquipment, "code and name are required")
	}
	if e.Status == "" {
		e.Status = "normal"
	}
	e.CreatedAt = s.now().UTC()
	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		if _, err := getRoom(tx, e.RoomID); err != nil {
			return err
		}
		var err error
		id, err = store.Create(tx, schema.RoomEquipment, e)
		return err
	})
	return id, err
}

func (s *Service) EquipmentByRoom(ctx context.Context, roomID int64) ([]RoomEquipment, error) {
	var items []RoomEquipment
	err := s.db.View(func(tx *store.Tx) error {
		return scanInto(tx, schema.RoomEquipment, "roomId", roomID, func(e RoomEquipment) { items = append(items, e) })
	})
	return items, err
}

func (s *Service) UpdateEquipmentStatus(ctx context.Context, id int64, status string) error {
	return s.db.Update(func(tx *store.Tx) error {
		var e RoomEquipment
		ok, err := tx.Get(schema.RoomEquipment, id, &e)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(schema.RoomEquipment, id)
		}
		e.Status = status
		return tx.Put(schema.RoomEquipment, id, &e)
	})
}

func (s *Service) RemoveEquipment(ctx context.Context, id int64) error {
	return s.db.Update(func(tx *store.Tx) error {
		return tx.Delete(schema.RoomEquipment, id)
	})
}

// -- Staff --

func (s *Service) AddStaff(ctx context.Context, ws *WardStaff) (int64, error) {
	var id int64
	err := s.db.Update(func(tx *store.Tx) error {
		if _, err := getWard(tx, ws.WardID); err != nil {
			return err
		}
		var err error
		id, err = store.Create(tx, schema.WardStaff, ws)
		return err
	})
	return id, err
}

func (s *Service) StaffByWard(ctx context.Context, wardID int64) ([]WardStaff, error) {
	var staff []WardStaff
	err := s.db.View(func(tx *store.Tx) error {
		return scanInto(tx, schema.WardStaff, "wardId", wardID, func(w WardStaff) { staff = append(staff, w) })
	})
	return staff, err
}

func (s *Service) SetStaffActive(ctx context.Context, id int64, active bool) error {
	return s.db.Update(func(tx *store.Tx) error {
		var ws WardStaff
		ok, err := tx.Get(schema.WardStaff, id, &ws)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.NotFound(schema.WardStaff, id)
		}
		ws.IsActive = active
		return tx.Put(schema.WardStaff, id, &ws)
	})
}

func matchKeyword(keyword string, fields ...string) bool {
	kw := strings.ToLower(keyword)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), kw) {
			return true
		}
	}
	return false
}
