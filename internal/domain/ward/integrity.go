package ward

import (
	"encoding/json"
	"time"

	"github.com/wardkit/wardkit/internal/platform/apperr"
	"github.com/wardkit/wardkit/internal/platform/store"
	"github.com/wardkit/wardkit/internal/schema"
)

// Referential integrity and denormalized aggregation. Every mutating room
// operation calls refreshWardStats inside its own transaction, so the ward
// counters can never drift from the room rows they summarize.

// refreshWardStats recomputes TotalRooms and TotalBeds from scratch by
// summing over the ward's current rooms. Full recompute is idempotent and
// deliberately preferred over incremental updates.
func refreshWardStats(tx *store.Tx, wardID int64, now time.Time) error {
	w, err := getWard(tx, wardID)
	if err != nil {
		return err
	}
	rooms, err := roomsByWard(tx, wardID)
	if err != nil {
		return err
	}
	totalBeds := 0
	for _, r := range rooms {
		totalBeds += r.Capacity
	}
	w.TotalRooms = len(rooms)
	w.TotalBeds = totalBeds
	w.UpdatedAt = now
	return tx.Put(schema.Wards, wardID, w)
}

// ensureWardDeletable refuses deletion while any room still references the
// ward.
func ensureWardDeletable(tx *store.Tx, wardID int64) error {
	n, err := countIndex(tx, schema.Rooms, "wardId", wardID)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Blocked(schema.Wards, "ward %d has %d rooms", wardID, n)
	}
	return nil
}

// ensureRoomDeletable refuses deletion while any bed still references the
// room.
func ensureRoomDeletable(tx *store.Tx, roomID int64) error {
	n, err := countIndex(tx, schema.Beds, "roomId", roomID)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Blocked(schema.Rooms, "room %d has %d beds", roomID, n)
	}
	return nil
}

func countIndex(tx *store.Tx, table, field string, key any) (int, error) {
	n := 0
	err := tx.ScanIndex(table, field, key, func(int64, json.RawMessage) (bool, error) {
		n++
		return true, nil
	})
	return n, err
}
