package ward

import (
	"encoding/json"

	"github.com/wardkit/wardkit/internal/platform/apperr"
	"github.com/wardkit/wardkit/internal/platform/store"
	"github.com/wardkit/wardkit/internal/schema"
)

// Transaction-scoped row access. Every exported operation on the Service
// composes these inside a single store transaction.

func getWard(tx *store.Tx, id int64) (*Ward, error) {
	var w Ward
	ok, err := tx.Get(schema.Wards, id, &w)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound(schema.Wards, id)
	}
	return &w, nil
}

func getRoom(tx *store.Tx, id int64) (*Room, error) {
	var r Room
	ok, err := tx.Get(schema.Rooms, id, &r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound(schema.Rooms, id)
	}
	return &r, nil
}

func getBed(tx *store.Tx, id int64) (*Bed, error) {
	var b Bed
	ok, err := tx.Get(schema.Beds, id, &b)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound(schema.Beds, id)
	}
	return &b, nil
}

func roomsByWard(tx *store.Tx, wardID int64) ([]Room, error) {
	var rooms []Room
	err := tx.ScanIndex(schema.Rooms, "wardId", wardID, func(_ int64, raw json.RawMessage) (bool, error) {
		var r Room
		if err := json.Unmarshal(raw, &r); err != nil {
			return false, err
		}
		rooms = append(rooms, r)
		return true, nil
	})
	return rooms, err
}

func bedsByRoom(tx *store.Tx, roomID int64) ([]Bed, error) {
	var beds []Bed
	err := tx.ScanIndex(schema.Beds, "roomId", roomID, func(_ int64, raw json.RawMessage) (bool, error) {
		var b Bed
		if err := json.Unmarshal(raw, &b); err != nil {
			return false, err
		}
		beds = append(beds, b)
		return true, nil
	})
	return beds, err
}

// scanInto decodes every index match of one table into T and hands it to
// the collector.
func scanInto[T any](tx *store.Tx, table, field string, key any, collect func(T)) error {
	return tx.ScanIndex(table, field, key, func(_ int64, raw json.RawMessage) (bool, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return false, err
		}
		collect(v)
		return true, nil
	})
}

func scanWards(tx *store.Tx, keep func(*Ward) bool) ([]Ward, error) {
	var wards []Ward
	err := tx.Scan(schema.Wards, func(_ int64, raw json.RawMessage) (bool, error) {
		var w Ward
		if err := json.Unmarshal(raw, &w); err != nil {
			return false, err
		}
		if keep == nil || keep(&w) {
			wards = append(wards, w)
		}
		return true, nil
	})
	return wards, err
}
