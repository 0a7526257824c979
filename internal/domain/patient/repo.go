package patient

import (
	"encoding/json"

	"github.com/wardkit/wardkit/internal/platform/apperr"
	"github.com/wardkit/wardkit/internal/platform/store"
	"github.com/wardkit/wardkit/internal/schema"
)

func getPatient(tx *store.Tx, id int64) (*Patient, error) {
	var p Patient
	ok, err := tx.Get(schema.Patients, id, &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound(schema.Patients, id)
	}
	return &p, nil
}

func scanPatients(tx *store.Tx, keep func(*Patient) bool) ([]Patient, error) {
	var patients []Patient
	err := tx.Scan(schema.Patients, func(_ int64, raw json.RawMessage) (bool, error) {
		var p Patient
		if err := json.Unmarshal(raw, &p); err != nil {
			return false, err
		}
		if keep == nil || keep(&p) {
			patients = append(patients, p)
		}
		return true, nil
	})
	return patients, err
}

// byPatient decodes every row of one patient-scoped table into T.
func byPatient[T any](tx *store.Tx, table string, patientID int64, collect func(T)) error {
	return tx.ScanIndex(table, "patientId", patientID, func(_ int64, raw json.RawMessage) (bool, error) {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return false, err
		}
		collect(v)
		return true, nil
	})
}
