package store

// Row is implemented by entities that carry their own id field.
type Row interface {
	SetID(id int64)
}

// Create inserts v, writes the assigned id back into the entity, and
// re-stages the row so the persisted encoding carries its id.
func Create(tx *Tx, table string, v Row) (int64, error) {
	id, err := tx.Insert(table, v)
	if err != nil {
		return 0, err
	}
	v.SetID(id)
	if err := tx.Put(table, id, v); err != nil {
		return 0, err
	}
	return id, nil
}
