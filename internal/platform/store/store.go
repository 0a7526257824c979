// Package store implements the embedded table engine behind every
// repository: named tables with auto-incrementing integer keys, declared
// secondary indexes with equality and range scans, and explicit multi-table
// atomic transactions. The whole store lives in process memory and can
// snapshot itself to a single JSON file, which makes it suitable for a
// client-resident deployment with no database server.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Version is the current on-disk schema version. Snapshots written by an
// older version are accepted and rewritten at this version on the next
// flush; snapshots from a newer version are refused.
const Version = 2

var (
	// ErrUnknownTable means the table was not declared in the schema set.
	ErrUnknownTable = errors.New("store: unknown table")
	// ErrUnknownIndex means the field is not indexed on that table.
	ErrUnknownIndex = errors.New("store: unknown index")
	// ErrNoRow means an update targeted an id with no row.
	ErrNoRow = errors.New("store: no such row")
	// ErrReadOnly means a mutation was attempted inside a View transaction.
	ErrReadOnly = errors.New("store: read-only transaction")
	// ErrVersion means the snapshot was written by a newer schema version.
	ErrVersion = errors.New("store: snapshot version is newer than this build")
)

// Schema declares one table and the fields carrying a secondary index.
type Schema struct {
	Name    string
	Indexes []string
}

type table struct {
	schema  Schema
	rows    map[int64]json.RawMessage
	indexes map[string]map[string][]int64 // field -> encoded key -> ids
	nextID  int64
}

// Store is the process-wide table registry. All access goes through View and
// Update; Update serializes writers and applies its mutations atomically.
type Store struct {
	mu     sync.RWMutex
	path   string
	logger zerolog.Logger
	tables map[string]*table
	dirty  bool
}

// Open builds the declared tables and, when path is non-empty and the file
// exists, loads the snapshot found there. Opening a missing file is not an
// error: the store simply starts empty.
func Open(path string, schemas []Schema, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		logger: logger,
		tables: make(map[string]*table, len(schemas)),
	}
	for _, sc := range schemas {
		t := &table{
			schema:  sc,
			rows:    make(map[int64]json.RawMessage),
			indexes: make(map[string]map[string][]int64, len(sc.Indexes)),
		}
		for _, f := range sc.Indexes {
			t.indexes[f] = make(map[string][]int64)
		}
		s.tables[sc.Name] = t
	}
	if path != "" {
		if err := s.load(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// View runs fn inside a read-only transaction.
func (s *Store) View(fn func(tx *Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&Tx{s: s})
}

// Update runs fn inside a writable transaction. Mutations are staged in an
// overlay and applied to the base tables only when fn returns nil; any error
// discards the overlay, so a failure partway through a multi-table operation
// leaves no partial state. Auto-increment ids handed out by a rolled-back
// transaction are burned, never reused.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Tx{s: s, writable: true, pending: make(map[string]map[int64]pendingRow)}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	s.dirty = true
	return nil
}

// Flush writes a snapshot to the configured path using a temp-file rename,
// so a crash mid-write never corrupts the previous snapshot. A store opened
// without a path ignores Flush. The dirty mark is cleared under the same
// lock that takes the snapshot: a commit landing while the file is being
// written re-dirties the store and is picked up by the next flush.
func (s *Store) Flush() error {
	if s.path == "" {
		return nil
	}
	s.mu.Lock()
	snap := s.snapshot()
	s.dirty = false
	s.mu.Unlock()

	if err := s.writeSnapshot(snap); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) writeSnapshot(snap diskSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// Close flushes pending changes when the store is file-backed.
func (s *Store) Close() error {
	s.mu.RLock()
	dirty := s.dirty
	s.mu.RUnlock()
	if !dirty {
		return nil
	}
	return s.Flush()
}

type diskSnapshot struct {
	Version  int                                   `json:"version"`
	Counters map[string]int64                      `json:"counters"`
	Tables   map[string]map[string]json.RawMessage `json:"tables"`
}

func (s *Store) snapshot() diskSnapshot {
	snap := diskSnapshot{
		Version:  Version,
		Counters: make(map[string]int64, len(s.tables)),
		Tables:   make(map[string]map[string]json.RawMessage, len(s.tables)),
	}
	for name, t := range s.tables {
		snap.Counters[name] = t.nextID
		rows := make(map[string]json.RawMessage, len(t.rows))
		for id, raw := range t.rows {
			rows[strconv.FormatInt(id, 10)] = raw
		}
		snap.Tables[name] = rows
	}
	return snap
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	var snap diskSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version > Version {
		return fmt.Errorf("%w: snapshot v%d, build v%d", ErrVersion, snap.Version, Version)
	}
	for name, rows := range snap.Tables {
		t, ok := s.tables[name]
		if !ok {
			// Table dropped from the schema; its rows are left behind on
			// disk until the next flush.
			s.logger.Warn().Str("table", name).Msg("snapshot table not in schema, skipping")
			continue
		}
		for key, raw := range rows {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return fmt.Errorf("decode snapshot id %q in %s: %w", key, name, err)
			}
			t.rows[id] = raw
			t.index(id, raw)
			if id >= t.nextID {
				t.nextID = id + 1
			}
		}
	}
	for name, next := range snap.Counters {
		if t, ok := s.tables[name]; ok && next > t.nextID {
			t.nextID = next
		}
	}
	s.logger.Info().Str("path", s.path).Int("version", snap.Version).Msg("snapshot loaded")
	return nil
}

// index adds id to every declared index of the table, extracting the indexed
// fields from the row's JSON encoding.
func (t *table) index(id int64, raw json.RawMessage) {
	if len(t.indexes) == 0 {
		return
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return
	}
	for field, bucket := range t.indexes {
		v, ok := fields[field]
		if !ok || v == nil {
			continue
		}
		key := encodeKey(v)
		bucket[key] = append(bucket[key], id)
	}
}

func (t *table) unindex(id int64, raw json.RawMessage) {
	if len(t.indexes) == 0 {
		return
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return
	}
	for field, bucket := range t.indexes {
		v, ok := fields[field]
		if !ok || v == nil {
			continue
		}
		key := encodeKey(v)
		ids := bucket[key]
		for i, x := range ids {
			if x == id {
				bucket[key] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(bucket[key]) == 0 {
			delete(bucket, key)
		}
	}
}

// encodeKey canonicalizes an index key. Numbers collapse to their float64
// JSON representation so that int64 query keys match unmarshaled rows, and
// times collapse to their RFC 3339 encoding.
func encodeKey(v any) string {
	switch x := v.(type) {
	case string:
		return "s:" + x
	case bool:
		return "b:" + strconv.FormatBool(x)
	case float64:
		return "n:" + strconv.FormatFloat(x, 'g', -1, 64)
	case int:
		return "n:" + strconv.FormatFloat(float64(x), 'g', -1, 64)
	case int64:
		return "n:" + strconv.FormatFloat(float64(x), 'g', -1, 64)
	case time.Time:
		return "s:" + x.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("v:%v", x)
	}
}

type pendingRow struct {
	raw     json.RawMessage
	deleted bool
}

// Tx is a transaction handle. Read methods see the staged overlay layered
// over the base tables; write methods are only legal inside Update.
type Tx struct {
	s        *Store
	writable bool
	pending  map[string]map[int64]pendingRow
}

func (tx *Tx) table(name string) (*table, error) {
	t, ok := tx.s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return t, nil
}

func (tx *Tx) stage(name string) map[int64]pendingRow {
	m, ok := tx.pending[name]
	if !ok {
		m = make(map[int64]pendingRow)
		tx.pending[name] = m
	}
	return m
}

// Insert marshals v, assigns the next id for the table, and stages the row.
func (tx *Tx) Insert(name string, v any) (int64, error) {
	if !tx.writable {
		return 0, ErrReadOnly
	}
	t, err := tx.table(name)
	if err != nil {
		return 0, err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("marshal %s row: %w", name, err)
	}
	id := t.nextID
	t.nextID++
	tx.stage(name)[id] = pendingRow{raw: raw}
	return id, nil
}

// Get unmarshals the row with the given id into out. The boolean reports
// whether the row exists.
func (tx *Tx) Get(name string, id int64, out any) (bool, error) {
	t, err := tx.table(name)
	if err != nil {
		return false, err
	}
	raw, ok := tx.lookup(t, name, id)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode %s row %d: %w", name, id, err)
	}
	return true, nil
}

func (tx *Tx) lookup(t *table, name string, id int64) (json.RawMessage, bool) {
	if m, ok := tx.pending[name]; ok {
		if pr, ok := m[id]; ok {
			if pr.deleted {
				return nil, false
			}
			return pr.raw, true
		}
	}
	raw, ok := t.rows[id]
	return raw, ok
}

// Put replaces the row with the given id. The row must exist.
func (tx *Tx) Put(name string, id int64, v any) error {
	if !tx.writable {
		return ErrReadOnly
	}
	t, err := tx.table(name)
	if err != nil {
		return err
	}
	if _, ok := tx.lookup(t, name, id); !ok {
		return fmt.Errorf("%w: %s/%d", ErrNoRow, name, id)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s row: %w", name, err)
	}
	tx.stage(name)[id] = pendingRow{raw: raw}
	return nil
}

// Delete stages removal of the row. Deleting an absent row is a no-op.
func (tx *Tx) Delete(name string, id int64) error {
	if !tx.writable {
		return ErrReadOnly
	}
	t, err := tx.table(name)
	if err != nil {
		return err
	}
	if _, ok := tx.lookup(t, name, id); !ok {
		return nil
	}
	tx.stage(name)[id] = pendingRow{deleted: true}
	return nil
}

// Count returns the number of live rows in the table.
func (tx *Tx) Count(name string) (int, error) {
	t, err := tx.table(name)
	if err != nil {
		return 0, err
	}
	n := len(t.rows)
	for id, pr := range tx.pending[name] {
		_, inBase := t.rows[id]
		switch {
		case pr.deleted && inBase:
			n--
		case !pr.deleted && !inBase:
			n++
		}
	}
	return n, nil
}

// Scan visits every live row in ascending id order. The callback returns
// false to stop early.
func (tx *Tx) Scan(name string, fn func(id int64, raw json.RawMessage) (bool, error)) error {
	t, err := tx.table(name)
	if err != nil {
		return err
	}
	ids := tx.liveIDs(t, name)
	for _, id := range ids {
		raw, _ := tx.lookup(t, name, id)
		cont, err := fn(id, raw)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func (tx *Tx) liveIDs(t *table, name string) []int64 {
	ids := make([]int64, 0, len(t.rows))
	overlay := tx.pending[name]
	for id := range t.rows {
		if pr, ok := overlay[id]; ok && pr.deleted {
			continue
		}
		ids = append(ids, id)
	}
	for id, pr := range overlay {
		if _, inBase := t.rows[id]; !inBase && !pr.deleted {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ScanIndex visits rows whose indexed field equals key, in ascending id
// order. The field must be declared in the table's schema.
func (tx *Tx) ScanIndex(name, field string, key any, fn func(id int64, raw json.RawMessage) (bool, error)) error {
	t, err := tx.table(name)
	if err != nil {
		return err
	}
	bucket, ok := t.indexes[field]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownIndex, name, field)
	}
	want := encodeKey(key)

	seen := make(map[int64]bool)
	var ids []int64
	for _, id := range bucket[want] {
		if pr, ok := tx.pending[name][id]; ok {
			if pr.deleted || !rowMatches(pr.raw, field, want) {
				continue
			}
		}
		ids = append(ids, id)
		seen[id] = true
	}
	// Staged rows are not in the base index yet.
	for id, pr := range tx.pending[name] {
		if seen[id] || pr.deleted {
			continue
		}
		if rowMatches(pr.raw, field, want) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		raw, ok := tx.lookup(t, name, id)
		if !ok {
			continue
		}
		cont, err := fn(id, raw)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func rowMatches(raw json.RawMessage, field, want string) bool {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return false
	}
	v, ok := fields[field]
	if !ok || v == nil {
		return false
	}
	return encodeKey(v) == want
}

// ScanRange visits rows whose indexed field falls in [lo, hi), in ascending
// id order. A nil bound is unbounded. Bounds of type time.Time compare the
// row value as a timestamp; numeric bounds compare numerically.
func (tx *Tx) ScanRange(name, field string, lo, hi any, fn func(id int64, raw json.RawMessage) (bool, error)) error {
	t, err := tx.table(name)
	if err != nil {
		return err
	}
	if _, ok := t.indexes[field]; !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownIndex, name, field)
	}
	return tx.Scan(name, func(id int64, raw json.RawMessage) (bool, error) {
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return true, nil
		}
		v, ok := fields[field]
		if !ok || v == nil {
			return true, nil
		}
		if lo != nil {
			c, ok := compare(v, lo)
			if !ok || c < 0 {
				return true, nil
			}
		}
		if hi != nil {
			c, ok := compare(v, hi)
			if !ok || c >= 0 {
				return true, nil
			}
		}
		return fn(id, raw)
	})
}

// compare orders a decoded row value against a Go-typed bound. It returns
// ok=false when the two are not comparable.
func compare(rowVal, bound any) (int, bool) {
	switch b := bound.(type) {
	case time.Time:
		s, ok := rowVal.(string)
		if !ok {
			return 0, false
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return 0, false
		}
		switch {
		case t.Before(b):
			return -1, true
		case t.After(b):
			return 1, true
		default:
			return 0, true
		}
	case string:
		s, ok := rowVal.(string)
		if !ok {
			return 0, false
		}
		switch {
		case s < b:
			return -1, true
		case s > b:
			return 1, true
		default:
			return 0, true
		}
	default:
		f, ok := toFloat(rowVal)
		if !ok {
			return 0, false
		}
		bf, ok := toFloat(bound)
		if !ok {
			return 0, false
		}
		switch {
		case f < bf:
			return -1, true
		case f > bf:
			return 1, true
		default:
			return 0, true
		}
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	default:
		return 0, false
	}
}

// commit applies the staged overlay to the base tables and maintains the
// secondary indexes. Called with the write lock held.
func (tx *Tx) commit() {
	for name, overlay := range tx.pending {
		t := tx.s.tables[name]
		for id, pr := range overlay {
			if old, ok := t.rows[id]; ok {
				t.unindex(id, old)
			}
			if pr.deleted {
				delete(t.rows, id)
				continue
			}
			t.rows[id] = pr.raw
			t.index(id, pr.raw)
		}
	}
}
