package store

import (
	"fmt"
	"time"

	schemapkg "github.com/arkilian/ember/pkg/schema"
)

// MemoryStore is an in-memory Store implementation. It is the store used by
// this module's own session, store and metadata tests since it
// lets test setup construct arbitrary store states without a real database
// file, matching the teacher repo's habit of pairing a real backing
// implementation with a lightweight in-memory test double
// (mattn/go-sqlite3-backed SQLiteStore vs. this one).
type MemoryStore struct {
	tables map[string]*MemoryTable
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*MemoryTable)}
}

func (s *MemoryStore) GetTable(name string) (Table, bool) {
	t, ok := s.tables[name]
	if !ok {
		return nil, false
	}
	return t, true
}

func (s *MemoryStore) GetOrAddTable(name string) (Table, error) {
	t, ok := s.tables[name]
	if !ok {
		t = &MemoryTable{name: name}
		s.tables[name] = t
	}
	return t, nil
}

func (s *MemoryStore) RemoveTable(name string) error {
	delete(s.tables, name)
	return nil
}

func (s *MemoryStore) TableNames() []string {
	names := make([]string, 0, len(s.tables))
	for n := range s.tables {
		names = append(names, n)
	}
	return names
}

// Begin, Commit, and Rollback satisfy session.Transactor trivially: the
// in-memory store has no on-disk state for a transaction to protect, so
// rollback of the store itself is not needed here (tests that exercise
// rollback semantics do so against the in-memory schema/version snapshot the
// session layer keeps, not against MemoryStore).
func (s *MemoryStore) Begin() error    { return nil }
func (s *MemoryStore) Commit() error   { return nil }
func (s *MemoryStore) Rollback() error { return nil }

// memColumn describes one column of a MemoryTable.
type memColumn struct {
	name        string
	typ         schemapkg.PropertyType
	nullable    bool
	indexed     bool
	linkTarget  string
	isLink      bool
}

// memRow holds one cell per column, indexed the same as the table's columns.
type memRow map[int]interface{}

// MemoryTable is the in-memory Table implementation backing MemoryStore.
type MemoryTable struct {
	name    string
	columns []memColumn
	rows    []memRow
}

func (t *MemoryTable) Name() string        { return t.name }
func (t *MemoryTable) ColumnCount() int     { return len(t.columns) }
func (t *MemoryTable) ColumnName(i int) string { return t.columns[i].name }
func (t *MemoryTable) ColumnType(i int) schemapkg.PropertyType {
	return t.columns[i].typ
}

func (t *MemoryTable) ColumnIndex(name string) (int, bool) {
	for i, c := range t.columns {
		if c.name == name {
			return i, true
		}
	}
	return 0, false
}

func (t *MemoryTable) HasSearchIndex(i int) bool { return t.columns[i].indexed }
func (t *MemoryTable) IsNullable(i int) bool      { return t.columns[i].nullable }

func (t *MemoryTable) LinkTarget(i int) (string, bool) {
	c := t.columns[i]
	if !c.isLink {
		return "", false
	}
	return c.linkTarget, true
}

func (t *MemoryTable) insertColumnAt(i int, c memColumn, zero interface{}) {
	t.columns = append(t.columns, memColumn{})
	copy(t.columns[i+1:], t.columns[i:])
	t.columns[i] = c

	for r := range t.rows {
		newRow := make(memRow, len(t.rows[r])+1)
		for col, v := range t.rows[r] {
			if col >= i {
				newRow[col+1] = v
			} else {
				newRow[col] = v
			}
		}
		if zero != nil {
			newRow[i] = zero
		}
		t.rows[r] = newRow
	}
}

func (t *MemoryTable) InsertColumn(i int, typ schemapkg.PropertyType, name string, nullable bool) error {
	t.insertColumnAt(i, memColumn{name: name, typ: typ, nullable: nullable}, zeroValueFor(typ))
	return nil
}

func (t *MemoryTable) InsertColumnLink(i int, typ schemapkg.PropertyType, name string, targetTable string) error {
	t.insertColumnAt(i, memColumn{name: name, typ: typ, nullable: typ == schemapkg.Object, isLink: true, linkTarget: targetTable}, nil)
	return nil
}

func (t *MemoryTable) RemoveColumn(i int) error {
	t.columns = append(t.columns[:i], t.columns[i+1:]...)
	for r := range t.rows {
		newRow := make(memRow, len(t.rows[r]))
		for col, v := range t.rows[r] {
			switch {
			case col < i:
				newRow[col] = v
			case col > i:
				newRow[col-1] = v
			}
		}
		t.rows[r] = newRow
	}
	return nil
}

func (t *MemoryTable) RenameColumn(i int, newName string) error {
	t.columns[i].name = newName
	return nil
}

func (t *MemoryTable) AddSearchIndex(i int) error {
	typ := t.columns[i].typ
	if typ != schemapkg.Int && typ != schemapkg.Bool && typ != schemapkg.String && typ != schemapkg.Date {
		return fmt.Errorf("store: indexing properties of type %s is not supported", typ)
	}
	t.columns[i].indexed = true
	return nil
}

func (t *MemoryTable) RemoveSearchIndex(i int) error {
	t.columns[i].indexed = false
	return nil
}

func (t *MemoryTable) Size() int     { return len(t.rows) }
func (t *MemoryTable) IsEmpty() bool { return len(t.rows) == 0 }

func (t *MemoryTable) AddEmptyRow() (int, error) {
	row := make(memRow, len(t.columns))
	for i, c := range t.columns {
		row[i] = zeroValueFor(c.typ)
	}
	t.rows = append(t.rows, row)
	return len(t.rows) - 1, nil
}

func zeroValueFor(t schemapkg.PropertyType) interface{} {
	switch t {
	case schemapkg.Int:
		return int64(0)
	case schemapkg.Bool:
		return false
	case schemapkg.Float:
		return float32(0)
	case schemapkg.Double:
		return float64(0)
	case schemapkg.String:
		return ""
	case schemapkg.Data:
		return []byte(nil)
	case schemapkg.Date:
		return time.Time{}
	default:
		return nil
	}
}

func (t *MemoryTable) GetInt(col, row int) int64 {
	v, _ := t.rows[row][col].(int64)
	return v
}
func (t *MemoryTable) SetInt(col, row int, v int64) { t.rows[row][col] = v }

func (t *MemoryTable) GetBool(col, row int) bool {
	v, _ := t.rows[row][col].(bool)
	return v
}
func (t *MemoryTable) SetBool(col, row int, v bool) { t.rows[row][col] = v }

func (t *MemoryTable) GetFloat(col, row int) float32 {
	v, _ := t.rows[row][col].(float32)
	return v
}
func (t *MemoryTable) SetFloat(col, row int, v float32) { t.rows[row][col] = v }

func (t *MemoryTable) GetDouble(col, row int) float64 {
	v, _ := t.rows[row][col].(float64)
	return v
}
func (t *MemoryTable) SetDouble(col, row int, v float64) { t.rows[row][col] = v }

func (t *MemoryTable) GetString(col, row int) string {
	v, _ := t.rows[row][col].(string)
	return v
}
func (t *MemoryTable) SetString(col, row int, v string) { t.rows[row][col] = v }

func (t *MemoryTable) GetData(col, row int) []byte {
	v, _ := t.rows[row][col].([]byte)
	return v
}
func (t *MemoryTable) SetData(col, row int, v []byte) { t.rows[row][col] = v }

func (t *MemoryTable) GetDate(col, row int) time.Time {
	v, _ := t.rows[row][col].(time.Time)
	return v
}
func (t *MemoryTable) SetDate(col, row int, v time.Time) { t.rows[row][col] = v }

func (t *MemoryTable) GetAny(col, row int) interface{} { return t.rows[row][col] }
func (t *MemoryTable) SetAny(col, row int, v interface{}) { t.rows[row][col] = v }

func (t *MemoryTable) DistinctCount(col int) (int, error) {
	seen := make(map[interface{}]struct{}, len(t.rows))
	for _, row := range t.rows {
		v := row[col]
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		seen[v] = struct{}{}
	}
	return len(seen), nil
}
