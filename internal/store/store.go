// Package store defines the narrow tabular-store contract the schema core
// consumes (Section 6 of the design), and provides two concrete backings:
// an in-memory Store used by tests and a SQLite-backed Store
// (github.com/mattn/go-sqlite3) used in production. The tabular store
// itself — tables, columns, rows, indexes, transactions — is explicitly out
// of scope for the schema core; this package is the "external collaborator"
// made concrete so the core is exercisable end to end.
package store

import (
	"time"

	schemapkg "github.com/arkilian/ember/pkg/schema"
)

// Store is the tabular store contract consumed by the metadata and session
// layers.
type Store interface {
	// GetTable returns the table with the given name, or ok=false if it does
	// not exist. Name includes any prefix (e.g. "class_Person").
	GetTable(name string) (Table, bool)

	// GetOrAddTable returns the table with the given name, creating an empty
	// one (zero columns) if it does not already exist.
	GetOrAddTable(name string) (Table, error)

	// RemoveTable drops a table entirely.
	RemoveTable(name string) error

	// TableNames returns every table name currently in the store, in no
	// particular order.
	TableNames() []string
}

// Table is one table in the backing store: an ordered list of columns and a
// set of rows.
type Table interface {
	Name() string

	ColumnCount() int
	ColumnName(i int) string
	ColumnType(i int) schemapkg.PropertyType
	ColumnIndex(name string) (int, bool)
	HasSearchIndex(i int) bool
	IsNullable(i int) bool
	// LinkTarget returns the target table name for a link column (Object or
	// Array), ok=false otherwise.
	LinkTarget(i int) (string, bool)

	// InsertColumn inserts a scalar column at position i.
	InsertColumn(i int, t schemapkg.PropertyType, name string, nullable bool) error
	// InsertColumnLink inserts a link column (Object or Array) at position i,
	// targeting targetTable (created if it does not yet exist).
	InsertColumnLink(i int, t schemapkg.PropertyType, name string, targetTable string) error
	RemoveColumn(i int) error
	RenameColumn(i int, newName string) error

	AddSearchIndex(i int) error
	RemoveSearchIndex(i int) error

	Size() int
	IsEmpty() bool
	AddEmptyRow() (int, error)

	GetInt(col, row int) int64
	SetInt(col, row int, v int64)
	GetBool(col, row int) bool
	SetBool(col, row int, v bool)
	GetFloat(col, row int) float32
	SetFloat(col, row int, v float32)
	GetDouble(col, row int) float64
	SetDouble(col, row int, v float64)
	GetString(col, row int) string
	SetString(col, row int, v string)
	GetData(col, row int) []byte
	SetData(col, row int, v []byte)
	GetDate(col, row int) time.Time
	SetDate(col, row int, v time.Time)
	GetAny(col, row int) interface{}
	SetAny(col, row int, v interface{})

	// DistinctCount returns the number of distinct values in col, used for
	// post-migration primary-key uniqueness checks.
	DistinctCount(col int) (int, error)
}
