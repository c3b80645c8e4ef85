// Package metadata implements the two fixed internal tables that carry
// schema state across sessions: the single-row schema-version table and the
// (object_type -> primary key property) map. User object tables are
// identified by the "class_" prefix; these two tables (plus the diagnostic
// schema_history table) are the only tables this core itself manages.
package metadata

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/arkilian/ember/internal/store"
	schemapkg "github.com/arkilian/ember/pkg/schema"
	"github.com/golang/snappy"
)

const (
	// TableNamePrefix is the sole discriminator between user tables and
	// internal tables.
	TableNamePrefix = "class_"

	versionTableName  = "metadata"
	versionColumnName = "version"

	pkTableName         = "pk"
	pkObjectTypeColumn  = "pk_table"
	pkPropertyColumn    = "pk_property"

	historyTableName    = "schema_history"
	historyVersionCol   = "version"
	historySnapshotCol  = "snapshot"
	historyCreatedAtCol = "created_at"
)

// NotVersioned is the sentinel marking an uninitialized version table.
const NotVersioned uint64 = ^uint64(0)

// TableName returns the "class_"-prefixed store table name for an object
// type.
func TableName(objectType string) string {
	return TableNamePrefix + objectType
}

// ObjectTypeForTableName returns the object type for a store table name, and
// ok=false if name does not carry the user-table prefix (i.e. it is an
// internal table and should be ignored by this core).
func ObjectTypeForTableName(name string) (string, bool) {
	if len(name) <= len(TableNamePrefix) || name[:len(TableNamePrefix)] != TableNamePrefix {
		return "", false
	}
	return name[len(TableNamePrefix):], true
}

// EnsureTables creates the version and PK map tables if they do not already
// exist, idempotently, and seeds the version table with NotVersioned.
func EnsureTables(s store.Store) error {
	pkTable, err := s.GetOrAddTable(pkTableName)
	if err != nil {
		return fmt.Errorf("metadata: failed to create pk table: %w", err)
	}
	if pkTable.ColumnCount() == 0 {
		if err := pkTable.InsertColumn(0, schemapkg.String, pkObjectTypeColumn, false); err != nil {
			return err
		}
		if err := pkTable.InsertColumn(1, schemapkg.String, pkPropertyColumn, false); err != nil {
			return err
		}
	}

	versionTable, err := s.GetOrAddTable(versionTableName)
	if err != nil {
		return fmt.Errorf("metadata: failed to create version table: %w", err)
	}
	if versionTable.ColumnCount() == 0 {
		if err := versionTable.InsertColumn(0, schemapkg.Int, versionColumnName, false); err != nil {
			return err
		}
		if _, err := versionTable.AddEmptyRow(); err != nil {
			return err
		}
		notVersioned := NotVersioned
		versionTable.SetInt(0, 0, int64(notVersioned))
	}

	return nil
}

// GetVersion returns the persisted schema version, or NotVersioned if the
// version table has not been initialized yet.
func GetVersion(s store.Store) uint64 {
	t, ok := s.GetTable(versionTableName)
	if !ok || t.ColumnCount() == 0 {
		return NotVersioned
	}
	return uint64(t.GetInt(0, 0))
}

// SetVersion persists the schema version.
func SetVersion(s store.Store, version uint64) error {
	t, err := s.GetOrAddTable(versionTableName)
	if err != nil {
		return err
	}
	if t.ColumnCount() == 0 {
		if err := t.InsertColumn(0, schemapkg.Int, versionColumnName, false); err != nil {
			return err
		}
		if _, err := t.AddEmptyRow(); err != nil {
			return err
		}
	}
	t.SetInt(0, 0, int64(version))
	return nil
}

// GetPrimaryKey returns the persisted primary-key property name for an
// object type, or "" if none is set.
func GetPrimaryKey(s store.Store, objectType string) string {
	t, ok := s.GetTable(pkTableName)
	if !ok {
		return ""
	}
	row := findPKRow(t, objectType)
	if row < 0 {
		return ""
	}
	return t.GetString(1, row)
}

// SetPrimaryKey persists the primary-key binding for objectType. Setting an
// empty primaryKey deletes the row (the Store contract here models deletion
// as truncating the value to empty — the applier never reads a blank row as
// a meaningful binding, matching the original's "remove on empty" behavior
// without requiring arbitrary row removal from the Table contract).
func SetPrimaryKey(s store.Store, objectType, primaryKey string) error {
	t, err := s.GetOrAddTable(pkTableName)
	if err != nil {
		return err
	}
	row := findPKRow(t, objectType)
	if row < 0 {
		if primaryKey == "" {
			return nil
		}
		newRow, err := t.AddEmptyRow()
		if err != nil {
			return err
		}
		t.SetString(0, newRow, objectType)
		t.SetString(1, newRow, primaryKey)
		return nil
	}
	t.SetString(1, row, primaryKey)
	return nil
}

func findPKRow(t store.Table, objectType string) int {
	for r := 0; r < t.Size(); r++ {
		if t.GetString(0, r) == objectType {
			return r
		}
	}
	return -1
}

// RecordHistory appends a diagnostic snapshot of schema s at version to the
// schema_history table: a snappy-compressed JSON encoding plus a unix
// timestamp. This table is purely additive and is never consulted by
// apply() — it exists only so an operator can inspect how a file's schema
// evolved over time, the same role the teacher's schema_versions table
// plays for partition schemas.
func RecordHistory(s store.Store, s2 schemapkg.Schema, version uint64, now time.Time) error {
	t, err := s.GetOrAddTable(historyTableName)
	if err != nil {
		return fmt.Errorf("metadata: failed to create schema_history table: %w", err)
	}
	if t.ColumnCount() == 0 {
		if err := t.InsertColumn(0, schemapkg.Int, historyVersionCol, false); err != nil {
			return err
		}
		if err := t.InsertColumn(1, schemapkg.Data, historySnapshotCol, false); err != nil {
			return err
		}
		if err := t.InsertColumn(2, schemapkg.Int, historyCreatedAtCol, false); err != nil {
			return err
		}
	}

	snapshot, err := encodeSnapshot(s2)
	if err != nil {
		return fmt.Errorf("metadata: failed to encode schema snapshot: %w", err)
	}

	row, err := t.AddEmptyRow()
	if err != nil {
		return err
	}
	t.SetInt(0, row, int64(version))
	t.SetData(1, row, snapshot)
	t.SetInt(2, row, now.Unix())
	return nil
}

// snapshotDTO is the JSON shape written to schema_history; a plain mirror of
// schema.ObjectSchema/Property so the history format is decoupled from the
// in-memory representation.
type snapshotDTO struct {
	Objects []objectDTO `json:"objects"`
}

type objectDTO struct {
	Name       string       `json:"name"`
	PrimaryKey string       `json:"primary_key,omitempty"`
	Properties []propertyDTO `json:"properties"`
}

type propertyDTO struct {
	Name       string `json:"name"`
	Type       int    `json:"type"`
	ObjectType string `json:"object_type,omitempty"`
	LinkOrigin string `json:"link_origin,omitempty"`
	Primary    bool   `json:"primary,omitempty"`
	Indexed    bool   `json:"indexed,omitempty"`
	Nullable   bool   `json:"nullable,omitempty"`
}

func encodeSnapshot(s schemapkg.Schema) ([]byte, error) {
	dto := snapshotDTO{}
	for _, o := range s.Objects() {
		od := objectDTO{Name: o.Name, PrimaryKey: o.PrimaryKey}
		for _, p := range o.AllProperties() {
			od.Properties = append(od.Properties, propertyDTO{
				Name: p.Name, Type: int(p.Type), ObjectType: p.ObjectType,
				LinkOrigin: p.LinkOriginPropertyName, Primary: p.IsPrimary,
				Indexed: p.IsIndexed, Nullable: p.IsNullable,
			})
		}
		dto.Objects = append(dto.Objects, od)
	}
	raw, err := json.Marshal(dto)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw), nil
}
