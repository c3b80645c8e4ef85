package session

import (
	"fmt"

	"github.com/arkilian/ember/internal/metadata"
	"github.com/arkilian/ember/internal/ordererr"
	"github.com/arkilian/ember/internal/store"
	schemapkg "github.com/arkilian/ember/pkg/schema"
)

// insertColumnAt inserts a column for p at position i in t. Link kinds
// (Object, Array) attach to (creating, if necessary) the target table;
// scalar kinds get a typed column, indexed if p.RequiresIndex().
func insertColumnAt(s store.Store, t store.Table, i int, p schemapkg.Property) error {
	if p.Type == schemapkg.Object || p.Type == schemapkg.Array {
		if _, err := s.GetOrAddTable(metadata.TableName(p.ObjectType)); err != nil {
			return err
		}
		return t.InsertColumnLink(i, p.Type, p.Name, metadata.TableName(p.ObjectType))
	}

	if err := t.InsertColumn(i, p.Type, p.Name, p.IsNullable); err != nil {
		return err
	}
	if p.RequiresIndex() {
		if !p.IsIndexable() {
			return ordererr.IndexNotSupportedForType(t.Name(), p.Name, p.Type)
		}
		if err := t.AddSearchIndex(i); err != nil {
			return err
		}
	}
	return nil
}

// appendColumn inserts a column for p at the end of t, returning its index.
func appendColumn(s store.Store, t store.Table, p schemapkg.Property) (int, error) {
	i := t.ColumnCount()
	if err := insertColumnAt(s, t, i, p); err != nil {
		return 0, err
	}
	return i, nil
}

// replaceColumn inserts a column for newProp at position i, shifting the
// existing column at i (and everything after it) up by one, then removes
// what is now the old column at i+1. The original implementation asserts
// this shift before removing; a violation means the store's InsertColumn
// contract isn't behaving as a plain positional insert, which is a store bug
// rather than a user error, hence the panic rather than an error return.
func replaceColumn(s store.Store, t store.Table, i int, oldName string, newProp schemapkg.Property) error {
	if err := insertColumnAt(s, t, i, newProp); err != nil {
		return err
	}
	// Checked by position rather than ColumnIndex(oldName): the new column
	// usually carries the same name and would be found first, at i.
	if i+1 >= t.ColumnCount() || t.ColumnName(i+1) != oldName {
		panic(fmt.Sprintf("session: replaceColumn invariant violated: expected %q to land at %d after inserting %q", oldName, i+1, newProp.Name))
	}
	return t.RemoveColumn(i + 1)
}

// makeOptional rebuilds column i as a nullable column at the same logical
// position, copying every row's existing value through a type-dispatched
// getter/setter pair, then removes the old column. Only defined for scalar
// types; link kinds never reach here (Object is already always nullable per
// the validator, Array is never nullable). Goes through insertColumnAt
// rather than t.InsertColumn directly so a rebuilt indexed or primary-key
// column keeps its search index instead of silently losing it.
func makeOptional(s store.Store, t store.Table, i int, p schemapkg.Property) error {
	p.IsNullable = true
	if err := insertColumnAt(s, t, i, p); err != nil {
		return err
	}
	copyColumnValues(t, i+1, i, p.Type)
	return t.RemoveColumn(i + 1)
}

// makeRequired rebuilds column i as a non-nullable column, discarding
// existing values (every row gets the type's zero value). Same
// index-preservation rationale as makeOptional.
func makeRequired(s store.Store, t store.Table, i int, p schemapkg.Property) error {
	p.IsNullable = false
	if err := insertColumnAt(s, t, i, p); err != nil {
		return err
	}
	return t.RemoveColumn(i + 1)
}

// copyColumnValues copies every row's value from src to dst within the same
// table, dispatching on the scalar type.
func copyColumnValues(t store.Table, src, dst int, typ schemapkg.PropertyType) {
	for r := 0; r < t.Size(); r++ {
		switch typ {
		case schemapkg.Int:
			t.SetInt(dst, r, t.GetInt(src, r))
		case schemapkg.Bool:
			t.SetBool(dst, r, t.GetBool(src, r))
		case schemapkg.Float:
			t.SetFloat(dst, r, t.GetFloat(src, r))
		case schemapkg.Double:
			t.SetDouble(dst, r, t.GetDouble(src, r))
		case schemapkg.String:
			t.SetString(dst, r, t.GetString(src, r))
		case schemapkg.Data:
			t.SetData(dst, r, t.GetData(src, r))
		case schemapkg.Date:
			t.SetDate(dst, r, t.GetDate(src, r))
		case schemapkg.Any:
			t.SetAny(dst, r, t.GetAny(src, r))
		}
	}
}

// refreshColumnIndices re-reads every persisted property's column index by
// name from the store, the only point at which a Property's ColumnIndex is
// trusted; it must never be cached across mutation steps (see design notes on
// column-index churn).
func refreshColumnIndices(s store.Store, sch schemapkg.Schema) schemapkg.Schema {
	objects := make([]schemapkg.ObjectSchema, 0, sch.Len())
	for _, o := range sch.Objects() {
		t, ok := s.GetTable(metadata.TableName(o.Name))
		if !ok {
			objects = append(objects, o)
			continue
		}
		for i := range o.PersistedProperties {
			if idx, ok := t.ColumnIndex(o.PersistedProperties[i].Name); ok {
				o.PersistedProperties[i].ColumnIndex = idx
			}
		}
		objects = append(objects, o)
	}
	return schemapkg.New(objects...)
}
