package session

import (
	"github.com/arkilian/ember/internal/metadata"
	"github.com/arkilian/ember/internal/store"
	schemapkg "github.com/arkilian/ember/pkg/schema"
)

// deriveSchema reads the current on-disk shape back into a schema.Schema: one
// ObjectSchema per "class_"-prefixed table, one Property per column. Column
// indices are stamped onto each property, matching the design note that
// column indices are refreshed by re-reading from the store rather than
// cached across mutation steps.
//
// The store carries no representation of LinkingObjects (they are pure
// inverse-link views, never persisted as columns), so a derived schema always
// has empty ComputedProperties; callers that need the declared LinkingObjects
// shape merge it in from the target schema via mergeComputed.
func deriveSchema(s store.Store) (schemapkg.Schema, error) {
	var objects []schemapkg.ObjectSchema

	for _, name := range s.TableNames() {
		objectType, ok := metadata.ObjectTypeForTableName(name)
		if !ok {
			continue
		}
		t, _ := s.GetTable(name)
		objects = append(objects, deriveObjectSchema(s, t, objectType))
	}

	return schemapkg.New(objects...), nil
}

func deriveObjectSchema(s store.Store, t store.Table, objectType string) schemapkg.ObjectSchema {
	obj := schemapkg.ObjectSchema{Name: objectType, PrimaryKey: metadata.GetPrimaryKey(s, objectType)}

	for i := 0; i < t.ColumnCount(); i++ {
		p := schemapkg.Property{
			Name:        t.ColumnName(i),
			Type:        t.ColumnType(i),
			IsIndexed:   t.HasSearchIndex(i),
			IsNullable:  t.IsNullable(i),
			ColumnIndex: i,
		}
		if target, ok := t.LinkTarget(i); ok {
			p.ObjectType = target
		}
		if p.Name == obj.PrimaryKey {
			p.IsPrimary = true
		}
		obj.PersistedProperties = append(obj.PersistedProperties, p)
	}

	return obj
}

// mergeComputed copies target's ComputedProperties (LinkingObjects) onto the
// corresponding object in derived, since the store has nothing to derive
// them from.
func mergeComputed(derived schemapkg.Schema, target schemapkg.Schema) schemapkg.Schema {
	objects := make([]schemapkg.ObjectSchema, 0, derived.Len())
	for _, o := range derived.Objects() {
		if to := target.Find(o.Name); to != nil {
			o.ComputedProperties = to.ComputedProperties
		}
		objects = append(objects, o)
	}
	return schemapkg.New(objects...)
}
