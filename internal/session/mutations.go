package session

import (
	"github.com/arkilian/ember/internal/metadata"
	"github.com/arkilian/ember/internal/ordererr"
	schemapkg "github.com/arkilian/ember/pkg/schema"
)

// createTable adds a new, empty "class_"-prefixed table for obj, setting the
// primary key binding if one is declared. Its columns are added by the
// AddProperty changes the diff emits after AddTable, one per persisted
// property in declaration order.
func (s *Session) createTable(obj schemapkg.ObjectSchema) error {
	if _, err := s.store.GetOrAddTable(metadata.TableName(obj.Name)); err != nil {
		return err
	}
	if obj.PrimaryKey != "" {
		return metadata.SetPrimaryKey(s.store, obj.Name, obj.PrimaryKey)
	}
	return nil
}

// addPropertyToExistingTable appends one new column to an already-existing
// table, binding the primary key if p is the designated one.
func (s *Session) addPropertyToExistingTable(objectType string, p schemapkg.Property) error {
	t, err := s.store.GetOrAddTable(metadata.TableName(objectType))
	if err != nil {
		return err
	}
	if _, err := appendColumn(s.store, t, p); err != nil {
		return err
	}
	if p.IsPrimary {
		return metadata.SetPrimaryKey(s.store, objectType, p.Name)
	}
	return nil
}

// removeProperty drops a column for a property the target schema no longer
// declares. If it was the bound primary key, the PK map row is cleared too.
func (s *Session) removeProperty(objectType string, p schemapkg.Property) error {
	t, ok := s.store.GetTable(metadata.TableName(objectType))
	if !ok {
		return nil
	}
	i, ok := t.ColumnIndex(p.Name)
	if !ok {
		return nil
	}
	if metadata.GetPrimaryKey(s.store, objectType) == p.Name {
		if err := metadata.SetPrimaryKey(s.store, objectType, ""); err != nil {
			return err
		}
	}
	return t.RemoveColumn(i)
}

// changePropertyType replaces a column destructively: existing values are
// discarded (a type change has no defined value-preserving conversion in
// this design).
func (s *Session) changePropertyType(objectType string, oldProp, newProp schemapkg.Property) error {
	t, ok := s.store.GetTable(metadata.TableName(objectType))
	if !ok {
		return nil
	}
	i, ok := t.ColumnIndex(oldProp.Name)
	if !ok {
		return nil
	}
	return replaceColumn(s.store, t, i, oldProp.Name, newProp)
}

// makePropertyNullable widens a column to nullable, preserving values.
func (s *Session) makePropertyNullable(objectType string, p schemapkg.Property) error {
	t, ok := s.store.GetTable(metadata.TableName(objectType))
	if !ok {
		return nil
	}
	i, ok := t.ColumnIndex(p.Name)
	if !ok {
		return nil
	}
	return makeOptional(s.store, t, i, p)
}

// makePropertyRequired narrows a column to required, discarding values.
func (s *Session) makePropertyRequired(objectType string, p schemapkg.Property) error {
	t, ok := s.store.GetTable(metadata.TableName(objectType))
	if !ok {
		return nil
	}
	i, ok := t.ColumnIndex(p.Name)
	if !ok {
		return nil
	}
	return makeRequired(s.store, t, i, p)
}

// toggleIndex adds or removes a search index on p's column.
func (s *Session) toggleIndex(objectType string, p schemapkg.Property, on bool) error {
	t, ok := s.store.GetTable(metadata.TableName(objectType))
	if !ok {
		return nil
	}
	i, ok := t.ColumnIndex(p.Name)
	if !ok {
		return nil
	}
	if on {
		return t.AddSearchIndex(i)
	}
	return t.RemoveSearchIndex(i)
}

// setPrimaryKey binds objectType's primary key during initial table
// creation, where newPK is never nil (the column was just added above).
func (s *Session) setPrimaryKey(objectType string, newPK *schemapkg.Property) error {
	if newPK == nil {
		return metadata.SetPrimaryKey(s.store, objectType, "")
	}
	return metadata.SetPrimaryKey(s.store, objectType, newPK.Name)
}

// changePrimaryKey redirects or clears objectType's primary key binding
// during the pre-migration phase of an upgrade. Uniqueness of the new
// binding's values is checked later, post-migration, per Section 4.5 — this
// step only updates the binding and ensures the column carries a search
// index (primary keys are always indexed).
func (s *Session) changePrimaryKey(objectType string, newPK *schemapkg.Property) error {
	if newPK == nil {
		return metadata.SetPrimaryKey(s.store, objectType, "")
	}
	t, ok := s.store.GetTable(metadata.TableName(objectType))
	if ok {
		if i, ok := t.ColumnIndex(newPK.Name); ok && !t.HasSearchIndex(i) {
			if err := t.AddSearchIndex(i); err != nil {
				return err
			}
		}
	}
	return metadata.SetPrimaryKey(s.store, objectType, newPK.Name)
}

// enforcePrimaryKeyUniquenessAll checks, for every object in target with a
// bound primary key, that the column's values are distinct across all rows.
// A table with no rows yet trivially satisfies uniqueness — carried forward
// from original_source/ as an early return rather than issuing the
// distinct-count query at all.
func (s *Session) enforcePrimaryKeyUniquenessAll(target schemapkg.Schema) error {
	for _, obj := range target.Objects() {
		if obj.PrimaryKey == "" {
			continue
		}
		t, ok := s.store.GetTable(metadata.TableName(obj.Name))
		if !ok {
			continue
		}
		if t.Size() == 0 {
			continue
		}
		i, ok := t.ColumnIndex(obj.PrimaryKey)
		if !ok {
			continue
		}
		distinct, err := t.DistinctCount(i)
		if err != nil {
			return err
		}
		if distinct < t.Size() {
			return ordererr.DuplicatePrimaryKeyValue(obj.Name, obj.PrimaryKey)
		}
	}
	return nil
}

// renameProperty implements the rename_property contract from Section 6:
// forbids renaming across differing types/link targets, forbids renaming
// from a still-present target property, forbids a nullable->required step,
// and transparently widens required->nullable via a value-preserving
// rebuild, matched against the target schema's declared shape for newName
// (renameProperty runs only inside the callback window, where s.schema is
// already the new-shape target — see apply.go).
func (s *Session) renameProperty(objectType, oldName, newName string) error {
	t, ok := s.store.GetTable(metadata.TableName(objectType))
	if !ok {
		return ordererr.UnknownObjectType(objectType)
	}
	oldIdx, ok := t.ColumnIndex(oldName)
	if !ok {
		return ordererr.PropertyRenameRefused("property " + oldName + " does not exist")
	}
	if _, exists := t.ColumnIndex(newName); exists {
		return ordererr.PropertyRenameRefused("target property " + newName + " already exists")
	}

	if targetObj := s.schema.Find(objectType); targetObj != nil {
		if targetProp := targetObj.PropertyForName(newName); targetProp != nil {
			if targetProp.Type != t.ColumnType(oldIdx) {
				return ordererr.PropertyRenameRefused("cannot rename " + oldName + " to " + newName + ": types differ")
			}
			if link, hasLink := t.LinkTarget(oldIdx); hasLink && link != targetProp.ObjectType {
				return ordererr.PropertyRenameRefused("cannot rename " + oldName + " to " + newName + ": link targets differ")
			}

			oldNullable := t.IsNullable(oldIdx)
			if oldNullable && !targetProp.IsNullable {
				return ordererr.PropertyRenameRefused("cannot rename " + oldName + " to " + newName + ": nullable cannot become required via rename")
			}

			if err := t.RenameColumn(oldIdx, newName); err != nil {
				return err
			}
			if !oldNullable && targetProp.IsNullable {
				newIdx, _ := t.ColumnIndex(newName)
				if err := makeOptional(s.store, t, newIdx, *targetProp); err != nil {
					return err
				}
			}
			return s.rebindPrimaryKeyAfterRename(objectType, oldName, newName)
		}
	}

	if err := t.RenameColumn(oldIdx, newName); err != nil {
		return err
	}
	return s.rebindPrimaryKeyAfterRename(objectType, oldName, newName)
}

func (s *Session) rebindPrimaryKeyAfterRename(objectType, oldName, newName string) error {
	if metadata.GetPrimaryKey(s.store, objectType) != oldName {
		return nil
	}
	return metadata.SetPrimaryKey(s.store, objectType, newName)
}
