// Package diff computes the ordered list of typed schema changes between a
// current and a target schema.Schema. It never mutates the store and never
// throws on content problems — callers are expected to have validated the
// target first.
package diff

import (
	schemapkg "github.com/arkilian/ember/pkg/schema"
)

// Kind identifies one of the nine schema-change variants.
type Kind int

const (
	AddTable Kind = iota
	AddProperty
	RemoveProperty
	ChangePropertyType
	MakePropertyNullable
	MakePropertyRequired
	AddIndex
	RemoveIndex
	ChangePrimaryKey
)

func (k Kind) String() string {
	switch k {
	case AddTable:
		return "AddTable"
	case AddProperty:
		return "AddProperty"
	case RemoveProperty:
		return "RemoveProperty"
	case ChangePropertyType:
		return "ChangePropertyType"
	case MakePropertyNullable:
		return "MakePropertyNullable"
	case MakePropertyRequired:
		return "MakePropertyRequired"
	case AddIndex:
		return "AddIndex"
	case RemoveIndex:
		return "RemoveIndex"
	case ChangePrimaryKey:
		return "ChangePrimaryKey"
	default:
		return "Unknown"
	}
}

// Change is one element of the schema-change algebra. Every field not
// meaningful for Kind is left at its zero value. Object/Property descriptors
// are copied into the change (not borrowed) so a Change list stays valid
// independently of the current/target schemas it was derived from — see
// design notes on change-record ownership.
type Change struct {
	Kind Kind

	Object schemapkg.ObjectSchema

	// Property is the change's primary property payload: the added/removed
	// property for AddProperty/RemoveProperty, the new shape for
	// MakePropertyNullable/MakePropertyRequired, the indexed property for
	// AddIndex/RemoveIndex.
	Property schemapkg.Property

	// OldProperty/NewProperty are populated only for ChangePropertyType.
	OldProperty schemapkg.Property
	NewProperty schemapkg.Property

	// NewPrimaryKey is populated only for ChangePrimaryKey; nil means the
	// primary key was removed.
	NewPrimaryKey *schemapkg.Property
}

// Changes is the ordered output of Diff.
type Changes []Change

// NeedsMigration reports whether any change in the list requires a
// migration: everything except AddTable, AddIndex, and RemoveIndex.
func NeedsMigration(changes Changes) bool {
	for _, c := range changes {
		switch c.Kind {
		case AddTable, AddIndex, RemoveIndex:
			continue
		default:
			return true
		}
	}
	return false
}

// Diff compares current against target and returns the ordered list of
// changes needed to bring current to target's shape. Both schemas are
// assumed to have already passed validator.Validate.
//
// As a fast path, Diff first compares fingerprints: if they match, it still
// confirms with a full Equal check before short-circuiting to an empty
// change list, since fingerprint equality does not itself guarantee
// structural equality.
func Diff(current, target schemapkg.Schema) Changes {
	if current.Fingerprint() == target.Fingerprint() && current.Equal(target) {
		return nil
	}

	var changes Changes
	for _, targetObj := range target.Objects() {
		currentObj := current.Find(targetObj.Name)
		if currentObj == nil {
			changes = append(changes, diffNewTable(targetObj)...)
			continue
		}
		changes = append(changes, diffObjectSchema(*currentObj, targetObj)...)
	}
	return changes
}

func diffNewTable(target schemapkg.ObjectSchema) Changes {
	changes := Changes{{Kind: AddTable, Object: target}}
	for _, p := range target.PersistedProperties {
		changes = append(changes, Change{Kind: AddProperty, Object: target, Property: p})
	}
	return changes
}

func diffObjectSchema(current, target schemapkg.ObjectSchema) Changes {
	var changes Changes

	// Walk current's properties first: removals, type changes, flag changes.
	for _, cp := range current.PersistedProperties {
		tp := findPersisted(target, cp.Name)
		if tp == nil {
			changes = append(changes, Change{Kind: RemoveProperty, Object: target, Property: cp})
			continue
		}
		if cp.TypeChanged(*tp) {
			changes = append(changes, Change{Kind: ChangePropertyType, Object: target, OldProperty: cp, NewProperty: *tp})
			continue
		}
		if cp.IsNullable != tp.IsNullable {
			if tp.IsNullable {
				changes = append(changes, Change{Kind: MakePropertyNullable, Object: target, Property: *tp})
			} else {
				changes = append(changes, Change{Kind: MakePropertyRequired, Object: target, Property: *tp})
			}
		}
		if cp.RequiresIndex() != tp.RequiresIndex() {
			if tp.RequiresIndex() {
				changes = append(changes, Change{Kind: AddIndex, Object: target, Property: *tp})
			} else {
				changes = append(changes, Change{Kind: RemoveIndex, Object: target, Property: *tp})
			}
		}
	}

	// Then walk target's properties for additions not present in current.
	for _, tp := range target.PersistedProperties {
		if findPersisted(current, tp.Name) == nil {
			changes = append(changes, Change{Kind: AddProperty, Object: target, Property: tp})
		}
	}

	if current.PrimaryKey != target.PrimaryKey {
		changes = append(changes, Change{Kind: ChangePrimaryKey, Object: target, NewPrimaryKey: target.PrimaryKeyProperty()})
	}

	return changes
}

func findPersisted(o schemapkg.ObjectSchema, name string) *schemapkg.Property {
	for i := range o.PersistedProperties {
		if o.PersistedProperties[i].Name == name {
			return &o.PersistedProperties[i]
		}
	}
	return nil
}
