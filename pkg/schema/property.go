// Package schema provides the core data model for Ember's embedded object
// database: property descriptors, object schemas, and the schema container
// that the diff engine and applier operate over.
package schema

import "fmt"

// PropertyType is a tagged enumeration of the types a Property can hold.
// Numeric values are fixed: they double as the backing store's native column
// type tag, so a PropertyType can be cast directly to a store.ColumnType.
type PropertyType int

const (
	Int PropertyType = iota
	Bool
	Float
	Double
	String
	Data
	Date
	Any
	Object         // to-one link
	Array          // to-many link
	LinkingObjects // inverse-link, computed only
)

func (t PropertyType) String() string {
	switch t {
	case Int:
		return "Int"
	case Bool:
		return "Bool"
	case Float:
		return "Float"
	case Double:
		return "Double"
	case String:
		return "String"
	case Data:
		return "Data"
	case Date:
		return "Date"
	case Any:
		return "Any"
	case Object:
		return "Object"
	case Array:
		return "Array"
	case LinkingObjects:
		return "LinkingObjects"
	default:
		return fmt.Sprintf("PropertyType(%d)", int(t))
	}
}

// isLinkKind reports whether the type carries an object_type reference.
func (t PropertyType) isLinkKind() bool {
	return t == Object || t == Array || t == LinkingObjects
}

// Property is one typed attribute of an ObjectSchema; it becomes one column
// (persisted properties) or a derived view (LinkingObjects).
type Property struct {
	Name     string
	Type     PropertyType
	IsPrimary  bool
	IsIndexed  bool
	IsNullable bool

	// ObjectType names the target object type. Required iff Type is one of
	// Object, Array, LinkingObjects; forbidden otherwise.
	ObjectType string

	// LinkOriginPropertyName names the property on ObjectType that points
	// back at the schema declaring this property. Required iff
	// Type == LinkingObjects; forbidden otherwise.
	LinkOriginPropertyName string

	// ColumnIndex is transient: assigned by the store, refreshed after every
	// applier run. Never compared for schema equality.
	ColumnIndex int
}

// TypeIsNullable reports whether this property's type can ever be nullable:
// true for every scalar type and for Object (to-one links are inherently
// optional); false for Array and LinkingObjects.
func (p Property) TypeIsNullable() bool {
	switch p.Type {
	case Array, LinkingObjects:
		return false
	default:
		return true
	}
}

// IsIndexable reports whether the store can build a search index over this
// property's type.
func (p Property) IsIndexable() bool {
	switch p.Type {
	case Int, Bool, String, Date:
		return true
	default:
		return false
	}
}

// RequiresIndex reports whether the store must maintain a search index for
// this property, either because the caller asked for one or because it backs
// a primary key.
func (p Property) RequiresIndex() bool {
	return p.IsIndexed || p.IsPrimary
}

// Equal reports structural equality, ignoring the transient ColumnIndex.
func (p Property) Equal(o Property) bool {
	return p.Name == o.Name &&
		p.Type == o.Type &&
		p.IsPrimary == o.IsPrimary &&
		p.IsIndexed == o.IsIndexed &&
		p.IsNullable == o.IsNullable &&
		p.ObjectType == o.ObjectType &&
		p.LinkOriginPropertyName == o.LinkOriginPropertyName
}

// TypeChanged reports whether p and o differ in a way the diff engine
// classifies as ChangePropertyType: a different Type, or (for link kinds) a
// different target ObjectType.
func (p Property) TypeChanged(o Property) bool {
	if p.Type != o.Type {
		return true
	}
	if p.Type.isLinkKind() && p.ObjectType != o.ObjectType {
		return true
	}
	return false
}
