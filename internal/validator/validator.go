// Package validator checks a candidate schema.Schema against the invariants
// every object schema, property, and link relationship must satisfy before
// the applier will touch the store.
package validator

import (
	"fmt"

	schemapkg "github.com/arkilian/ember/pkg/schema"
)

// Category classifies a validation failure, mirroring the error taxonomy the
// rest of the repo uses for diagnostics and filtering.
type Category string

const (
	CategoryNullability Category = "NULLABILITY"
	CategoryPrimaryKey  Category = "PRIMARY_KEY"
	CategoryIndex       Category = "INDEX"
	CategoryLink        Category = "LINK"
)

// Error is a single validation failure. Path is "<ObjectType>.<Property>" for
// property-level failures, or just "<ObjectType>" for object-level ones.
type Error struct {
	Category Category
	Path     string
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate walks every object schema and every property in declaration order
// (persisted then computed), accumulating every failure — it never stops at
// the first error. A nil/empty result means the schema is valid.
func Validate(s schemapkg.Schema) []*Error {
	var errs []*Error
	for _, obj := range s.Objects() {
		errs = append(errs, validateObjectSchema(s, obj)...)
	}
	return errs
}

func validateObjectSchema(s schemapkg.Schema, obj schemapkg.ObjectSchema) []*Error {
	var errs []*Error
	var primary *schemapkg.Property

	all := obj.AllProperties()
	for i := range all {
		p := all[i]
		errs = append(errs, validateProperty(s, obj.Name, p)...)
		if p.IsPrimary {
			if primary != nil {
				errs = append(errs, &Error{
					Category: CategoryPrimaryKey,
					Path:     obj.Name,
					Message:  fmt.Sprintf("properties %q and %q are both marked as the primary key", primary.Name, p.Name),
				})
			} else {
				primary = &all[i]
			}
		}
	}

	if obj.PrimaryKey != "" && primary == nil && obj.PrimaryKeyProperty() == nil {
		errs = append(errs, &Error{
			Category: CategoryPrimaryKey,
			Path:     obj.Name,
			Message:  fmt.Sprintf("specified primary key %q does not exist", obj.PrimaryKey),
		})
	}

	return errs
}

func validateProperty(s schemapkg.Schema, objectName string, p schemapkg.Property) []*Error {
	var errs []*Error
	path := objectName + "." + p.Name

	// 1. Nullability coherence.
	if p.IsNullable && !p.TypeIsNullable() {
		errs = append(errs, &Error{
			Category: CategoryNullability,
			Path:     path,
			Message:  fmt.Sprintf("type %s cannot be nullable", p.Type),
		})
	} else if p.Type == schemapkg.Object && !p.IsNullable {
		errs = append(errs, &Error{
			Category: CategoryNullability,
			Path:     path,
			Message:  "type Object must be nullable",
		})
	}

	// 2. Primary-key coherence (per-object uniqueness handled by the caller).
	if p.IsPrimary && p.Type != schemapkg.Int && p.Type != schemapkg.String {
		errs = append(errs, &Error{
			Category: CategoryPrimaryKey,
			Path:     path,
			Message:  fmt.Sprintf("type %s cannot be made the primary key", p.Type),
		})
	}

	// 3. Index eligibility.
	if p.IsIndexed && !p.IsIndexable() {
		errs = append(errs, &Error{
			Category: CategoryIndex,
			Path:     path,
			Message:  fmt.Sprintf("type %s cannot be indexed", p.Type),
		})
	}

	// 4. Link well-formedness.
	if p.Type != schemapkg.LinkingObjects && p.LinkOriginPropertyName != "" {
		errs = append(errs, &Error{
			Category: CategoryLink,
			Path:     path,
			Message:  fmt.Sprintf("type %s cannot have a link origin property", p.Type),
		})
	} else if p.Type == schemapkg.LinkingObjects && p.LinkOriginPropertyName == "" {
		errs = append(errs, &Error{
			Category: CategoryLink,
			Path:     path,
			Message:  "LinkingObjects must have a link origin property",
		})
	}

	if p.Type != schemapkg.Object && p.Type != schemapkg.Array && p.Type != schemapkg.LinkingObjects {
		if p.ObjectType != "" {
			errs = append(errs, &Error{
				Category: CategoryLink,
				Path:     path,
				Message:  fmt.Sprintf("type %s cannot have an object type", p.Type),
			})
		}
		return errs
	}

	target := s.Find(p.ObjectType)
	if target == nil {
		errs = append(errs, &Error{
			Category: CategoryLink,
			Path:     path,
			Message:  fmt.Sprintf("unknown object type %q", p.ObjectType),
		})
		return errs
	}
	if p.Type != schemapkg.LinkingObjects {
		return errs
	}

	origin := target.PropertyForName(p.LinkOriginPropertyName)
	if origin == nil {
		errs = append(errs, &Error{
			Category: CategoryLink,
			Path:     path,
			Message:  fmt.Sprintf("origin property %s.%s does not exist", p.ObjectType, p.LinkOriginPropertyName),
		})
	} else if origin.Type != schemapkg.Object && origin.Type != schemapkg.Array {
		errs = append(errs, &Error{
			Category: CategoryLink,
			Path:     path,
			Message:  fmt.Sprintf("origin property %s.%s is not a link", p.ObjectType, p.LinkOriginPropertyName),
		})
	} else if origin.ObjectType != objectName {
		errs = append(errs, &Error{
			Category: CategoryLink,
			Path:     path,
			Message:  fmt.Sprintf("origin property %s.%s links to type %q, not %q", p.ObjectType, p.LinkOriginPropertyName, origin.ObjectType, objectName),
		})
	}

	return errs
}
