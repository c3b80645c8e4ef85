// Package ordererr provides the structured error type used throughout
// Ember's schema core. Every error carries a category, a code, a message,
// and enough structure for errors.Is/errors.As to work across the diff,
// validator, and applier layers.
package ordererr

import (
	"errors"
	"fmt"
	"strings"
)

// Category classifies an error by the phase of schema management it came
// from.
type Category string

const (
	CategoryValidation Category = "VALIDATION"
	CategoryVersion    Category = "VERSION"
	CategoryMismatch   Category = "MISMATCH"
	CategoryUniqueness Category = "UNIQUENESS"
	CategoryRename     Category = "RENAME"
	CategoryStore      Category = "STORE"
)

// Error codes, one per error kind named in the design.
const (
	CodeInvalidSchemaVersion    = "INVALID_SCHEMA_VERSION"
	CodeSchemaValidationFailure = "SCHEMA_VALIDATION_FAILURE"
	CodeSchemaMismatch          = "SCHEMA_MISMATCH"
	CodeDuplicatePrimaryKey     = "DUPLICATE_PRIMARY_KEY_VALUE"
	CodeUnknownObjectType       = "UNKNOWN_OBJECT_TYPE"
	CodePropertyRenameRefused   = "PROPERTY_RENAME_REFUSED"
	CodeIndexNotSupported       = "INDEX_NOT_SUPPORTED_FOR_TYPE"
)

// SchemaError is the structured error type the session layer returns for
// schema-management failures. Details carries offender-specific context (object type,
// property name, old/new version, ...).
type SchemaError struct {
	Category Category
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

func (e *SchemaError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is/errors.As.
func (e *SchemaError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a SchemaError with the same category and
// code, so sentinel-style checks (errors.Is(err, ordererr.New(...))) work.
func (e *SchemaError) Is(target error) bool {
	var t *SchemaError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a SchemaError with no underlying cause.
func New(category Category, code, message string) *SchemaError {
	return &SchemaError{Category: category, Code: code, Message: message}
}

// Wrap creates a SchemaError around an existing error.
func Wrap(category Category, code, message string, cause error) *SchemaError {
	return &SchemaError{Category: category, Code: code, Message: message, Cause: cause}
}

// WithDetails returns a copy of e with Details set.
func (e *SchemaError) WithDetails(details map[string]interface{}) *SchemaError {
	cp := *e
	cp.Details = details
	return &cp
}

// InvalidSchemaVersion reports an attempted downgrade outside Additive.
func InvalidSchemaVersion(oldVersion, newVersion uint64) *SchemaError {
	return New(CategoryVersion, CodeInvalidSchemaVersion,
		fmt.Sprintf("provided schema version %d is less than last set version %d", newVersion, oldVersion)).
		WithDetails(map[string]interface{}{"old_version": oldVersion, "new_version": newVersion})
}

// Offender names one entry in an aggregated validation/mismatch error list.
type Offender struct {
	ObjectType string
	Property   string
	Message    string
}

func (o Offender) String() string {
	if o.Property != "" {
		return fmt.Sprintf("%s.%s: %s", o.ObjectType, o.Property, o.Message)
	}
	return fmt.Sprintf("%s: %s", o.ObjectType, o.Message)
}

func aggregateMessage(header string, offenders []Offender) string {
	var b strings.Builder
	b.WriteString(header)
	for _, o := range offenders {
		b.WriteString("\n  - ")
		b.WriteString(o.String())
	}
	return b.String()
}

// SchemaValidationFailure aggregates every error the validator found.
func SchemaValidationFailure(offenders []Offender) *SchemaError {
	return New(CategoryValidation, CodeSchemaValidationFailure,
		aggregateMessage("schema validation failed", offenders)).
		WithDetails(map[string]interface{}{"offenders": offenders})
}

// SchemaMismatch aggregates every change a policy refused to apply.
func SchemaMismatch(offenders []Offender) *SchemaError {
	return New(CategoryMismatch, CodeSchemaMismatch,
		aggregateMessage("migration required due to the following changes", offenders)).
		WithDetails(map[string]interface{}{"offenders": offenders})
}

// DuplicatePrimaryKeyValue reports a post-migration uniqueness violation.
func DuplicatePrimaryKeyValue(objectType, property string) *SchemaError {
	return New(CategoryUniqueness, CodeDuplicatePrimaryKey,
		fmt.Sprintf("primary key property %q has duplicate values after migration", objectType+"."+property)).
		WithDetails(map[string]interface{}{"object_type": objectType, "property": property})
}

// UnknownObjectType reports that rename_property targeted a type the store
// does not manage.
func UnknownObjectType(objectType string) *SchemaError {
	return New(CategoryRename, CodeUnknownObjectType,
		fmt.Sprintf("type %q is not managed by this realm", objectType)).
		WithDetails(map[string]interface{}{"object_type": objectType})
}

// PropertyRenameRefused reports that rename_property's preconditions failed.
func PropertyRenameRefused(reason string) *SchemaError {
	return New(CategoryRename, CodePropertyRenameRefused, reason)
}

// IndexNotSupportedForType reports that the store refused add_search_index.
func IndexNotSupportedForType(objectType, property string, propertyType fmt.Stringer) *SchemaError {
	return New(CategoryStore, CodeIndexNotSupported,
		fmt.Sprintf("cannot index %s.%s: indexing properties of type %s is not supported", objectType, property, propertyType)).
		WithDetails(map[string]interface{}{"object_type": objectType, "property": property})
}

// IsRetryable is always false for this error family today: every
// SchemaError reports a content or contract problem the caller must resolve
// before retrying, never a transient condition. Errors that are not
// SchemaErrors (such as those internal/store returns) are not classified
// and also report false.
func IsRetryable(err error) bool {
	return false
}

// GetCategory extracts the category from an error chain, or "" if err is not
// a SchemaError.
func GetCategory(err error) Category {
	var e *SchemaError
	if errors.As(err, &e) {
		return e.Category
	}
	return ""
}

// GetCode extracts the code from an error chain, or "" if err is not a
// SchemaError.
func GetCode(err error) string {
	var e *SchemaError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
