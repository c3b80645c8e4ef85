package schema

import (
	"sort"
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Schema is an ordered collection of object schemas keyed by name. Names are
// unique; insertion order is not semantically meaningful and must never
// affect Equal or Fingerprint.
type Schema struct {
	objects []ObjectSchema
	byName  map[string]int
}

// New builds a Schema from a set of object schemas. Duplicate names are
// rejected by the validator, not here — New is a plain constructor.
func New(objects ...ObjectSchema) Schema {
	s := Schema{byName: make(map[string]int, len(objects))}
	for _, o := range objects {
		s.objects = append(s.objects, o)
		s.byName[o.Name] = len(s.objects) - 1
	}
	return s
}

// Find returns the object schema with the given name, or nil.
func (s Schema) Find(name string) *ObjectSchema {
	i, ok := s.byName[name]
	if !ok {
		return nil
	}
	return &s.objects[i]
}

// Objects returns the object schemas in insertion order. Callers must not
// rely on this order for semantic comparisons.
func (s Schema) Objects() []ObjectSchema {
	return s.objects
}

// Names returns the object type names, in insertion order.
func (s Schema) Names() []string {
	names := make([]string, len(s.objects))
	for i, o := range s.objects {
		names[i] = o.Name
	}
	return names
}

// Len returns the number of object schemas.
func (s Schema) Len() int {
	return len(s.objects)
}

// Equal reports structural equality between two schemas: same object schema
// names, each pairwise structurally equal, independent of insertion order.
func (s Schema) Equal(other Schema) bool {
	if len(s.objects) != len(other.objects) {
		return false
	}
	for _, o := range s.objects {
		oo := other.Find(o.Name)
		if oo == nil || !o.Equal(*oo) {
			return false
		}
	}
	return true
}

// Fingerprint returns a fast structural hash of the schema: a murmur3 hash
// over a canonical (name-sorted) encoding of every object schema, property,
// and primary-key binding. Equal schemas always have equal fingerprints;
// unequal fingerprints always mean unequal schemas. Equal fingerprints do NOT
// guarantee equal schemas (hash collisions are possible) — callers must
// always confirm with Equal before treating a fingerprint match as a
// "no diff needed" verdict; Diff does exactly that.
func (s Schema) Fingerprint() uint64 {
	names := s.Names()
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		o := s.Find(name)
		writeObjectSchema(&b, o)
	}

	h := murmur3.Sum64([]byte(b.String()))
	return h
}

func writeObjectSchema(b *strings.Builder, o *ObjectSchema) {
	b.WriteString("O|")
	b.WriteString(o.Name)
	b.WriteString("|pk=")
	b.WriteString(o.PrimaryKey)
	b.WriteByte('\n')

	props := append([]Property{}, o.PersistedProperties...)
	props = append(props, o.ComputedProperties...)
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
	for _, p := range props {
		writeProperty(b, p)
	}
}

func writeProperty(b *strings.Builder, p Property) {
	b.WriteString("P|")
	b.WriteString(p.Name)
	b.WriteString("|t=")
	b.WriteString(strconv.Itoa(int(p.Type)))
	b.WriteString("|ot=")
	b.WriteString(p.ObjectType)
	b.WriteString("|lop=")
	b.WriteString(p.LinkOriginPropertyName)
	b.WriteString("|pk=")
	b.WriteString(strconv.FormatBool(p.IsPrimary))
	b.WriteString("|idx=")
	b.WriteString(strconv.FormatBool(p.IsIndexed))
	b.WriteString("|null=")
	b.WriteString(strconv.FormatBool(p.IsNullable))
	b.WriteByte('\n')
}
