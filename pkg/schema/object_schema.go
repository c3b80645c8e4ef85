package schema

// ObjectSchema is the named collection of persisted and computed properties
// that describes one object kind; it becomes one table in the backing store.
type ObjectSchema struct {
	Name                string
	PersistedProperties []Property
	ComputedProperties  []Property // only LinkingObjects
	PrimaryKey          string     // property name, or empty
}

// PropertyForName returns the persisted or computed property with the given
// name, searching persisted properties first, matching the lookup order used
// throughout the applier and validator.
func (o *ObjectSchema) PropertyForName(name string) *Property {
	for i := range o.PersistedProperties {
		if o.PersistedProperties[i].Name == name {
			return &o.PersistedProperties[i]
		}
	}
	for i := range o.ComputedProperties {
		if o.ComputedProperties[i].Name == name {
			return &o.ComputedProperties[i]
		}
	}
	return nil
}

// PrimaryKeyProperty returns the property backing PrimaryKey, or nil if
// PrimaryKey is empty or does not resolve (the latter is a validation error,
// not a panic condition here).
func (o *ObjectSchema) PrimaryKeyProperty() *Property {
	if o.PrimaryKey == "" {
		return nil
	}
	return o.PropertyForName(o.PrimaryKey)
}

// AllProperties returns persisted then computed properties, the iteration
// order the diff engine and validator use.
func (o *ObjectSchema) AllProperties() []Property {
	all := make([]Property, 0, len(o.PersistedProperties)+len(o.ComputedProperties))
	all = append(all, o.PersistedProperties...)
	all = append(all, o.ComputedProperties...)
	return all
}

// Equal reports structural equality between two object schemas, ignoring
// property order and transient ColumnIndex fields.
func (o ObjectSchema) Equal(other ObjectSchema) bool {
	if o.Name != other.Name || o.PrimaryKey != other.PrimaryKey {
		return false
	}
	if !propertySetsEqual(o.PersistedProperties, other.PersistedProperties) {
		return false
	}
	return propertySetsEqual(o.ComputedProperties, other.ComputedProperties)
}

func propertySetsEqual(a, b []Property) bool {
	if len(a) != len(b) {
		return false
	}
	byName := make(map[string]Property, len(b))
	for _, p := range b {
		byName[p.Name] = p
	}
	for _, p := range a {
		other, ok := byName[p.Name]
		if !ok || !p.Equal(other) {
			return false
		}
	}
	return true
}
