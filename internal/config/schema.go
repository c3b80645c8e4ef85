package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	schemapkg "github.com/arkilian/ember/pkg/schema"
)

// schemaFileDTO is the YAML shape of a target schema definition: a flat list
// of object schemas, each with its properties. Kept as a plain mirror of
// pkg/schema's types (rather than YAML tags directly on schema.Property) so
// the wire format can evolve independently of the in-memory representation.
type schemaFileDTO struct {
	Objects []objectFileDTO `yaml:"objects"`
}

type objectFileDTO struct {
	Name       string           `yaml:"name"`
	PrimaryKey string           `yaml:"primary_key"`
	Properties []propertyFileDTO `yaml:"properties"`
}

type propertyFileDTO struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	ObjectType string `yaml:"object_type"`
	LinkOrigin string `yaml:"link_origin"`
	Indexed    bool   `yaml:"indexed"`
	Nullable   bool   `yaml:"nullable"`
}

var propertyTypeByName = map[string]schemapkg.PropertyType{
	"Int":            schemapkg.Int,
	"Bool":           schemapkg.Bool,
	"Float":          schemapkg.Float,
	"Double":         schemapkg.Double,
	"String":         schemapkg.String,
	"Data":           schemapkg.Data,
	"Date":           schemapkg.Date,
	"Any":            schemapkg.Any,
	"Object":         schemapkg.Object,
	"Array":          schemapkg.Array,
	"LinkingObjects": schemapkg.LinkingObjects,
}

// LoadSchemaFile parses a YAML schema definition into a schema.Schema. It
// does not validate the result — callers run it through validator.Validate
// (apply() does this automatically).
func LoadSchemaFile(path string) (schemapkg.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schemapkg.Schema{}, fmt.Errorf("config: failed to read schema file: %w", err)
	}

	var dto schemaFileDTO
	if err := yaml.Unmarshal(data, &dto); err != nil {
		return schemapkg.Schema{}, fmt.Errorf("config: failed to parse schema file: %w", err)
	}

	objects := make([]schemapkg.ObjectSchema, 0, len(dto.Objects))
	for _, od := range dto.Objects {
		obj := schemapkg.ObjectSchema{Name: od.Name, PrimaryKey: od.PrimaryKey}
		for _, pd := range od.Properties {
			typ, ok := propertyTypeByName[pd.Type]
			if !ok {
				return schemapkg.Schema{}, fmt.Errorf("config: object %q property %q: unknown type %q", od.Name, pd.Name, pd.Type)
			}
			p := schemapkg.Property{
				Name:                   pd.Name,
				Type:                   typ,
				ObjectType:             pd.ObjectType,
				LinkOriginPropertyName: pd.LinkOrigin,
				IsIndexed:              pd.Indexed,
				IsNullable:             pd.Nullable,
				IsPrimary:              pd.Name == od.PrimaryKey,
			}
			if typ == schemapkg.LinkingObjects {
				obj.ComputedProperties = append(obj.ComputedProperties, p)
			} else {
				obj.PersistedProperties = append(obj.PersistedProperties, p)
			}
		}
		objects = append(objects, obj)
	}

	return schemapkg.New(objects...), nil
}
