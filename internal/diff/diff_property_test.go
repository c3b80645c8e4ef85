package diff

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	schemapkg "github.com/arkilian/ember/pkg/schema"
)

// scalarKinds excludes the link kinds, which need a valid target object to
// be well-formed — irrelevant to the two properties exercised here.
var scalarKinds = []schemapkg.PropertyType{
	schemapkg.Int, schemapkg.Bool, schemapkg.Float, schemapkg.Double,
	schemapkg.String, schemapkg.Data, schemapkg.Date,
}

func randomObjectSchema(seed int64, n int) schemapkg.ObjectSchema {
	r := rand.New(rand.NewSource(seed))
	if n <= 0 {
		n = 1
	}
	if n > 8 {
		n = 8
	}
	props := make([]schemapkg.Property, n)
	for i := 0; i < n; i++ {
		typ := scalarKinds[r.Intn(len(scalarKinds))]
		p := schemapkg.Property{Name: "p" + string(rune('a'+i)), Type: typ}
		if p.IsIndexable() && r.Intn(2) == 0 {
			p.IsIndexed = true
		}
		props[i] = p
	}
	return schemapkg.ObjectSchema{Name: "Obj", PersistedProperties: props}
}

func shuffledCopy(o schemapkg.ObjectSchema, seed int64) schemapkg.ObjectSchema {
	r := rand.New(rand.NewSource(seed))
	props := append([]schemapkg.Property(nil), o.PersistedProperties...)
	r.Shuffle(len(props), func(i, j int) { props[i], props[j] = props[j], props[i] })
	return schemapkg.ObjectSchema{Name: o.Name, PersistedProperties: props, PrimaryKey: o.PrimaryKey}
}

// TestProperty_ReorderInvarianceNeedsNoMigration checks spec.md §8's reorder
// invariance property: permuting property declaration order produces no
// diff at all (and therefore never needs a migration).
func TestProperty_ReorderInvarianceNeedsNoMigration(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("a reordered object schema diffs to nothing", prop.ForAll(
		func(seed int64, n int, shuffleSeed int64) bool {
			obj := randomObjectSchema(seed, n)
			shuffled := shuffledCopy(obj, shuffleSeed)

			current := schemapkg.New(obj)
			target := schemapkg.New(shuffled)

			changes := Diff(current, target)
			return len(changes) == 0 && !NeedsMigration(changes)
		},
		gen.Int64Range(1, 1000000),
		gen.IntRange(1, 8),
		gen.Int64Range(1, 1000000),
	))

	properties.TestingRun(t)
}

// TestProperty_IndexTogglesNeedNoMigration checks spec.md §8's index-toggle
// property: flipping is_indexed alone on any subset of properties never
// requires a migration.
func TestProperty_IndexTogglesNeedNoMigration(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("toggling is_indexed never requires a migration", prop.ForAll(
		func(seed int64, n int) bool {
			obj := randomObjectSchema(seed, n)
			toggled := schemapkg.ObjectSchema{Name: obj.Name, PersistedProperties: make([]schemapkg.Property, len(obj.PersistedProperties))}
			for i, p := range obj.PersistedProperties {
				p2 := p
				if p.IsIndexable() {
					p2.IsIndexed = !p.IsIndexed
				}
				toggled.PersistedProperties[i] = p2
			}

			changes := Diff(schemapkg.New(obj), schemapkg.New(toggled))
			return !NeedsMigration(changes)
		},
		gen.Int64Range(1, 1000000),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}
