package diff

import (
	"testing"

	schemapkg "github.com/arkilian/ember/pkg/schema"
)

func findKind(changes Changes, k Kind) []Change {
	var out []Change
	for _, c := range changes {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

func TestDiff_NoChanges(t *testing.T) {
	s := schemapkg.New(schemapkg.ObjectSchema{
		Name:                "Dog",
		PersistedProperties: []schemapkg.Property{{Name: "id", Type: schemapkg.Int, IsPrimary: true}},
		PrimaryKey:          "id",
	})
	if changes := Diff(s, s); len(changes) != 0 {
		t.Errorf("expected no changes for identical schemas, got %v", changes)
	}
}

func TestDiff_AddTable(t *testing.T) {
	current := schemapkg.New()
	target := schemapkg.New(schemapkg.ObjectSchema{
		Name: "Dog",
		PersistedProperties: []schemapkg.Property{
			{Name: "id", Type: schemapkg.Int, IsPrimary: true},
			{Name: "name", Type: schemapkg.String, IsNullable: true},
		},
		PrimaryKey: "id",
	})

	changes := Diff(current, target)
	if len(findKind(changes, AddTable)) != 1 {
		t.Fatalf("expected exactly one AddTable change, got %v", changes)
	}
	if len(findKind(changes, AddProperty)) != 2 {
		t.Fatalf("expected AddProperty for both properties of a new table, got %v", changes)
	}
	if changes[0].Kind != AddTable {
		t.Errorf("expected AddTable to come first, got %s", changes[0].Kind)
	}
}

func TestDiff_RemoveAndAddProperty(t *testing.T) {
	current := schemapkg.New(schemapkg.ObjectSchema{
		Name: "Dog",
		PersistedProperties: []schemapkg.Property{
			{Name: "id", Type: schemapkg.Int, IsPrimary: true},
			{Name: "legacy", Type: schemapkg.String, IsNullable: true},
		},
		PrimaryKey: "id",
	})
	target := schemapkg.New(schemapkg.ObjectSchema{
		Name: "Dog",
		PersistedProperties: []schemapkg.Property{
			{Name: "id", Type: schemapkg.Int, IsPrimary: true},
			{Name: "name", Type: schemapkg.String, IsNullable: true},
		},
		PrimaryKey: "id",
	})

	changes := Diff(current, target)
	removed := findKind(changes, RemoveProperty)
	added := findKind(changes, AddProperty)
	if len(removed) != 1 || removed[0].Property.Name != "legacy" {
		t.Errorf("expected RemoveProperty for legacy, got %v", removed)
	}
	if len(added) != 1 || added[0].Property.Name != "name" {
		t.Errorf("expected AddProperty for name, got %v", added)
	}

	// Removal must be ordered before the addition.
	var removeIdx, addIdx = -1, -1
	for i, c := range changes {
		if c.Kind == RemoveProperty {
			removeIdx = i
		}
		if c.Kind == AddProperty {
			addIdx = i
		}
	}
	if removeIdx > addIdx {
		t.Errorf("expected RemoveProperty before AddProperty, got order %v", changes)
	}
}

func TestDiff_ChangePropertyType(t *testing.T) {
	current := schemapkg.New(schemapkg.ObjectSchema{
		Name:                "Dog",
		PersistedProperties: []schemapkg.Property{{Name: "age", Type: schemapkg.Int}},
	})
	target := schemapkg.New(schemapkg.ObjectSchema{
		Name:                "Dog",
		PersistedProperties: []schemapkg.Property{{Name: "age", Type: schemapkg.String}},
	})

	changes := Diff(current, target)
	found := findKind(changes, ChangePropertyType)
	if len(found) != 1 {
		t.Fatalf("expected one ChangePropertyType, got %v", changes)
	}
	if found[0].OldProperty.Type != schemapkg.Int || found[0].NewProperty.Type != schemapkg.String {
		t.Errorf("expected Old=Int New=String, got %+v", found[0])
	}
}

func TestDiff_NullabilityFlip(t *testing.T) {
	current := schemapkg.New(schemapkg.ObjectSchema{
		Name:                "Dog",
		PersistedProperties: []schemapkg.Property{{Name: "nickname", Type: schemapkg.String, IsNullable: false}},
	})
	target := schemapkg.New(schemapkg.ObjectSchema{
		Name:                "Dog",
		PersistedProperties: []schemapkg.Property{{Name: "nickname", Type: schemapkg.String, IsNullable: true}},
	})

	changes := Diff(current, target)
	if len(findKind(changes, MakePropertyNullable)) != 1 {
		t.Errorf("expected MakePropertyNullable, got %v", changes)
	}

	// And the reverse direction.
	back := Diff(target, current)
	if len(findKind(back, MakePropertyRequired)) != 1 {
		t.Errorf("expected MakePropertyRequired, got %v", back)
	}
}

func TestDiff_IndexToggleNoMigration(t *testing.T) {
	current := schemapkg.New(schemapkg.ObjectSchema{
		Name:                "Dog",
		PersistedProperties: []schemapkg.Property{{Name: "name", Type: schemapkg.String, IsIndexed: false}},
	})
	target := schemapkg.New(schemapkg.ObjectSchema{
		Name:                "Dog",
		PersistedProperties: []schemapkg.Property{{Name: "name", Type: schemapkg.String, IsIndexed: true}},
	})

	changes := Diff(current, target)
	if len(findKind(changes, AddIndex)) != 1 {
		t.Errorf("expected AddIndex, got %v", changes)
	}
	if NeedsMigration(changes) {
		t.Error("expected index-only changes to not require a migration")
	}
}

func TestDiff_ChangePrimaryKeyIsLast(t *testing.T) {
	current := schemapkg.New(schemapkg.ObjectSchema{
		Name: "Dog",
		PersistedProperties: []schemapkg.Property{
			{Name: "id", Type: schemapkg.Int, IsPrimary: true},
			{Name: "uuid", Type: schemapkg.String},
		},
		PrimaryKey: "id",
	})
	target := schemapkg.New(schemapkg.ObjectSchema{
		Name: "Dog",
		PersistedProperties: []schemapkg.Property{
			{Name: "id", Type: schemapkg.Int},
			{Name: "uuid", Type: schemapkg.String, IsPrimary: true},
		},
		PrimaryKey: "uuid",
	})

	changes := Diff(current, target)
	last := changes[len(changes)-1]
	if last.Kind != ChangePrimaryKey {
		t.Fatalf("expected ChangePrimaryKey to be the last change, got %v", changes)
	}
	if last.NewPrimaryKey == nil || last.NewPrimaryKey.Name != "uuid" {
		t.Errorf("expected NewPrimaryKey to be uuid, got %+v", last.NewPrimaryKey)
	}
	if NeedsMigration(changes) != true {
		t.Error("expected a primary key change to require a migration")
	}
}

func TestDiff_RemovedPrimaryKey(t *testing.T) {
	current := schemapkg.New(schemapkg.ObjectSchema{
		Name:                "Dog",
		PersistedProperties: []schemapkg.Property{{Name: "id", Type: schemapkg.Int, IsPrimary: true}},
		PrimaryKey:          "id",
	})
	target := schemapkg.New(schemapkg.ObjectSchema{
		Name:                "Dog",
		PersistedProperties: []schemapkg.Property{{Name: "id", Type: schemapkg.Int}},
		PrimaryKey:          "",
	})

	changes := Diff(current, target)
	found := findKind(changes, ChangePrimaryKey)
	if len(found) != 1 {
		t.Fatalf("expected one ChangePrimaryKey, got %v", changes)
	}
	if found[0].NewPrimaryKey != nil {
		t.Errorf("expected NewPrimaryKey == nil for a removed primary key, got %+v", found[0].NewPrimaryKey)
	}
}
