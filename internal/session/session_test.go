package session

import (
	"testing"

	"github.com/arkilian/ember/internal/ordererr"
	schemapkg "github.com/arkilian/ember/pkg/schema"
)

func dogSchema(version int) schemapkg.ObjectSchema {
	props := []schemapkg.Property{
		{Name: "id", Type: schemapkg.Int, IsPrimary: true},
		{Name: "name", Type: schemapkg.String, IsNullable: true},
	}
	if version >= 2 {
		props = append(props, schemapkg.Property{Name: "breed", Type: schemapkg.String, IsNullable: true})
	}
	return schemapkg.ObjectSchema{Name: "Dog", PersistedProperties: props, PrimaryKey: "id"}
}

func TestGetShared_FreshFile_InitialCreation(t *testing.T) {
	sess, err := GetShared(Config{
		InMemory:      true,
		SchemaMode:    Automatic,
		HasSchema:     true,
		Schema:        schemapkg.New(dogSchema(1)),
		SchemaVersion: 1,
	})
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}
	if sess.SchemaVersion() != 1 {
		t.Errorf("expected version 1, got %d", sess.SchemaVersion())
	}
	if o := sess.Schema().Find("Dog"); o == nil {
		t.Fatal("expected the Dog table to have been created")
	}
}

func TestAutomatic_UpgradeAddsPropertyAndRunsCallback(t *testing.T) {
	sess, err := GetShared(Config{
		InMemory:      true,
		SchemaMode:    Automatic,
		HasSchema:     true,
		Schema:        schemapkg.New(dogSchema(1)),
		SchemaVersion: 1,
	})
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}

	callbackRan := false
	err = sess.UpdateSchema(schemapkg.New(dogSchema(2)), 2, func(s *Session, oldVersion, newVersion uint64) error {
		callbackRan = true
		if oldVersion != 1 || newVersion != 2 {
			t.Errorf("expected callback to see 1->2, got %d->%d", oldVersion, newVersion)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateSchema: %v", err)
	}
	if !callbackRan {
		t.Error("expected the migration callback to run on an upgrade")
	}
	if sess.SchemaVersion() != 2 {
		t.Errorf("expected version 2, got %d", sess.SchemaVersion())
	}
	obj := sess.Schema().Find("Dog")
	if obj == nil || obj.PropertyForName("breed") == nil {
		t.Error("expected the breed property to exist after upgrade")
	}
}

func TestAutomatic_SameVersionRejectsPropertyAddition(t *testing.T) {
	sess, err := GetShared(Config{
		InMemory:      true,
		SchemaMode:    Automatic,
		HasSchema:     true,
		Schema:        schemapkg.New(dogSchema(1)),
		SchemaVersion: 1,
	})
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}

	err = sess.UpdateSchema(schemapkg.New(dogSchema(2)), 1, nil)
	if err == nil {
		t.Fatal("expected an error adding a property without a version bump")
	}
	if ordererr.GetCategory(err) != ordererr.CategoryMismatch {
		t.Errorf("expected CategoryMismatch, got %v", ordererr.GetCategory(err))
	}
}

func TestReadOnly_RejectsSchemaChanges(t *testing.T) {
	sess, err := GetShared(Config{
		InMemory:      true,
		SchemaMode:    Automatic,
		HasSchema:     true,
		Schema:        schemapkg.New(dogSchema(1)),
		SchemaVersion: 1,
	})
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}

	// Reopen the same backing store under ReadOnly so the diff sees an
	// existing Dog table, not an empty one (AddTable alone is permitted).
	ro := &Session{cfg: Config{SchemaMode: ReadOnly}, store: sess.store, clock: sess.clock, runIDs: sess.runIDs}
	derived, err := deriveSchema(ro.store)
	if err != nil {
		t.Fatalf("deriveSchema: %v", err)
	}
	ro.schema = derived
	ro.version = sess.SchemaVersion()

	err = ro.UpdateSchema(schemapkg.New(dogSchema(2)), 2, nil)
	if err == nil {
		t.Fatal("expected ReadOnly to reject a property addition to an existing table")
	}
	if ordererr.GetCategory(err) != ordererr.CategoryMismatch {
		t.Errorf("expected CategoryMismatch, got %v", ordererr.GetCategory(err))
	}
}

func TestAdditive_VersionNeverDecreases(t *testing.T) {
	sess, err := GetShared(Config{
		InMemory:      true,
		SchemaMode:    Additive,
		HasSchema:     true,
		Schema:        schemapkg.New(dogSchema(2)),
		SchemaVersion: 5,
	})
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}
	if sess.SchemaVersion() != 5 {
		t.Fatalf("expected version 5, got %d", sess.SchemaVersion())
	}

	if err := sess.UpdateSchema(schemapkg.New(dogSchema(2)), 1, nil); err != nil {
		t.Fatalf("UpdateSchema with a lower version should not error under Additive: %v", err)
	}
	if sess.SchemaVersion() != 5 {
		t.Errorf("expected version to remain 5 (no downgrade), got %d", sess.SchemaVersion())
	}
}

func TestAdditive_RejectsPropertyRemoval(t *testing.T) {
	sess, err := GetShared(Config{
		InMemory:      true,
		SchemaMode:    Additive,
		HasSchema:     true,
		Schema:        schemapkg.New(dogSchema(2)),
		SchemaVersion: 1,
	})
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}

	err = sess.UpdateSchema(schemapkg.New(dogSchema(1)), 2, nil)
	if err == nil {
		t.Fatal("expected Additive to reject a property removal")
	}
	if ordererr.GetCategory(err) != ordererr.CategoryMismatch {
		t.Errorf("expected CategoryMismatch, got %v", ordererr.GetCategory(err))
	}
}

func TestRenameProperty_UnknownObjectTypeRejected(t *testing.T) {
	sess, err := GetShared(Config{InMemory: true, SchemaMode: Automatic})
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}
	err = sess.RenameProperty("Ghost", "old", "new")
	if err == nil {
		t.Fatal("expected an error renaming a property on an unmanaged object type")
	}
	if ordererr.GetCode(err) != ordererr.CodeUnknownObjectType {
		t.Errorf("expected CodeUnknownObjectType, got %v", ordererr.GetCode(err))
	}
}

func TestRenameProperty_InsideCallbackWindow(t *testing.T) {
	sess, err := GetShared(Config{
		InMemory:      true,
		SchemaMode:    Automatic,
		HasSchema:     true,
		Schema:        schemapkg.New(dogSchema(1)),
		SchemaVersion: 1,
	})
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}

	renamed := schemapkg.ObjectSchema{
		Name: "Dog",
		PersistedProperties: []schemapkg.Property{
			{Name: "id", Type: schemapkg.Int, IsPrimary: true},
			{Name: "fullName", Type: schemapkg.String, IsNullable: true},
		},
		PrimaryKey: "id",
	}

	noop := func(s *Session, oldVersion, newVersion uint64) error { return nil }
	err = sess.UpdateSchema(schemapkg.New(renamed), 2, noop, RenameHint{ObjectType: "Dog", OldName: "name", NewName: "fullName"})
	if err != nil {
		t.Fatalf("UpdateSchema with rename hint: %v", err)
	}
	obj := sess.Schema().Find("Dog")
	if obj == nil || obj.PropertyForName("fullName") == nil {
		t.Error("expected fullName to exist after the rename")
	}
	if obj.PropertyForName("name") != nil {
		t.Error("expected name to no longer exist after the rename")
	}
}

func TestManualMode_Rejected(t *testing.T) {
	sess, err := GetShared(Config{InMemory: true, SchemaMode: Manual})
	if err != nil {
		t.Fatalf("GetShared: %v", err)
	}
	err = sess.UpdateSchema(schemapkg.New(dogSchema(1)), 1, nil)
	if err == nil {
		t.Fatal("expected Manual mode to be rejected")
	}
}
