package metadata

import (
	"testing"
	"time"

	"github.com/arkilian/ember/internal/store"
	schemapkg "github.com/arkilian/ember/pkg/schema"
)

func TestTableName_RoundTrip(t *testing.T) {
	name := TableName("Dog")
	if name != "class_Dog" {
		t.Fatalf("expected class_Dog, got %s", name)
	}
	objType, ok := ObjectTypeForTableName(name)
	if !ok || objType != "Dog" {
		t.Fatalf("expected Dog/true, got %s/%v", objType, ok)
	}
}

func TestObjectTypeForTableName_RejectsInternalTables(t *testing.T) {
	if _, ok := ObjectTypeForTableName("metadata"); ok {
		t.Error("expected the metadata table to not carry the user-table prefix")
	}
	if _, ok := ObjectTypeForTableName("pk"); ok {
		t.Error("expected the pk table to not carry the user-table prefix")
	}
}

func TestEnsureTables_InitializesVersionToNotVersioned(t *testing.T) {
	s := store.NewMemoryStore()
	if err := EnsureTables(s); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}
	if v := GetVersion(s); v != NotVersioned {
		t.Errorf("expected NotVersioned, got %d", v)
	}
}

func TestEnsureTables_Idempotent(t *testing.T) {
	s := store.NewMemoryStore()
	if err := EnsureTables(s); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}
	if err := SetVersion(s, 5); err != nil {
		t.Fatalf("SetVersion: %v", err)
	}
	if err := EnsureTables(s); err != nil {
		t.Fatalf("second EnsureTables: %v", err)
	}
	if v := GetVersion(s); v != 5 {
		t.Errorf("expected EnsureTables to not reset an existing version, got %d", v)
	}
}

func TestSetVersion_Persists(t *testing.T) {
	s := store.NewMemoryStore()
	if err := EnsureTables(s); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}
	if err := SetVersion(s, 42); err != nil {
		t.Fatalf("SetVersion: %v", err)
	}
	if v := GetVersion(s); v != 42 {
		t.Errorf("expected 42, got %d", v)
	}
}

func TestGetVersion_UninitializedStoreReturnsNotVersioned(t *testing.T) {
	s := store.NewMemoryStore()
	if v := GetVersion(s); v != NotVersioned {
		t.Errorf("expected NotVersioned for an uninitialized store, got %d", v)
	}
}

func TestPrimaryKey_SetAndGet(t *testing.T) {
	s := store.NewMemoryStore()
	if err := EnsureTables(s); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}
	if pk := GetPrimaryKey(s, "Dog"); pk != "" {
		t.Errorf("expected empty primary key before any is set, got %q", pk)
	}
	if err := SetPrimaryKey(s, "Dog", "id"); err != nil {
		t.Fatalf("SetPrimaryKey: %v", err)
	}
	if pk := GetPrimaryKey(s, "Dog"); pk != "id" {
		t.Errorf("expected id, got %q", pk)
	}
}

func TestPrimaryKey_UpdateExistingBinding(t *testing.T) {
	s := store.NewMemoryStore()
	if err := EnsureTables(s); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}
	if err := SetPrimaryKey(s, "Dog", "id"); err != nil {
		t.Fatalf("SetPrimaryKey: %v", err)
	}
	if err := SetPrimaryKey(s, "Dog", "uuid"); err != nil {
		t.Fatalf("SetPrimaryKey (update): %v", err)
	}
	if pk := GetPrimaryKey(s, "Dog"); pk != "uuid" {
		t.Errorf("expected uuid after update, got %q", pk)
	}
}

func TestPrimaryKey_ClearingUnsetBindingIsNoop(t *testing.T) {
	s := store.NewMemoryStore()
	if err := EnsureTables(s); err != nil {
		t.Fatalf("EnsureTables: %v", err)
	}
	if err := SetPrimaryKey(s, "Dog", ""); err != nil {
		t.Fatalf("SetPrimaryKey: %v", err)
	}
	if pk := GetPrimaryKey(s, "Dog"); pk != "" {
		t.Errorf("expected empty, got %q", pk)
	}
}

func TestRecordHistory_Appends(t *testing.T) {
	s := store.NewMemoryStore()
	sc := schemapkg.New(schemapkg.ObjectSchema{
		Name:                "Dog",
		PersistedProperties: []schemapkg.Property{{Name: "id", Type: schemapkg.Int, IsPrimary: true}},
		PrimaryKey:          "id",
	})

	if err := RecordHistory(s, sc, 1, time.Unix(1000, 0)); err != nil {
		t.Fatalf("RecordHistory: %v", err)
	}
	if err := RecordHistory(s, sc, 2, time.Unix(2000, 0)); err != nil {
		t.Fatalf("RecordHistory (second): %v", err)
	}

	tbl, ok := s.GetTable(historyTableName)
	if !ok {
		t.Fatal("expected schema_history table to exist after RecordHistory")
	}
	if tbl.Size() != 2 {
		t.Errorf("expected 2 rows, got %d", tbl.Size())
	}
	if tbl.GetInt(0, 0) != 1 || tbl.GetInt(0, 1) != 2 {
		t.Errorf("expected versions [1 2], got [%d %d]", tbl.GetInt(0, 0), tbl.GetInt(0, 1))
	}
}
