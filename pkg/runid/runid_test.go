package runid

import (
	"bytes"
	"testing"
	"time"
)

func TestGenerator_New(t *testing.T) {
	g := NewGenerator()

	id1, err := g.New()
	if err != nil {
		t.Fatalf("failed to generate RunID: %v", err)
	}
	id2, err := g.New()
	if err != nil {
		t.Fatalf("failed to generate RunID: %v", err)
	}

	if id1 == id2 {
		t.Error("expected different RunIDs")
	}
	if bytes.Compare(id1[:], id2[:]) > 0 {
		t.Error("expected id2 >= id1 for lexicographic ordering")
	}
}

func TestGenerator_TimeOrdering(t *testing.T) {
	g := NewGenerator()

	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC)

	id1, err := g.NewWithTime(t1)
	if err != nil {
		t.Fatalf("failed to generate RunID: %v", err)
	}
	id2, err := g.NewWithTime(t2)
	if err != nil {
		t.Fatalf("failed to generate RunID: %v", err)
	}

	if id1.Compare(id2) >= 0 {
		t.Errorf("expected id at t1 < id at t2, got %s >= %s", id1, id2)
	}
}

func TestGenerator_MonotonicWithinMillisecond(t *testing.T) {
	g := NewGenerator()
	ts := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var ids []RunID
	for i := 0; i < 100; i++ {
		id, err := g.NewWithTime(ts)
		if err != nil {
			t.Fatalf("failed to generate RunID: %v", err)
		}
		ids = append(ids, id)
	}

	for i := 1; i < len(ids); i++ {
		if ids[i-1].Compare(ids[i]) >= 0 {
			t.Errorf("expected id[%d] < id[%d], got %s >= %s", i-1, i, ids[i-1], ids[i])
		}
	}
}

func TestRunID_Timestamp(t *testing.T) {
	g := NewGenerator()
	ts := time.Date(2026, 2, 5, 10, 30, 0, 0, time.UTC)

	id, err := g.NewWithTime(ts)
	if err != nil {
		t.Fatalf("failed to generate RunID: %v", err)
	}

	if expected := uint64(ts.UnixMilli()); id.Timestamp() != expected {
		t.Errorf("expected timestamp %d, got %d", expected, id.Timestamp())
	}
}

func TestRunID_StringRoundTrip(t *testing.T) {
	g := NewGenerator()

	id1, err := g.New()
	if err != nil {
		t.Fatalf("failed to generate RunID: %v", err)
	}

	str := id1.String()
	if len(str) != 26 {
		t.Errorf("expected string length 26, got %d", len(str))
	}

	id2, err := Parse(str)
	if err != nil {
		t.Fatalf("failed to parse RunID: %v", err)
	}
	if id1 != id2 {
		t.Errorf("round-trip failed: %v != %v", id1, id2)
	}
}

func TestRunID_BytesRoundTrip(t *testing.T) {
	g := NewGenerator()

	id1, err := g.New()
	if err != nil {
		t.Fatalf("failed to generate RunID: %v", err)
	}

	b := id1.Bytes()
	if len(b) != 16 {
		t.Errorf("expected bytes length 16, got %d", len(b))
	}

	id2, err := FromBytes(b)
	if err != nil {
		t.Fatalf("failed to build RunID from bytes: %v", err)
	}
	if id1 != id2 {
		t.Errorf("round-trip failed: %v != %v", id1, id2)
	}
}

func TestParse_InvalidLength(t *testing.T) {
	if _, err := Parse("short"); err != ErrInvalidLength {
		t.Errorf("expected ErrInvalidLength, got %v", err)
	}
}

func TestParse_InvalidCharacter(t *testing.T) {
	if _, err := Parse("01234567890123456789012I45"); err != ErrInvalidCharacter {
		t.Errorf("expected ErrInvalidCharacter, got %v", err)
	}
}
