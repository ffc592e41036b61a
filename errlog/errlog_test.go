package errlog

import "testing"

func TestDedupCapsIdenticalEntries(t *testing.T) {
	log := New(3)
	pos := Position{Filename: "incl.teng", Line: 1, Column: 1}
	for i := 0; i < 4; i++ {
		log.Warning(pos, "variable 'x' is undefined")
	}
	entries := log.Entries()
	if len(entries) != 4 {
		t.Fatalf("len(entries) = %d, want 4 (3 warnings + 1 synthetic)", len(entries))
	}
	for _, e := range entries[:3] {
		if e.Level != WARNING {
			t.Errorf("entry level = %v, want WARNING", e.Level)
		}
	}
	last := entries[3]
	if last.Message == "variable 'x' is undefined" {
		t.Errorf("4th entry should be the synthetic summary, got %q", last.Message)
	}
}

func TestDedupIsFileScoped(t *testing.T) {
	log := New(1)
	posA := Position{Filename: "a.teng", Line: 1, Column: 1}
	posB := Position{Filename: "b.teng", Line: 1, Column: 1}
	log.Warning(posA, "undefined variable")
	log.Warning(posB, "undefined variable")
	log.Warning(posA, "undefined variable")
	entries := log.Entries()
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3 (one per file plus one synthetic)", len(entries))
	}
}

func TestStatusReflectsErrorLevel(t *testing.T) {
	log := New(3)
	if log.Status() != 0 {
		t.Errorf("Status() = %d, want 0 for empty log", log.Status())
	}
	log.Warning(Position{}, "just a warning")
	if log.Status() != 0 {
		t.Errorf("Status() = %d, want 0 when only warnings are logged", log.Status())
	}
	log.Error(Position{}, "something broke")
	if log.Status() != 1 {
		t.Errorf("Status() = %d, want 1 once an ERROR is logged", log.Status())
	}
}
