package schema

import "testing"

func TestAllDeclaresUniqueTables(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range All() {
		if s.Name == "" {
			t.Error("table with empty name")
		}
		if seen[s.Name] {
			t.Errorf("table %s declared twice", s.Name)
		}
		seen[s.Name] = true
	}
	if len(seen) != 21 {
		t.Errorf("tables = %d, want 21", len(seen))
	}
}

func TestBedAssignmentIndexes(t *testing.T) {
	want := []string{"bedId", "patientId", "admissionDate", "assignmentType", "note"}
	for _, s := range All() {
		if s.Name != BedAssignments {
			continue
		}
		if len(s.Indexes) != len(want) {
			t.Fatalf("indexes = %v, want %v", s.Indexes, want)
		}
		for i, f := range s.Indexes {
			if f != want[i] {
				t.Errorf("index %d = %s, want %s", i, f, want[i])
			}
		}
		return
	}
	t.Fatal("bedAssignments not declared")
}
