package registry

import (
	"errors"
	"testing"
)

// mapResolver resolves names from a fixed table.
type mapResolver map[string][]int

func (m mapResolver) GetLabelsByString(name string) []int {
	return m[name]
}

func TestPopulate_RecordsFirstLabel(t *testing.T) {
	r := New()
	resolver := mapResolver{
		"alice": {0},
		"bob":   {1, 7},
	}

	highest, err := r.Populate([]string{"alice", "bob"}, resolver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if highest != 1 {
		t.Errorf("expected highest label 1, got %d", highest)
	}
	if label, ok := r.LookupLabel("bob"); !ok || label != 1 {
		t.Errorf("expected bob -> 1, got %d (found=%v)", label, ok)
	}
	if _, ok := r.LookupName(7); ok {
		t.Error("expected label 7 to stay unregistered")
	}
}

func TestPopulate_HighestLabelIsMax(t *testing.T) {
	r := New()
	resolver := mapResolver{
		"alice": {4},
		"bob":   {9},
		"carol": {2},
	}

	highest, err := r.Populate([]string{"alice", "bob", "carol"}, resolver)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if highest != 9 {
		t.Errorf("expected highest label 9, got %d", highest)
	}
	if r.HighestLabel() != 9 {
		t.Errorf("expected HighestLabel() 9, got %d", r.HighestLabel())
	}
	if r.Len() != 3 {
		t.Errorf("expected 3 identities, got %d", r.Len())
	}
}

func TestPopulate_UnresolvedName(t *testing.T) {
	r := New()
	resolver := mapResolver{"alice": {0}}

	_, err := r.Populate([]string{"alice", "ghost"}, resolver)
	if !errors.Is(err, ErrUnresolvedIdentity) {
		t.Fatalf("expected ErrUnresolvedIdentity, got %v", err)
	}
}

func TestPopulate_DuplicateLabel(t *testing.T) {
	r := New()
	resolver := mapResolver{
		"alice":  {3},
		"alicia": {3},
	}

	_, err := r.Populate([]string{"alice", "alicia"}, resolver)
	if !errors.Is(err, ErrDuplicateLabel) {
		t.Fatalf("expected ErrDuplicateLabel, got %v", err)
	}
}

func TestPopulate_Empty(t *testing.T) {
	r := New()

	highest, err := r.Populate(nil, mapResolver{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if highest != 0 {
		t.Errorf("expected highest label 0, got %d", highest)
	}
}

func TestAllocate_NewName(t *testing.T) {
	r := New()
	if _, err := r.Populate([]string{"alice", "bob"}, mapResolver{"alice": {0}, "bob": {1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := r.HighestLabel()

	label, created := r.Allocate("carol")

	if !created {
		t.Error("expected carol to be created")
	}
	if label != before+1 {
		t.Errorf("expected label %d, got %d", before+1, label)
	}
	if r.HighestLabel() != label {
		t.Errorf("expected highest label %d, got %d", label, r.HighestLabel())
	}
	if name, ok := r.LookupName(label); !ok || name != "carol" {
		t.Errorf("expected %d -> carol, got %q", label, name)
	}
	if r.Len() != 3 {
		t.Errorf("expected 3 identities, got %d", r.Len())
	}
}

func TestAllocate_Idempotent(t *testing.T) {
	names := []string{"alice", "carol", "Jiří", "two words"}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			r := New()
			first, _ := r.Allocate(name)
			second, created := r.Allocate(name)

			if created {
				t.Error("expected second allocation to reuse the label")
			}
			if first != second {
				t.Errorf("expected same label, got %d then %d", first, second)
			}
			if r.Len() != 1 {
				t.Errorf("expected 1 identity, got %d", r.Len())
			}
		})
	}
}

func TestAllocate_KnownNameKeepsHighest(t *testing.T) {
	r := New()
	if _, err := r.Populate([]string{"alice", "bob"}, mapResolver{"alice": {0}, "bob": {5}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	label, created := r.Allocate("alice")

	if created || label != 0 {
		t.Errorf("expected existing label 0, got %d (created=%v)", label, created)
	}
	if r.HighestLabel() != 5 {
		t.Errorf("expected highest label to stay 5, got %d", r.HighestLabel())
	}
}

func TestAllocate_EmptyRegistryStartsAtOne(t *testing.T) {
	r := New()

	label, _ := r.Allocate("first")

	if label != 1 {
		t.Errorf("expected first allocated label 1, got %d", label)
	}
}

func TestIdentities_SortedByLabel(t *testing.T) {
	r := New()
	if _, err := r.Populate([]string{"bob", "alice"}, mapResolver{"alice": {0}, "bob": {1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.Allocate("carol")

	got := r.Identities()
	want := []Identity{{"alice", 0}, {"bob", 1}, {"carol", 2}}

	if len(got) != len(want) {
		t.Fatalf("expected %d identities, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("identity %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestLookup_RoundTrip(t *testing.T) {
	r := New()
	if _, err := r.Populate([]string{"alice", "bob"}, mapResolver{"alice": {0}, "bob": {1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"alice", "bob"} {
		label, ok := r.LookupLabel(name)
		if !ok {
			t.Fatalf("expected %s to be registered", name)
		}
		got, ok := r.LookupName(label)
		if !ok || got != name {
			t.Errorf("expected round trip to %q, got %q", name, got)
		}
	}

	if _, ok := r.LookupLabel("dave"); ok {
		t.Error("expected dave to be absent")
	}
}

func TestReserve(t *testing.T) {
	r := New()
	if _, err := r.Populate([]string{"bob"}, mapResolver{"bob": {0}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r.Reserve(4)
	r.Reserve(2)

	if r.HighestLabel() != 4 {
		t.Errorf("expected highest label 4, got %d", r.HighestLabel())
	}
	if label, created := r.Allocate("dave"); !created || label != 5 {
		t.Errorf("expected dave -> 5, got %d (created=%v)", label, created)
	}
}
