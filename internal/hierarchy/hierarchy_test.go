// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package hierarchy

import (
	"reflect"
	"testing"

	"vocabserve/internal/models"
)

// assertPreOrder checks that every entry is either at level 1 or exactly
// one level below some earlier entry at the previous level, and that a
// child's broader is the nearest preceding entry one level up.
func assertPreOrder(t *testing.T, entries []models.HierarchyEntry) {
	t.Helper()
	stack := []models.HierarchyEntry{}
	for i, e := range entries {
		if e.Level < 1 {
			t.Fatalf("entry %d has level %d", i, e.Level)
		}
		if e.Level > len(stack)+1 {
			t.Fatalf("entry %d (%s) jumps to level %d after depth %d", i, e.URI, e.Level, len(stack))
		}
		stack = stack[:e.Level-1]
		if e.Level > 1 && stack[len(stack)-1].URI != e.BroaderURI {
			t.Fatalf("entry %d (%s) broader %q, parent line is %q", i, e.URI, e.BroaderURI, stack[len(stack)-1].URI)
		}
		stack = append(stack, e)
	}
}

func TestBuild_SimpleChain(t *testing.T) {
	res := Build([]Row{
		{URI: "B", Label: "B", BroaderURI: "A"},
		{URI: "A", Label: "A"},
	})
	want := []models.HierarchyEntry{
		{Level: 1, URI: "A", Label: "A"},
		{Level: 2, URI: "B", Label: "B", BroaderURI: "A"},
	}
	if !reflect.DeepEqual(res.Entries, want) {
		t.Errorf("Entries = %+v, want %+v", res.Entries, want)
	}
	if len(res.Problems) != 0 {
		t.Errorf("unexpected problems: %+v", res.Problems)
	}
}

func TestBuild_ChildrenSortedByLabel(t *testing.T) {
	res := Build([]Row{
		{URI: "http://ex/C", Label: "Charlie", BroaderURI: "http://ex/A"},
		{URI: "http://ex/A", Label: "Alpha"},
		{URI: "http://ex/B", Label: "Bravo", BroaderURI: "http://ex/A"},
		{URI: "http://ex/b", Label: "bravo", BroaderURI: "http://ex/A"},
	})
	var got []string
	for _, e := range res.Entries {
		got = append(got, e.Label)
	}
	want := []string{"Alpha", "Bravo", "Charlie", "bravo"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("labels = %v, want %v", got, want)
	}
	assertPreOrder(t, res.Entries)
}

func TestBuild_MultipleBroadersListedUnderEach(t *testing.T) {
	res := Build([]Row{
		{URI: "A", Label: "A"},
		{URI: "B", Label: "B"},
		{URI: "X", Label: "X", BroaderURI: "A"},
		{URI: "X", Label: "X", BroaderURI: "B"},
	})
	if len(res.Entries) != 4 {
		t.Fatalf("Entries = %+v, want 4 entries", res.Entries)
	}
	assertPreOrder(t, res.Entries)
}

func TestBuild_DuplicateRowsCollapsed(t *testing.T) {
	res := Build([]Row{
		{URI: "A", Label: "A"},
		{URI: "A", Label: "A"},
		{URI: "B", Label: "B", BroaderURI: "A"},
		{URI: "B", Label: "B", BroaderURI: "A"},
	})
	if len(res.Entries) != 2 {
		t.Errorf("Entries = %+v, want 2 entries", res.Entries)
	}
}

func TestBuild_CycleReachableFromRoot(t *testing.T) {
	// R -> A -> B -> A
	res := Build([]Row{
		{URI: "R", Label: "R"},
		{URI: "A", Label: "A", BroaderURI: "R"},
		{URI: "B", Label: "B", BroaderURI: "A"},
		{URI: "A", Label: "A", BroaderURI: "B"},
	})
	assertPreOrder(t, res.Entries)
	if len(res.Entries) != 3 {
		t.Errorf("Entries = %+v, want R, A, B", res.Entries)
	}
	if !hasProblem(res, ProblemCycle, "A") {
		t.Errorf("cycle on A not reported: %+v", res.Problems)
	}
}

func TestBuild_SelfLoop(t *testing.T) {
	res := Build([]Row{
		{URI: "A", Label: "A"},
		{URI: "A", Label: "A", BroaderURI: "A"},
	})
	assertPreOrder(t, res.Entries)
	if len(res.Entries) != 1 {
		t.Errorf("Entries = %+v, want only A", res.Entries)
	}
	if !hasProblem(res, ProblemCycle, "A") {
		t.Errorf("self loop not reported: %+v", res.Problems)
	}
}

func TestBuild_UnreachableCycleAppended(t *testing.T) {
	res := Build([]Row{
		{URI: "R", Label: "R"},
		{URI: "X", Label: "X", BroaderURI: "Y"},
		{URI: "Y", Label: "Y", BroaderURI: "X"},
	})
	assertPreOrder(t, res.Entries)
	seen := map[string]bool{}
	for _, e := range res.Entries {
		seen[e.URI] = true
	}
	for _, u := range []string{"R", "X", "Y"} {
		if !seen[u] {
			t.Errorf("%s missing from %+v", u, res.Entries)
		}
	}
	if res.Entries[1].URI != "X" || res.Entries[1].Level != 1 {
		t.Errorf("cycle head = %+v, want X at level 1", res.Entries[1])
	}
	if !hasProblem(res, ProblemCycle, "X") {
		t.Errorf("cycle not reported: %+v", res.Problems)
	}
}

func TestBuild_OrphansAppended(t *testing.T) {
	res := Build([]Row{
		{URI: "A", Label: "A"},
		{URI: "O", Label: "Orphan", BroaderURI: "http://elsewhere/P"},
		{URI: "OC", Label: "Orphan child", BroaderURI: "O"},
	})
	want := []models.HierarchyEntry{
		{Level: 1, URI: "A", Label: "A"},
		{Level: 1, URI: "O", Label: "Orphan"},
		{Level: 2, URI: "OC", Label: "Orphan child", BroaderURI: "O"},
	}
	if !reflect.DeepEqual(res.Entries, want) {
		t.Errorf("Entries = %+v, want %+v", res.Entries, want)
	}
	if !hasProblem(res, ProblemOrphan, "O") {
		t.Errorf("orphan not reported: %+v", res.Problems)
	}
}

func TestBuild_Empty(t *testing.T) {
	res := Build(nil)
	if len(res.Entries) != 0 || len(res.Problems) != 0 {
		t.Errorf("Build(nil) = %+v", res)
	}
}

func TestBuild_EveryRowTerminates(t *testing.T) {
	// Dense graph: every node is broader of every other node.
	var rows []Row
	ids := []string{"a", "b", "c", "d", "e"}
	rows = append(rows, Row{URI: "a", Label: "a"})
	for _, x := range ids {
		for _, y := range ids {
			if x != y {
				rows = append(rows, Row{URI: x, Label: x, BroaderURI: y})
			}
		}
	}
	res := Build(rows)
	assertPreOrder(t, res.Entries)
	if len(res.Entries) == 0 {
		t.Error("no entries")
	}
}

func hasProblem(res Result, kind ProblemKind, uri string) bool {
	for _, p := range res.Problems {
		if p.Kind == kind && p.URI == uri {
			return true
		}
	}
	return false
}
