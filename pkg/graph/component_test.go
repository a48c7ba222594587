package graph

import "testing"

func TestUnionFind(t *testing.T) {
	uf := NewUnionFind(5)

	// Initially all separate.
	for i := range uint32(5) {
		if uf.Find(i) != i {
			t.Errorf("Find(%d) = %d, want %d", i, uf.Find(i), i)
		}
	}
	if uf.Sets() != 5 {
		t.Errorf("Sets() = %d, want 5", uf.Sets())
	}

	// Union 0 and 1.
	uf.Union(0, 1)
	if uf.Find(0) != uf.Find(1) {
		t.Error("0 and 1 should be in same set")
	}

	// Union 2 and 3.
	uf.Union(2, 3)
	if uf.Find(2) != uf.Find(3) {
		t.Error("2 and 3 should be in same set")
	}

	// 0 and 2 should be different.
	if uf.Find(0) == uf.Find(2) {
		t.Error("0 and 2 should be in different sets")
	}

	// Union the two groups.
	if !uf.Union(1, 3) {
		t.Error("Union(1, 3) = false, want true")
	}
	if uf.Find(0) != uf.Find(3) {
		t.Error("0 and 3 should now be in same set")
	}
	if uf.Union(0, 2) {
		t.Error("Union(0, 2) = true for an existing set")
	}
	if got := uf.Size(2); got != 4 {
		t.Errorf("Size(2) = %d, want 4", got)
	}
	if uf.Sets() != 2 {
		t.Errorf("Sets() = %d, want 2", uf.Sets())
	}
}

func TestConnectedComponents(t *testing.T) {
	// 0 - 1 - 2 and 3 - 4, segment 5 isolated.
	edges := []Edge{
		{From: NewOrientedNode(0, false), To: NewOrientedNode(1, false)},
		{From: NewOrientedNode(1, true), To: NewOrientedNode(2, false)},
		{From: NewOrientedNode(4, false), To: NewOrientedNode(3, true)},
	}
	if got := ConnectedComponents(6, edges); got != 3 {
		t.Errorf("ConnectedComponents = %d, want 3", got)
	}
	if got := ConnectedComponents(0, nil); got != 0 {
		t.Errorf("ConnectedComponents(empty) = %d, want 0", got)
	}
}
