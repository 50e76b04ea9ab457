package dedup

import (
	"testing"
)

func TestUnionFindMergesTransitively(t *testing.T) {
	uf := NewUnionFind(5)
	uf.Union(1, 2)
	uf.Union(2, 3)

	if !uf.Connected(1, 3) {
		t.Error("1 and 3 should be connected through 2")
	}
	if uf.Connected(0, 1) {
		t.Error("0 should remain a singleton")
	}
	if uf.Connected(1, 4) {
		t.Error("4 should remain a singleton")
	}
}

func TestUnionFindIdempotentUnions(t *testing.T) {
	uf := NewUnionFind(4)
	uf.Union(0, 1)
	uf.Union(0, 1)
	uf.Union(1, 0)

	components := uf.Components(2)
	if len(components) != 1 {
		t.Fatalf("expected 1 component, got %d", len(components))
	}
	if len(components[0]) != 2 {
		t.Errorf("expected component of 2, got %v", components[0])
	}
}

func TestUnionFindComponentsMinSize(t *testing.T) {
	uf := NewUnionFind(6)
	uf.Union(0, 1)
	uf.Union(3, 4)
	uf.Union(4, 5)

	all := uf.Components(1)
	if len(all) != 3 { // {0,1}, {2}, {3,4,5}
		t.Errorf("expected 3 components at minSize 1, got %d", len(all))
	}

	pairs := uf.Components(2)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 components at minSize 2, got %d", len(pairs))
	}

	triples := uf.Components(3)
	if len(triples) != 1 {
		t.Fatalf("expected 1 component at minSize 3, got %d", len(triples))
	}
	want := []int{3, 4, 5}
	for i, m := range triples[0] {
		if m != want[i] {
			t.Errorf("component members = %v, want %v", triples[0], want)
			break
		}
	}
}

func TestUnionFindOrderIndependentPartition(t *testing.T) {
	edges := [][2]int{{0, 1}, {1, 2}, {5, 6}, {2, 3}}

	forward := NewUnionFind(8)
	for _, e := range edges {
		forward.Union(e[0], e[1])
	}
	backward := NewUnionFind(8)
	for i := len(edges) - 1; i >= 0; i-- {
		backward.Union(edges[i][1], edges[i][0])
	}

	for a := 0; a < 8; a++ {
		for b := a + 1; b < 8; b++ {
			if forward.Connected(a, b) != backward.Connected(a, b) {
				t.Errorf("partition differs for (%d,%d) depending on edge order", a, b)
			}
		}
	}
}
