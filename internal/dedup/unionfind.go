// Package dedup implements the duplicate-detection engine: anchor-hash
// computation, candidate blocking, pairwise relation classification,
// union-find merging, group building, keeper selection, and overlap
// normalization.
package dedup

// UnionFind is a disjoint-set structure over a stable integer indexing of
// file ids. Path compression plus union-by-rank keeps Find amortized near
// O(1). The structure always represents a valid partition.
type UnionFind struct {
	parent []int
	rank   []int
}

// NewUnionFind creates a union-find over n elements, each in its own set.
func NewUnionFind(n int) *UnionFind {
	parent := make([]int, n)
	rank := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &UnionFind{parent: parent, rank: rank}
}

// Find returns the root of x's set. Path compression is iterative to bound
// stack depth on large batches.
func (u *UnionFind) Find(x int) int {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	// Second pass: point every node on the path at the root.
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

// Union merges the sets containing a and b, by rank. Union is commutative
// and idempotent, so edge application order never changes the final
// partition.
func (u *UnionFind) Union(a, b int) {
	ra, rb := u.Find(a), u.Find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// Connected reports whether a and b are in the same set.
func (u *UnionFind) Connected(a, b int) bool {
	return u.Find(a) == u.Find(b)
}

// Components returns the members of every set with at least minSize
// elements, each component ordered by index.
func (u *UnionFind) Components(minSize int) [][]int {
	byRoot := make(map[int][]int)
	for i := range u.parent {
		root := u.Find(i)
		byRoot[root] = append(byRoot[root], i)
	}

	var components [][]int
	// Iterate in index order for deterministic output.
	for i := range u.parent {
		members, ok := byRoot[i]
		if !ok || len(members) < minSize {
			continue
		}
		components = append(components, members)
	}
	return components
}
